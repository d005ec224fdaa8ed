package httpserver

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/application"
	appexams "github.com/bryanwahyu/bioscan/internal/application/exams"
	appsession "github.com/bryanwahyu/bioscan/internal/application/session"
	"github.com/bryanwahyu/bioscan/internal/config"
	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/middleware"
)

const sessionCookie = "bioscan_session"

type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimit      float64
	RateBurst      int
	SecureCookies  bool
	Health         map[string]middleware.HealthChecker
	Ready          middleware.HealthChecker
	Clock          application.Clock
	Log            *zap.Logger
}

type Router struct {
	sessions  *appsession.Registry
	examsSvc  *appexams.Service
	views     *template.Template
	clock     application.Clock
	log       *zap.Logger
	maxUpload int64
	secure    bool
}

func NewRouter(sessions *appsession.Registry, examsSvc *appexams.Service, opts Options) http.Handler {
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	r := &Router{
		sessions:  sessions,
		examsSvc:  examsSvc,
		views:     parseViews(),
		clock:     opts.Clock,
		log:       opts.Log,
		maxUpload: opts.MaxUploadBytes,
		secure:    opts.SecureCookies,
	}
	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst)

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Ready))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Group(func(web chi.Router) {
		web.Use(limiter.Middleware)
		web.Get("/", r.wrap(r.handleIndex))
		web.Get("/status", r.wrap(r.handleStatus))
		web.Post("/credential", r.wrap(r.handleCredential))
		web.Post("/upload", r.wrap(r.handleUpload))
		web.Post("/reset", r.wrap(r.handleReset))
		web.Post("/logout", r.wrap(r.handleLogout))
	})

	mux.Route("/api/v1", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization", middleware.HeaderGoogAPIKey},
			MaxAge:         300,
		}))
		api.Use(limiter.Middleware)
		api.Use(middleware.APICredential)
		api.Post("/analyze", r.wrapAPI(r.handleAnalyze))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap renders web failures as a page. Rejected user actions keep the
// current screen and show a notice; anything else is a 500.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status, notice := webStatus(err)
		if status >= http.StatusInternalServerError {
			r.log.Error("web handler failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		ctrl, cerr := r.controller(w, req)
		if cerr != nil {
			http.Error(w, exams.Message(cerr), http.StatusInternalServerError)
			return
		}
		r.render(w, status, ctrl.Snapshot(), notice)
	}
}

// wrapAPI maps the error taxonomy onto HTTP status codes.
func (r *Router) wrapAPI(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		kind := exams.KindOf(err)
		status := apiStatus(kind)
		if status >= http.StatusInternalServerError {
			r.log.Error("api analyze failed", zap.Error(err))
		}
		writeJSON(w, status, map[string]string{
			"error":   string(kind),
			"message": exams.Message(err),
		})
	}
}

func apiStatus(kind exams.Kind) int {
	switch kind {
	case exams.KindMissingCredential, exams.KindFileRead:
		return http.StatusBadRequest
	case exams.KindAuthorization:
		return http.StatusUnauthorized
	case exams.KindEmptyResponse, exams.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func webStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errEmptyCredential):
		return http.StatusBadRequest, "Informe a chave de API."
	case errors.Is(err, errBusy):
		return http.StatusConflict, "Uma análise já está em andamento."
	case errors.Is(err, errInvalidTransition):
		return http.StatusConflict, "Ação indisponível neste momento."
	case errors.Is(err, exams.ErrMissingCredential):
		return http.StatusBadRequest, exams.Message(err)
	default:
		return http.StatusInternalServerError, exams.Message(err)
	}
}

// controller resolves the browser session, issuing a cookie for new ones.
func (r *Router) controller(w http.ResponseWriter, req *http.Request) (*appsession.Controller, error) {
	id := ""
	if c, err := req.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	ctrl, err := r.sessions.Get(req.Context(), id)
	if err != nil {
		return nil, err
	}
	if ctrl.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    ctrl.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(config.SessionCookieMaxAge.Seconds()),
		})
	}
	return ctrl, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
