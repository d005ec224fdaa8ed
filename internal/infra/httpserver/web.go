package httpserver

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"go.uber.org/zap"

	appsession "github.com/bryanwahyu/bioscan/internal/application/session"
	domain "github.com/bryanwahyu/bioscan/internal/domain/session"
	"github.com/bryanwahyu/bioscan/internal/middleware"
	"github.com/bryanwahyu/bioscan/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	errBusy              = domain.ErrBusy
	errInvalidTransition = domain.ErrInvalidTransition
	errEmptyCredential   = domain.ErrEmptyCredential
)

func parseViews() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"tone": func(t report.Tone) string { return "tone-" + string(t) },
	}).ParseFS(templateFS, "templates/*.html"))
}

type pageData struct {
	State       string
	Snapshot    appsession.Snapshot
	Report      *report.View
	Notice      string
	APIKeyURL   string
	Disclaimer  string
	MaxUploadMB int64
}

func (r *Router) render(w http.ResponseWriter, status int, snap appsession.Snapshot, notice string) {
	data := pageData{
		State:       snap.State.String(),
		Snapshot:    snap,
		Notice:      notice,
		APIKeyURL:   report.APIKeyURL,
		Disclaimer:  report.Disclaimer,
		MaxUploadMB: r.maxUpload >> 20,
	}
	if snap.Result != nil {
		v := report.Build(snap.Result, r.clock.Now())
		data.Report = &v
	}

	var buf bytes.Buffer
	if err := r.views.ExecuteTemplate(&buf, "page", data); err != nil {
		r.log.Error("render page", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func redirectHome(w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}
	r.render(w, http.StatusOK, ctrl.Snapshot(), "")
	return nil
}

// GET /status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, ctrl.Snapshot())
	return nil
}

// POST /credential
// Form: key=<gemini api key>
func (r *Router) handleCredential(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}
	// the key is opaque: only blank input is rejected, by the state machine
	if err := ctrl.SubmitCredential(req.Context(), req.PostFormValue("key")); err != nil {
		return err
	}
	redirectHome(w, req)
	return nil
}

// POST /upload
// Multipart: file=<pdf>
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}

	// multipart overhead on top of the document itself
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+(1<<20))
	name, body := middleware.DefaultFilename, io.Reader(nil)
	file, hdr, ferr := req.FormFile("file")
	if ferr != nil {
		// the controller turns this into a file read failure once the
		// transition is accepted
		body = errReader{err: ferr}
	} else {
		defer file.Close()
		name, body = middleware.SanitizeFilename(hdr.Filename), file
	}

	if err := ctrl.SelectFile(req.Context(), name, body); err != nil {
		return err
	}
	redirectHome(w, req)
	return nil
}

// POST /reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}
	if err := ctrl.Reset(req.Context()); err != nil && !errors.Is(err, errInvalidTransition) {
		return err
	}
	redirectHome(w, req)
	return nil
}

// POST /logout
func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) error {
	ctrl, err := r.controller(w, req)
	if err != nil {
		return err
	}
	if err := ctrl.Logout(req.Context()); err != nil {
		return err
	}
	redirectHome(w, req)
	return nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
