package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/application"
	appexams "github.com/bryanwahyu/bioscan/internal/application/exams"
	appsession "github.com/bryanwahyu/bioscan/internal/application/session"
	"github.com/bryanwahyu/bioscan/internal/config"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/infra/ai/gemini"
	"github.com/bryanwahyu/bioscan/internal/infra/credstore"
	"github.com/bryanwahyu/bioscan/internal/infra/httpserver"
	"github.com/bryanwahyu/bioscan/internal/infra/payload"
	"github.com/bryanwahyu/bioscan/internal/infra/storage"
	"github.com/bryanwahyu/bioscan/internal/logging"
	"github.com/bryanwahyu/bioscan/internal/middleware"
	"github.com/bryanwahyu/bioscan/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "bioscan",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	}, log)
	if err != nil {
		log.Fatal("telemetry init error", zap.Error(err))
	}

	// credential slots
	backend, err := credstore.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("credential backend init error", zap.String("backend", cfg.Credentials.Backend), zap.Error(err))
	}
	defer backend.Close()

	// analysis service
	analyzer := gemini.NewClient(cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.Gemini.Timeout, log)
	svc := appexams.NewService(payload.NewEncoder(cfg.Analysis.MaxUploadBytes), analyzer, log)
	svc.Observer = middleware.AnalysisObserver{}

	checks := backend.HealthChecks()
	if cfg.Minio.Endpoint != "" {
		src, err := storage.New(cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			log.Fatal("minio init error", zap.Error(err))
		}
		svc.Source = src
		checks["minio"] = middleware.CheckFunc(src.Ping)
	}

	// browser sessions
	clock := application.SystemClock{}
	sessions := appsession.NewRegistry(func(ctx context.Context, id string) (*appsession.Controller, error) {
		slot := credentials.NewSlot(backend.Slots, "web:"+id)
		return appsession.NewController(ctx, id, slot, svc, appsession.Options{
			Timeout: cfg.Analysis.Timeout,
			Clock:   clock,
			Log:     log,
		})
	}, cfg.Analysis.SessionTTL, clock, log)
	go sessions.Run(ctx, time.Minute)
	go backend.Run(ctx, time.Minute, log)

	handler := httpserver.NewRouter(sessions, svc, httpserver.Options{
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		SecureCookies:  cfg.Server.SecureCookies,
		Health:         checks,
		Ready:          backend.Ready(),
		Clock:          clock,
		Log:            log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("model", cfg.Gemini.Model),
			zap.String("credentials", backend.Name),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	// let running analyses land before the backend closes
	if err := sessions.Wait(shutdownCtx); err != nil {
		log.Warn("analyses still running at exit", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("flush traces", zap.Error(err))
	}
}
