package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/application"
	appexams "github.com/bryanwahyu/bioscan/internal/application/exams"
	"github.com/bryanwahyu/bioscan/internal/config"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/infra/ai/gemini"
	"github.com/bryanwahyu/bioscan/internal/infra/credstore"
	"github.com/bryanwahyu/bioscan/internal/infra/payload"
	"github.com/bryanwahyu/bioscan/internal/infra/storage"
	"github.com/bryanwahyu/bioscan/internal/logging"
)

// cliNamespace keeps the terminal credential apart from browser sessions
// sharing the same backend.
const cliNamespace = "cli"

// rootOptions lets tests swap the model client and the clock.
type rootOptions struct {
	Analyzer exams.Analyzer
	Clock    application.Clock
}

// app is the state shared by every subcommand once config is loaded.
type app struct {
	opts       rootOptions
	configPath string
	verbose    bool

	cfg     *config.Config
	log     *zap.Logger
	backend *credstore.Backend
	slot    *credentials.Slot
	svc     *appexams.Service
}

func newRootCmd(opts rootOptions) *cobra.Command {
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "bioscan",
		Short: "Interpret lab exam PDFs with Gemini",
		Long: `BioScan reads a laboratory exam PDF, sends it to Google Gemini and
prints a plain-language report: patient, summary and one card per parameter.

The Gemini API key is stored once with 'bioscan login' and reused.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { a.teardown() },
	}

	defaultConfig := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfig, "Path to config.yaml")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.statusCmd(),
		a.analyzeCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	// in-process memory would forget the key between invocations
	if cfg.Credentials.Backend == "memory" {
		cfg.Credentials.Backend = "file"
	}
	a.cfg = cfg

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	if a.log, err = logging.New(level, true); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.backend, err = credstore.Open(ctx, cfg, a.log); err != nil {
		return err
	}
	a.slot = credentials.NewSlot(a.backend.Slots, cliNamespace)

	analyzer := a.opts.Analyzer
	if analyzer == nil {
		analyzer = gemini.NewClient(cfg.Gemini.Model, cfg.Gemini.BaseURL, cfg.Gemini.Timeout, a.log)
	}
	a.svc = appexams.NewService(payload.NewEncoder(cfg.Analysis.MaxUploadBytes), analyzer, a.log)
	if cfg.Minio.Endpoint != "" {
		src, err := storage.New(cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			return err
		}
		a.svc.Source = src
	}
	return nil
}

func (a *app) teardown() {
	if a.backend != nil {
		a.backend.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
