package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/report"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		output string
		key    string
		width  int
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.pdf | s3://bucket/key>",
		Short: "Analyze a lab exam PDF",
		Long: `Send one exam PDF to Gemini and print the interpretation.

Output formats:
  text - terminal report with one card per parameter (default)
  json - the raw analysis document
  yaml - the analysis document as YAML`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("unknown output %q (text, json, yaml)", output)
			}

			ctx := cmd.Context()
			credential, fromSlot := key, false
			if credential == "" {
				credential = os.Getenv("GEMINI_API_KEY")
			}
			if credential == "" {
				stored, err := a.slot.Get(ctx)
				if err != nil {
					return fmt.Errorf("read key: %w", err)
				}
				credential, fromSlot = stored, true
			}

			if output == "text" {
				fmt.Fprintln(cmd.ErrOrStderr(), "ANALISANDO DADOS BIOMÉTRICOS...")
			}
			res, err := a.svc.AnalyzeRef(ctx, args[0], credential)
			if err != nil {
				return a.failure(cmd, err, fromSlot)
			}
			return writeResult(cmd, output, res, a.opts.Clock.Now(), width)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&key, "key", "", "Gemini API key for this run only")
	cmd.Flags().IntVar(&width, "width", 80, "Report width for text output")
	return cmd
}

// failure reports err the way the web UI does. A rejected stored key is
// removed so the next run asks for a new one.
func (a *app) failure(cmd *cobra.Command, err error, storedKey bool) error {
	a.log.Debug("analysis failed", zap.Error(err))
	msg := exams.Message(err)
	switch {
	case exams.IsAuthorization(err) && storedKey:
		if cerr := a.slot.Clear(cmd.Context()); cerr != nil {
			a.log.Warn("clear rejected key", zap.Error(cerr))
		}
		msg += " Use 'bioscan login'."
	case exams.KindOf(err) == exams.KindMissingCredential:
		msg += " Use 'bioscan login' or --key. " + report.APIKeyURL
	}
	return errors.New(strings.TrimSpace(msg))
}

func writeResult(cmd *cobra.Command, output string, res *exams.AnalysisResponse, now time.Time, width int) error {
	out := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(res)
	default:
		return report.Render(out, report.Build(res, now), report.NewStyles(width))
	}
}
