package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/bioscan/internal/report"
)

func (a *app) loginCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the Gemini API key",
		Long: `Store the Gemini API key used by 'bioscan analyze'.

Without --key the key is read from standard input.
Get a key at ` + report.APIKeyURL,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Google Gemini API Key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("empty API key")
			}
			if err := a.slot.Set(cmd.Context(), key); err != nil {
				return fmt.Errorf("store key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key stored.")
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Gemini API key")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored Gemini API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.slot.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show credential and model settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := a.slot.Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			state := "missing (run 'bioscan login')"
			if key != "" {
				state = "configured"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "credential: %s\n", state)
			fmt.Fprintf(out, "backend:    %s\n", a.backend.Name)
			fmt.Fprintf(out, "model:      %s\n", a.cfg.Gemini.Model)
			return nil
		},
	}
}
