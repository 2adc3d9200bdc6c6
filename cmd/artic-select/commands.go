package main

import (
	"encoding/json"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/artic-select/internal/server"
	"github.com/Sternrassler/artic-select/internal/tui"
	"github.com/Sternrassler/artic-select/pkg/artwork"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser as a JSON HTTP API",
		Example: `  # Listen on the configured address (server.addr)
  artic-select serve

  # Listen on another port
  artic-select serve --addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}

			if err := a.browser.Load(ctx); err != nil {
				// Serve anyway; clients can retry via /api/refresh.
				a.logger.Warn().Err(err).Msg("Initial page load failed")
			}

			srv := server.New(a.browser, server.Options{
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				Redis:          a.redis,
			})
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "browse",
		Short:       "Browse and select artworks in the terminal",
		Annotations: map[string]string{quietLogs: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			model := tui.New(cmd.Context(), a.browser)
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run terminal UI: %w", err)
			}

			selected := a.browser.Selection()
			if len(selected) == 0 {
				return nil
			}
			a.logger.Info().Int("selected", len(selected)).Msg("Browse session ended")
			return writeSelection(cmd.OutOrStdout(), selected, "json")
		},
	}
}

func newSelectCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "select COUNT",
		Short: "Select the first COUNT artworks across pages and print them",
		Long: `Select the first COUNT artworks of the collection, fetching every page
needed in parallel. A COUNT that is not a non-negative number selects nothing.`,
		Example: `  artic-select select 25
  artic-select select 40 --output yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unsupported output %q (want json or yaml)", output)
			}
			if err := a.browser.SelectFirstInput(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writeSelection(cmd.OutOrStdout(), a.browser.Selection(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

// writeSelection prints records as an indented JSON array or a YAML list.
func writeSelection(w io.Writer, records []artwork.Artwork, format string) error {
	if records == nil {
		records = []artwork.Artwork{}
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
