package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/artic-select/internal/config"
	"github.com/Sternrassler/artic-select/pkg/browser"
	"github.com/Sternrassler/artic-select/pkg/client"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/pagination"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg     config.Config
	redis   *redis.Client
	client  *client.Client
	browser *browser.Browser
	logger  zerolog.Logger
	logFile io.Closer
}

// rootFlags override configuration when set.
type rootFlags struct {
	baseURL  string
	pageSize int
	redis    string
	logLevel string
	pretty   bool
	logFile  string
}

// quietLogs marks commands that own the terminal; their logs go to
// --log-file or nowhere.
const quietLogs = "quiet-logs"

func newRootCmd(ver string) *cobra.Command {
	var (
		flags rootFlags
		a     = &app{}
	)

	cmd := &cobra.Command{
		Use:           "artic-select",
		Short:         "Browse and select artworks from the Art Institute of Chicago",
		Long:          "Browse the artworks collection page by page, toggle records, or select the first N records across pages.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logOut, err := a.logOutput(cmd, flags.logFile)
			if err != nil {
				return err
			}
			return a.init(cmd.Context(), cfg, logOut)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.baseURL, "base-url", "", "artworks endpoint (overrides api.base_url)")
	pf.IntVar(&flags.pageSize, "page-size", 0, "records per upstream page (overrides api.page_size)")
	pf.StringVar(&flags.redis, "redis", "", "redis address enabling the page cache (overrides redis.addr)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	pf.BoolVar(&flags.pretty, "pretty", false, "human-readable console logs (overrides log.pretty)")
	pf.StringVar(&flags.logFile, "log-file", "", "append logs to this file instead of stderr")

	cmd.AddCommand(newServeCmd(a), newBrowseCmd(a), newSelectCmd(a))
	return cmd
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, flags rootFlags) {
	pf := cmd.Flags()
	if pf.Changed("base-url") {
		cfg.API.BaseURL = flags.baseURL
	}
	if pf.Changed("page-size") {
		cfg.API.PageSize = flags.pageSize
	}
	if pf.Changed("redis") {
		cfg.Redis.Addr = flags.redis
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if pf.Changed("pretty") {
		cfg.Log.Pretty = flags.pretty
	}
}

// init sets up logging and builds the client, assembler and browser.
func (a *app) init(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	a.cfg = cfg
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: logOut,
	})
	a.logger = logging.NewLogger("cli")

	clientCfg := cfg.ClientConfig()
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// The cache is optional; run without it.
			a.logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, page cache disabled")
			_ = a.redis.Close()
			a.redis = nil
		} else {
			a.logger.Info().Str("addr", cfg.Redis.Addr).Msg("Page cache enabled")
			clientCfg.Redis = a.redis
		}
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	a.client = c
	a.browser = browser.New(c, pagination.NewAssembler(c, cfg.AssemblerConfig()))

	a.logger.Debug().
		Str("base_url", cfg.API.BaseURL).
		Int("page_size", cfg.API.PageSize).
		Int("max_concurrency", cfg.Bulk.MaxConcurrency).
		Msg("Initialized")
	return nil
}

func (a *app) close() error {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// logOutput picks where logs go for cmd.
func (a *app) logOutput(cmd *cobra.Command, path string) (io.Writer, error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		return f, nil
	}
	if cmd.Annotations[quietLogs] == "true" {
		return io.Discard, nil
	}
	return cmd.ErrOrStderr(), nil
}

const rootCmdExample = `  # Serve the JSON API on :8080
  artic-select serve

  # Browse interactively in the terminal
  artic-select browse

  # Print the first 30 artworks as YAML
  artic-select select 30 --output yaml

  # Use a Redis page cache
  artic-select --redis localhost:6379 browse`
