package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/library"
	"github.com/Aman-CERP/songbook/internal/logging"
	"github.com/Aman-CERP/songbook/internal/mcp"
	"github.com/Aman-CERP/songbook/internal/watcher"
)

type serveOptions struct {
	transport string
	watch     bool
	noWatch   bool
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server on stdio.

stdout carries JSON-RPC only. Logs go to ~/.songbook/logs/songbook.log;
view them with 'songbook logs'.

With corpus.watch (or --watch) the corpus is reloaded when the file
changes. Queries in flight finish against the songs they started with.`,
		Example: `  # Claude Desktop / Claude Code configuration
  {"command": "songbook", "args": ["serve"]}

  # Reload on corpus changes
  songbook serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport (default: server.transport)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the corpus when the file changes")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the corpus even if corpus.watch is set")
	cmd.MarkFlagsMutuallyExclusive("watch", "no-watch")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanup, err := logging.SetupServer(cfg.Server.LogLevel, debugMode)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	lib, err := library.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	// A missing corpus is not fatal: tools report it, and the watcher picks
	// the file up once it appears.
	if _, err := lib.Load(ctx); err != nil {
		slog.Error("initial_load_failed",
			slog.String("corpus", cfg.Corpus.Path),
			slog.String("error", err.Error()))
	}

	srv, err := mcp.NewServer(lib, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	if watchEnabled(cfg, opts) {
		w, err := watcher.New([]string{cfg.Corpus.Path}, watcher.Options{
			DebounceWindow: cfg.WatchDebounceDuration(),
			ForcePolling:   cfg.Corpus.ForcePolling,
		})
		if err != nil {
			slog.Warn("watcher_unavailable",
				slog.String("corpus", cfg.Corpus.Path),
				slog.String("error", err.Error()))
		} else {
			g.Go(func() error {
				return lib.Watch(ctx, w)
			})
		}
	}

	slog.Info("server_starting",
		slog.String("corpus", cfg.Corpus.Path),
		slog.String("transport", transportOrDefault(cfg, opts)))

	serveErr := srv.Serve(ctx, opts.transport)
	interrupted := ctx.Err() != nil
	cancel()
	if err := g.Wait(); err != nil {
		slog.Warn("watcher_failed", slog.String("error", err.Error()))
	}

	if serveErr != nil && !interrupted {
		return serveErr
	}
	slog.Info("server_stopped")
	return nil
}

func watchEnabled(cfg *config.Config, opts serveOptions) bool {
	switch {
	case opts.watch:
		return true
	case opts.noWatch:
		return false
	default:
		return cfg.Corpus.Watch
	}
}

func transportOrDefault(cfg *config.Config, opts serveOptions) string {
	if opts.transport != "" {
		return opts.transport
	}
	return cfg.Server.Transport
}
