package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/InkForge/internal/api"
	"github.com/ramonehamilton/InkForge/internal/api/handlers"
	"github.com/ramonehamilton/InkForge/internal/metrics"
	"github.com/ramonehamilton/InkForge/internal/storage"
)

var servePort int

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the deck building HTTP API",
	Long: `Serves the deck builder over HTTP and reloads the search snapshot
whenever the corpus database changes on disk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "API server port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Error closing database", zap.Error(err))
		}
	}()

	requestTimeout, err := cfg.GetRequestTimeout()
	if err != nil {
		return err
	}
	debounce, err := cfg.GetReloadDebounce()
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	server := api.NewServer(&api.Config{
		Port:           port,
		RequestTimeout: requestTimeout,
		Defaults:       handlers.DeckDefaults{Size: cfg.Deck.DefaultSize, Format: cfg.Deck.DefaultFormat},
	}, api.Dependencies{
		Builder: rt.builder,
		Cards:   rt.snapshot.Cards(),
		Health: func(context.Context) map[string]interface{} {
			ix := rt.index.Load()
			if ix == nil {
				return map[string]interface{}{"indexed_cards": 0}
			}
			return map[string]interface{}{"indexed_cards": ix.Len()}
		},
		Metrics: metrics.NewBuildMetrics(),
		Logger:  logger.Named("api"),
	})

	watcher := storage.NewWatcher(rt.db.Path(), debounce, func(ctx context.Context) error {
		return rt.snapshot.Reload(ctx, rt.index)
	}, logger.Named("watcher"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.ListenAndServe(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	err = g.Wait()
	logger.Info("API server stopped")
	return err
}
