package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/api"
)

const purgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for search, import and duplicate maintenance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initLeads(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}

		timeout := time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.NewRouter(env.Service, cfg.Server.AllowedOrigins, timeout),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go purgeLoop(ctx, env, purgeInterval)

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// purgeLoop drops expired search cache entries and provider memo entries
// every interval until ctx is done.
func purgeLoop(ctx context.Context, env *leadsEnv, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOnce(ctx, env)
		}
	}
}

func purgeOnce(ctx context.Context, env *leadsEnv) {
	var cached int
	if p, ok := env.Cache.(cachePurger); ok {
		n, err := p.Purge(ctx)
		if err != nil {
			zap.L().Warn("search cache purge failed", zap.Error(err))
		}
		cached = n
	}
	var memo int
	if env.Places != nil {
		memo = env.Places.Purge()
	}
	zap.L().Debug("purged expired entries",
		zap.Int("search_cache", cached),
		zap.Int("places_memo", memo),
	)
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
