package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/shotsync/internal/config"
	"github.com/iudanet/shotsync/internal/server"
	"github.com/iudanet/shotsync/internal/server/feed"
	"github.com/iudanet/shotsync/internal/server/jwt"
	"github.com/iudanet/shotsync/internal/server/metrics"
	"github.com/iudanet/shotsync/internal/server/middleware"
	"github.com/iudanet/shotsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:           "shotsync-server",
		Short:         "Shotsync lock and board server",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to YAML config file")
	flags.String("addr", ":8080", "listen address")
	flags.String("db", "shotsync.db", "path to SQLite database")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")

	_ = v.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("server.db", flags.Lookup("db"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Log.NewLogger()
	logger.Info("Shotsync server starting", slog.String("version", Version), slog.String("addr", cfg.Server.Addr))

	store, err := sqlite.New(ctx, cfg.Server.DB)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Window, logger)
	defer limiter.Stop()

	hub := feed.NewHub(logger, m)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.Deps{
			Logger:   logger,
			Storage:  store,
			Tokens:   jwt.NewService(cfg.Server.JWTSecret, cfg.Server.TokenTTL),
			Hub:      hub,
			Metrics:  m,
			Gatherer: registry,
			Limiter:  limiter,
			Version:  Version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return runJanitor(gctx, logger, store, m, cfg.Server.JanitorInterval)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shotsync server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runJanitor периодически удаляет истекшие строки блокировок.
// Корректность от этого не зависит: истекшая строка и так считается отсутствующей.
func runJanitor(ctx context.Context, logger *slog.Logger, store *sqlite.Storage, m *metrics.Metrics, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := store.DeleteExpiredLocks(ctx)
			if err != nil {
				logger.Error("failed to delete expired locks", slog.Any("error", err))
				continue
			}
			m.RecordExpiredLocksRemoved(removed)
			if removed > 0 {
				logger.Debug("expired locks removed", slog.Int("count", removed))
			}
		}
	}
}
