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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/audit"
	"github.com/sort-storage/admin/internal/backend"
	"github.com/sort-storage/admin/internal/cache"
	"github.com/sort-storage/admin/internal/config"
	"github.com/sort-storage/admin/internal/logging"
	mw "github.com/sort-storage/admin/internal/middleware"
	"github.com/sort-storage/admin/internal/query"
	"github.com/sort-storage/admin/internal/router"
	"github.com/sort-storage/admin/internal/web"
	"github.com/sort-storage/admin/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	startupTimeout  = 5 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, port string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the warehouse admin dashboard",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional config file (yaml, json, toml or .env)")
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides PORT")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	stopSweepers := make(chan struct{})
	defer close(stopSweepers)

	// Upstreams
	clientOpts := backend.Options{Timeout: cfg.UpstreamTimeout, MaxBodyBytes: cfg.UpstreamMaxBodyBytes}
	storage := backend.New("storage", cfg.StorageServiceURL, clientOpts)
	users := backend.New("users", cfg.UserServiceURL, clientOpts)

	// Query cache
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	var store cache.Store
	if cfg.RedisURL != "" {
		rdb, err := cache.OpenRedis(startupCtx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = cache.NewRedisStore(rdb, "admin")
		logger.Info("query cache: redis")
	} else {
		mem := cache.NewMemoryStore()
		go sweep(mem, stopSweepers)
		store = mem
		logger.Info("query cache: memory")
	}

	// Live invalidation
	hub := ws.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	queries := query.NewService(storage, users, cache.New(store), hub, logger)

	// Audit trail
	var rec audit.Recorder = audit.NopRecorder{}
	if cfg.DatabaseURL != "" {
		pool, err := audit.Open(startupCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.AuditAutoMigrate {
			if err := audit.EnsureSchema(startupCtx, pool); err != nil {
				return err
			}
		}
		rec = audit.NewPostgresRecorder(pool)
		logger.Info("audit trail enabled")
	}

	pages, err := web.New(queries, web.Options{
		Location: cfg.Location(),
		LoginURL: cfg.LoginURL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	limiter := mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	limiter.StartSweeper(sweepInterval, stopSweepers)

	r := router.New(router.Deps{
		Config:  cfg,
		Logger:  logger,
		Storage: storage,
		Users:   users,
		Queries: queries,
		Hub:     hub,
		Audit:   rec,
		Limiter: limiter,
		Pages:   pages,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func sweep(store *cache.MemoryStore, stop <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			store.Sweep()
		case <-stop:
			return
		}
	}
}
