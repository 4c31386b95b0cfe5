package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/cache"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/database"
	"github.com/JonMunkholm/catalog/internal/events"
	"github.com/JonMunkholm/catalog/internal/metrics"
	"github.com/JonMunkholm/catalog/internal/web"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API on the configured address.

SIGINT or SIGTERM stops accepting connections, waits for running exports up
to SERVER_SHUTDOWN_TIMEOUT, then closes websocket clients and the database
pool.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.addr, "listen", "l", "", "override listen address (host:port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"env", cfg.App.Env,
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"export_max_concurrent", cfg.Export.MaxConcurrent,
		"cache_enabled", cfg.Cache.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
	}

	hub := events.NewHub(nil, collector)
	defer hub.Close()

	service := core.NewService(database.New(pool), core.Options{
		Events:               hub,
		BcryptCost:           cfg.Security.BcryptCost,
		MaxConcurrentExports: cfg.Export.MaxConcurrent,
		ExportWait:           cfg.Export.MaxWaitTime,
		ExportDefaultLimit:   cfg.Export.DefaultLimit,
		ExportMaxLimit:       cfg.Export.MaxLimit,
		CompanyPageSize:      cfg.Export.CompanyPageSize,
	})

	var responses *cache.Cache
	if cfg.Cache.Enabled {
		responses = cache.New(cfg.Cache.MaxEntries, collector)
		if err := responses.StartJanitor(ctx, cfg.Cache.PurgeSchedule); err != nil {
			return err
		}
		defer responses.Stop()
	}

	server, err := web.NewServer(service, cfg, web.Deps{
		Cache:   responses,
		Metrics: collector,
		Hub:     hub,
	})
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr()
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown stops new requests and waits for open ones, streams included.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	if status := service.Exports().Status(); status.Active > 0 {
		slog.Info("waiting for exports to complete", "active", status.Active)
		if err := service.Exports().WaitForDrain(shutdownCtx); err != nil {
			slog.Warn("exports did not complete in time", "error", err)
		}
	}
	slog.Info("server stopped")
	return nil
}
