package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/monitord/internal/api"
	"github.com/creamcroissant/monitord/internal/bootstrap"
	"github.com/creamcroissant/monitord/internal/config"
	"github.com/creamcroissant/monitord/internal/migrations"
	"github.com/creamcroissant/monitord/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the collection/detection/alert scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, db, logger)
	if err != nil {
		return err
	}

	infra.Scheduler.Start()

	router := api.NewRouter(logger, api.Services{
		Store:       infra.Store,
		Cache:       infra.Cache,
		Status:      infra.Status,
		Heartbeats:  infra.Heartbeats,
		RateLimiter: infra.RateLimiter,
		Audit:       infra.Audit,
		DB:          db,
	}, cfg.Metrics, cfg.Security)

	bootCfg := bootstrap.Adapt(cfg)
	server := bootstrap.NewHTTPServer(bootCfg, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	stopCtx := infra.Scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
