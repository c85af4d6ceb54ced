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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/warp/pharmacy-ledger/api"
	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/config"
	"github.com/warp/pharmacy-ledger/finance"
	"github.com/warp/pharmacy-ledger/logger"
	"github.com/warp/pharmacy-ledger/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Logger())
	if err != nil {
		return fmt.Errorf("cannot build logger: %w", err)
	}
	defer log.Sync()

	conv, err := calendar.New(cfg.Calendar.Algorithm)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer store.Close()

	engine := finance.NewEngine(store,
		finance.WithCalendar(conv),
		finance.WithLogger(log),
	)
	handler := api.NewHandler(engine, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Registry:       registry,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting",
			"addr", server.Addr,
			"db", cfg.DB.Path,
			"calendar", conv.Name(),
			"version", version,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigCh:
		log.Warnw("signal received, shutting down", "signal", s.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
