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

	"iadetakip/internal/api"
	"iadetakip/internal/backend"
	"iadetakip/internal/config"
	"iadetakip/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	must(err)
	config.SetupLogging(cfg.LogLevel)
	must(cfg.Require("OPERATOR_PASSWORD", cfg.OperatorPassword))

	store, err := backend.Open(cfg)
	must(err)
	defer store.Close()

	tr := tracker.New(store)
	if err := tr.Refresh(context.Background()); err != nil {
		slog.Warn("initial refresh failed", "error", err)
	}

	handler, err := api.NewRouter(tr, api.Options{
		OperatorPassword: cfg.OperatorPassword,
		JWTSecret:        cfg.JWTSecret,
	})
	must(err)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.APIAddr, "status", tr.Status())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		must(err)
	}
	slog.Info("server stopped")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
