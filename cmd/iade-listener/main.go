package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"iadetakip/internal/backend"
	"iadetakip/internal/config"
	"iadetakip/internal/listener"
	"iadetakip/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	must(err)
	config.SetupLogging(cfg.LogLevel)

	store, err := backend.Open(cfg)
	must(err)
	defer store.Close()

	svc := listener.NewService(cfg, pipeline.NewImportService(store))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
