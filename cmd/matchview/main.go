package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scuffedaim/matchview/app"
	"github.com/scuffedaim/matchview/config"
)

func main() {
	configFile := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to the configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	logger := application.Observability.Provider.Logger
	logger.Info("Starting matchview")

	if err := application.Start(ctx); err != nil {
		logger.Error("matchview stopped with error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
