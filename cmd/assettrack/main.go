package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hsdfat8/assettrack/internal/config"
	"github.com/hsdfat8/assettrack/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to config.yaml lookup)")
	envFile := flag.String("env-file", "", "Optional .env file loaded before configuration")
	flag.Parse()

	// Initialize logger
	log := logger.New("assettrack-main", "info")

	if *envFile != "" {
		if err := config.LoadEnv(*envFile); err != nil {
			log.Fatalw("Failed to load env file", "error", err)
		}
	} else if err := config.LoadEnv(); err != nil {
		log.Debugw("No .env file loaded", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}
	logger.SetLevel(cfg.Logging.Level)

	app := &Application{cfg: cfg, logger: log}
	if err := app.start(); err != nil {
		app.shutdown()
		log.Fatalw("Failed to start asset tracking service", "error", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("Received signal", "signal", sig.String())

	app.shutdown()
}
