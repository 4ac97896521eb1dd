package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hsdfat8/assettrack/internal/adapters/factory"
	httpAdapter "github.com/hsdfat8/assettrack/internal/adapters/http"
	"github.com/hsdfat8/assettrack/internal/adapters/rabbitmq"
	"github.com/hsdfat8/assettrack/internal/adapters/sweep"
	"github.com/hsdfat8/assettrack/internal/config"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/domain/service"
	"github.com/hsdfat8/assettrack/internal/logger"
	"github.com/hsdfat8/assettrack/internal/seed"
)

// Application holds the application state
type Application struct {
	cfg        *config.Config
	logger     logger.Logger
	store      ports.DatabaseAdapter
	services   *ports.Services
	httpServer *httpAdapter.Server
	sweeper    *sweep.Sweeper
	publisher  *rabbitmq.Publisher
	cancel     context.CancelFunc
}

func (app *Application) start() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	if err := app.initializeStore(ctx); err != nil {
		return err
	}
	if err := app.initializeSeed(ctx); err != nil {
		return err
	}
	app.initializeServices()
	if err := app.initializeHTTPServer(); err != nil {
		return err
	}
	return app.initializeSweep(ctx)
}

// initializeStore creates and connects the configured database adapter
func (app *Application) initializeStore(ctx context.Context) error {
	dbConfig := app.cfg.Database.AdapterConfig()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := factory.NewDatabaseAdapterFactory().CreateAndConnectAdapter(connectCtx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	app.store = store
	app.logger.Infow("✓ Store connected", "type", store.GetType())
	return nil
}

// initializeSeed loads the fixture fleet into an empty store when enabled
func (app *Application) initializeSeed(ctx context.Context) error {
	if !app.cfg.Seed.Enabled {
		return nil
	}

	var (
		dataset *seed.Dataset
		err     error
	)
	if app.cfg.Seed.File != "" {
		dataset, err = seed.LoadFile(app.cfg.Seed.File)
	} else {
		dataset, err = seed.Default()
	}
	if err != nil {
		return err
	}

	res, err := dataset.Apply(ctx, app.store, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	if !res.Skipped {
		app.logger.Infow("✓ Store seeded", "transformers", res.Transformers, "users", res.Users)
	}
	return nil
}

// initializeServices wires the domain services over the store
func (app *Application) initializeServices() {
	opts := service.DefaultOptions()
	opts.RetryAttempts = app.cfg.Workflow.RetryAttempts
	opts.RetryBackoff = app.cfg.Workflow.RetryBackoff
	opts.SessionTTL = app.cfg.Reconciliation.SessionTTL
	opts.Logger = logger.New("assettrack-service", "")

	app.services = service.NewServices(app.store, opts)
	app.logger.Info("✓ Domain services initialized")
}

// initializeHTTPServer configures and starts the HTTP/2 server
func (app *Application) initializeHTTPServer() error {
	srv := app.cfg.Server
	serverConfig := httpAdapter.ServerConfig{
		ListenAddr:      srv.Addr(),
		ReadTimeout:     srv.ReadTimeout,
		WriteTimeout:    srv.WriteTimeout,
		IdleTimeout:     srv.IdleTimeout,
		ShutdownTimeout: srv.ShutdownTimeout,
		EnableTLS:       srv.TLSEnabled(),
		TLSCertFile:     srv.TLSCertFile,
		TLSKeyFile:      srv.TLSKeyFile,
		EnableH2C:       srv.EnableH2C,
	}

	app.httpServer = httpAdapter.NewServer(serverConfig, httpAdapter.RouterDeps{
		Services:      app.services,
		Health:        app.store,
		RateLimit:     app.cfg.RateLimit.RPS,
		RateBurst:     app.cfg.RateLimit.Burst,
		EnableMetrics: app.cfg.Metrics.Enabled,
	})

	if err := app.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.Infow("✓ HTTP/2 server listening", "address", app.httpServer.GetAddr())
	return nil
}

// initializeSweep starts the overdue plan sweep with the configured notifier
func (app *Application) initializeSweep(ctx context.Context) error {
	cfg := app.cfg.Sweep
	if !cfg.Enabled {
		app.logger.Info("Overdue sweep disabled")
		return nil
	}

	var notifier sweep.Notifier
	switch cfg.Notifier {
	case "rabbitmq":
		publisher, err := rabbitmq.Dial(app.cfg.RabbitMQ.URL, app.cfg.RabbitMQ.Exchange, app.cfg.RabbitMQ.RoutingKey)
		if err != nil {
			return err
		}
		app.publisher = publisher
		notifier = publisher
	default:
		notifier = sweep.NewLogNotifier()
	}

	app.sweeper = sweep.NewSweeper(app.services.Maintenance, notifier, sweep.Config{
		Interval: cfg.Interval,
		ActorID:  cfg.ActorID,
		Renotify: cfg.Renotify,
	})
	app.sweeper.Start(ctx)

	app.logger.Infow("✓ Overdue sweep started", "interval", cfg.Interval, "notifier", notifier.Name())
	return nil
}

// shutdown performs graceful shutdown of all services
func (app *Application) shutdown() {
	app.logger.Info("Shutting down servers...")

	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.cancel != nil {
		app.cancel()
	}

	if app.httpServer != nil && app.httpServer.IsRunning() {
		if err := app.httpServer.Stop(); err != nil {
			app.logger.Errorw("HTTP server shutdown error", "error", err)
		}
	}

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Warnw("Failed to close rabbitmq publisher", "error", err)
		}
	}

	if app.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.store.Disconnect(ctx); err != nil {
			app.logger.Errorw("Store disconnect error", "error", err)
		}
	}

	app.logger.Info("Servers stopped gracefully")
}
