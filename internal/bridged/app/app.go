package app

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

	httpapi "github.com/rockfridrich/villa-sub000/internal/bridged/http"
	"github.com/rockfridrich/villa-sub000/internal/bridged/service"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store/drivers/sqlite"
	"github.com/rockfridrich/villa-sub000/pkg/bridge"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
	"github.com/rockfridrich/villa-sub000/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the relay service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	signer   jwtx.Signer
	keys     *jwtx.KeySet
	verifier jwtx.Verifier

	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "bridged",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.validateConfig(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, keys, err := InitTicketKeys(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ticket keys: %w", err)
	}
	app.signer = signer
	app.keys = keys
	app.verifier = jwtx.NewCommonEdDSA(keys, app.cfg.Issuer)

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("bridged starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"app_id", app.cfg.AppID,
		"network", app.cfg.Network,
		"host_origin", app.cfg.HostOrigin,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down bridged...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("bridged stopped")
	return nil
}

func (app *Application) validateConfig() error {
	if app.cfg.AppID == "" {
		return errors.New("VILLA_APP_ID is required")
	}
	if app.cfg.HostOrigin == "" {
		return errors.New("VILLA_HOST_ORIGIN is required")
	}
	if !bridge.Network(app.cfg.Network).Valid() {
		return fmt.Errorf("unknown VILLA_NETWORK %q", app.cfg.Network)
	}
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store: app.db,
		Tickets: &service.TicketService{
			Signer:   app.signer,
			Verifier: app.verifier,
			Issuer:   app.cfg.Issuer,
			TTL:      app.cfg.TicketTTL,
		},
		Logger:     app.logger,
		AppID:      app.cfg.AppID,
		Network:    bridge.Network(app.cfg.Network),
		HostOrigin: app.cfg.HostOrigin,
		Scopes:     app.cfg.Scopes,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.AuditRetention,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys,
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
