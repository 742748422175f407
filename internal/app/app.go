// Package app wires configuration, storage, Slack clients, the bot engine and
// the operational HTTP server into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/observability"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/server"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

// Version is reported in telemetry resources.
var Version = "dev"

// Application holds all application dependencies and lifecycle
type Application struct {
	configPath    string
	config        *config.Config
	configManager *config.Manager
	logger        *AtomicLogger
	telemetry     *observability.Telemetry

	// Storage
	history  repository.HistoryRepository
	dbPinger pinger
	dbCloser io.Closer

	// Infrastructure clients
	clients *Clients

	engine *bot.Engine

	// HTTP layer
	handlers *server.Handlers
	server   *server.Server
}

type pinger interface {
	Ping(ctx context.Context) error
}

// New creates a new Application instance
func New(configPath string) (*Application, error) {
	app := &Application{configPath: configPath}

	if err := app.bootstrap(); err != nil {
		app.cleanup()
		return nil, err
	}

	return app, nil
}

// Run starts the engine, the HTTP server and the config watcher and blocks
// until ctx is done or one of them fails. A fatal engine error is returned
// wrapped in bot.ErrFatal.
func (app *Application) Run(ctx context.Context) error {
	log := app.logger.Logger()
	log.Info("starting rtm-bot",
		"port", app.config.Server.Port,
		"storage", app.config.Storage.Type,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.engine.Run(gctx); err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		// The engine only returns nil once the context is done.
		return nil
	})
	g.Go(func() error {
		if err := app.server.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := app.configManager.Watch(gctx); err != nil {
			// Hot reload is optional; keep running without it.
			log.Warn("config watcher stopped", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown releases telemetry, storage and logging resources.
func (app *Application) Shutdown() error {
	app.logger.Get().Info("shutting down rtm-bot")

	err := app.cleanup()

	if err == nil {
		app.logger.Get().Info("rtm-bot stopped")
	}
	if cerr := app.logger.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (app *Application) cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if app.telemetry != nil {
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Get().Error("failed to shutdown telemetry", "error", err)
			errs = append(errs, err)
		}
		app.telemetry = nil
	}
	if app.dbCloser != nil {
		if err := app.dbCloser.Close(); err != nil {
			app.logger.Get().Error("failed to close database", "error", err)
			errs = append(errs, err)
		}
		app.dbCloser = nil
	}
	return errors.Join(errs...)
}

// Logger returns the live application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger.Logger()
}
