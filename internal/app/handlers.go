package app

import (
	"github.com/qj0r9j0vc2/rtm-bot/internal/adapter/handler"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/server"
)

func (app *Application) initializeHandlers() {
	logger := app.logger.Logger()

	// Create readiness handler with dependency checkers
	readyHandler := handler.NewReadyHandler()
	readyHandler.AddChecker("slack", app.engine)
	if app.dbPinger != nil {
		readyHandler.AddChecker("database", app.dbPinger)
	}

	app.handlers = &server.Handlers{
		Health:  handler.NewHealthHandler(),
		Ready:   readyHandler,
		Metrics: handler.NewMetricsHandler(app.telemetry.Registry),
		Reload:  handler.NewReloadHandler(app.configManager, logger),
	}
}

func (app *Application) setupServer() {
	router := server.NewRouter(app.handlers, server.RouterOptions{
		Metrics:        app.telemetry.Metrics,
		RequestTimeout: app.config.Server.RequestTimeout,
	}, app.logger.Logger())

	app.server = server.New(app.config.Server, router, app.logger.Logger())
	app.logger.Get().Debug("http server configured", "addr", app.server.Addr())
}
