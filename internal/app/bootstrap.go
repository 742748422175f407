package app

import (
	"fmt"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

func (app *Application) bootstrap() error {
	// 1. Load configuration
	cfg, err := config.Load(app.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	app.config = cfg

	// 2. Setup logger
	if err := app.setupLogger(); err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	// 3. Setup telemetry (OpenTelemetry)
	if err := app.setupTelemetry(); err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	// 4. Setup config manager with reload callback
	app.setupConfigManager()

	// 5. Initialize storage layer
	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	// 6. Initialize infrastructure clients
	app.initializeClients()

	// 7. Build the engine and install plugins
	if err := app.initializeEngine(); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	// 8. Initialize HTTP handlers
	app.initializeHandlers()

	// 9. Setup HTTP server
	app.setupServer()

	return nil
}

func (app *Application) setupLogger() error {
	logger, err := NewAtomicLogger(app.config.Logging)
	if err != nil {
		return err
	}
	app.logger = logger

	app.logger.Get().Info("configuration loaded",
		"path", app.configPath,
		"storage_type", app.config.Storage.Type,
		"pagerduty_enabled", app.config.IsPagerDutyEnabled(),
		"server_port", app.config.Server.Port,
	)
	return nil
}

func (app *Application) setupConfigManager() {
	app.configManager = config.NewManager(app.configPath, app.config, app.logger.Logger())
	app.configManager.Subscribe(func(cfg *config.Config) {
		app.logger.Apply(cfg.Logging)
		app.logger.Get().Info("logging reconfigured",
			"level", cfg.Logging.Level,
			"format", cfg.Logging.Format,
		)
	})
}
