package app

import (
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/observability"
)

// setupTelemetry initializes the OpenTelemetry meter provider.
func (app *Application) setupTelemetry() error {
	telemetry, err := observability.NewTelemetry(observability.ServiceName, Version)
	if err != nil {
		return err
	}

	app.telemetry = telemetry

	app.logger.Get().Info("telemetry initialized",
		"service", observability.ServiceName,
		"version", Version,
	)

	return nil
}
