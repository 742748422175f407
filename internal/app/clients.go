package app

import (
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/pagerduty"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/slack"
)

// Clients holds all external integration clients
type Clients struct {
	Slack     *slack.Client
	RTM       *slack.RTMDialer
	PagerDuty *pagerduty.Client
}

func (app *Application) initializeClients() {
	logger := &slogAdapter{logger: app.logger.Logger()}
	sc := app.config.Slack

	app.clients = &Clients{
		Slack: slack.NewClient(slack.ClientConfig{
			Token:              sc.BotToken,
			APIURL:             sc.APIURL,
			Timeout:            sc.RequestTimeout,
			Debug:              sc.Debug,
			BreakerMaxFailures: sc.BreakerMaxFailures,
			BreakerTimeout:     sc.BreakerTimeout,
		}, logger),
		RTM: slack.NewRTMDialer(slack.RTMConfig{
			HandshakeTimeout: sc.RequestTimeout,
			WriteTimeout:     sc.RequestTimeout,
			PingInterval:     sc.PingInterval,
			SendRate:         sc.SendRate,
			SendBurst:        sc.SendBurst,
		}, logger),
	}

	if app.config.IsPagerDutyEnabled() {
		app.clients.PagerDuty = pagerduty.NewClient(
			app.config.PagerDuty.APIToken,
			app.config.PagerDuty.APIURL,
			pagerduty.DefaultRetryPolicy(),
		)
		app.logger.Get().Info("PagerDuty integration enabled",
			"schedules", len(app.config.PagerDuty.ScheduleIDs),
		)
	}
}
