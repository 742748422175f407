package app

import (
	"context"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/slack"
	"github.com/qj0r9j0vc2/rtm-bot/internal/plugins/oncall"
	"github.com/qj0r9j0vc2/rtm-bot/internal/plugins/reactor"
	"github.com/qj0r9j0vc2/rtm-bot/internal/plugins/wordcloud"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

var _ bot.Dialer = rtmDialer{}

// rtmDialer adapts the RTM transport to the engine's Dialer port.
type rtmDialer struct {
	dialer *slack.RTMDialer
}

func (d rtmDialer) Dial(ctx context.Context, url string) (bot.Conn, error) {
	conn, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (app *Application) initializeEngine() error {
	sc := app.config.Slack

	app.engine = bot.NewEngine(
		bot.Config{
			Name:                 sc.BotName,
			Alert:                sc.Alert,
			LoadHistory:          sc.LoadHistory,
			DirectWorkers:        sc.DMWorkers,
			RetryInitialInterval: sc.RetryInitialInterval,
			RetryMaxInterval:     sc.RetryMaxInterval,
		},
		app.clients.Slack,
		rtmDialer{app.clients.RTM},
		grammar.NewRouter(sc.Alert),
		app.history,
		&slogAdapter{logger: app.logger.Logger()},
		bot.WithRecorder(app.telemetry.Metrics),
	)

	plugins := app.plugins()
	if err := bot.Install(app.engine, plugins...); err != nil {
		return err
	}

	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name()
	}
	app.logger.Get().Info("plugins installed", "plugins", names)
	return nil
}

func (app *Application) plugins() []bot.Plugin {
	pc := app.config.Plugins
	var plugins []bot.Plugin

	if pc.WordCloud.Enabled {
		plugins = append(plugins, wordcloud.New(wordcloud.Config{
			Words:           pc.WordCloud.Words,
			UploadThreshold: pc.WordCloud.UploadThreshold,
			Stopwords:       pc.WordCloud.Stopwords,
		}))
	}
	if pc.OnCall.Enabled && app.clients.PagerDuty != nil {
		plugins = append(plugins, oncall.New(app.clients.PagerDuty, app.config.PagerDuty.ScheduleIDs))
	}
	if pc.Reactor.Enabled {
		rules := make([]reactor.Rule, len(pc.Reactor.Rules))
		for i, r := range pc.Reactor.Rules {
			rules[i] = reactor.Rule{Keyword: r.Keyword, Emoji: r.Emoji}
		}
		plugins = append(plugins, reactor.New(rules))
	}
	return plugins
}
