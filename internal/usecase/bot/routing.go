package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
)

// dispatch routes one classified event.
func (e *Engine) dispatch(ctx context.Context, ev entity.Event) {
	e.metrics.RecordEvent(ctx, ev.Kind())

	switch v := ev.(type) {
	case entity.MessageEvent:
		e.handleMessage(ctx, v)

	case entity.GroupJoinedEvent:
		e.Identity().AddChannel(v.ChannelName, v.ChannelID)
		e.logger.Info("joined group", "channel", v.ChannelName, "channel_id", v.ChannelID)

	case entity.TeamJoinEvent:
		id := e.Identity()
		id.AddUser(v.UserName, v.UserID)
		e.logger.Info("user joined team", "user", v.UserName, "user_id", v.UserID)

		channelID, err := e.api.OpenDirectChannel(ctx, v.UserID)
		if err != nil {
			e.logger.Debug("no direct channel for new user", "user", v.UserName, "error", err)
			return
		}
		id.SetDirectChannel(v.UserName, channelID)

	case entity.IgnoredEvent:
		e.logger.Debug("ignoring event", "type", v.Type, "reason", v.Reason)
	}
}

func (e *Engine) handleMessage(ctx context.Context, ev entity.MessageEvent) {
	id := e.Identity()

	user, err := id.UserName(ev.User)
	if err != nil {
		e.logger.Warn("dropping message from unknown user", "user_id", ev.User, "channel_id", ev.Channel)
		return
	}

	direct := ev.IsDirect()
	channel := ""
	if !direct {
		channel, err = id.ChannelName(ev.Channel)
		if err != nil {
			e.logger.Warn("dropping message in unknown channel", "user", user, "channel_id", ev.Channel)
			return
		}
	}

	if direct || strings.HasPrefix(ev.Text, e.cfg.Alert) {
		e.Drain(ctx, e.routeCommand(ctx, user, channel, direct, ev.Text), &ev)
		return
	}

	for _, l := range e.handlers.Listeners() {
		if !direct && !l.Allows(channel) {
			continue
		}
		start := time.Now()
		cmd, err := l.fn(ctx, user, channel, ev.Text)
		e.metrics.RecordHandler(ctx, l.Name, time.Since(start))
		if err != nil {
			e.logger.Error("listener failed", "listener", l.Name, "user", user, "channel", channel, "error", err)
			continue
		}
		e.Drain(ctx, cmd, &ev)
	}

	if e.shouldStore(user, channel, ev.Text) {
		msg := entity.NewHistoryMessage(user, channel, ev.Text, ev.Timestamp)
		if err := e.history.Save(ctx, msg); err != nil {
			e.logger.Error("failed to store message", "user", user, "channel", channel, "error", err)
			return
		}
		e.metrics.RecordHistoryStored(ctx, 1)
	}
}

// routeCommand parses a bot-directed message and returns the command to run.
// Direct messages that match nothing get the help listing; matches outside
// the handler's allowed channels yield nothing.
func (e *Engine) routeCommand(ctx context.Context, user, channel string, direct bool, text string) Command {
	var (
		handler Handler
		matched bool
		fields  grammar.Fields
	)

	res, err := e.grammar.Parse(text, direct)
	switch {
	case err == nil:
		handler, matched = e.handlers.Handler(res.Name)
		fields = res.Fields
	case !errors.Is(err, grammar.ErrNoMatch):
		e.logger.Warn("parse failed", "user", user, "error", err)
	}

	switch {
	case direct && !matched:
		return Send{User: user, Text: e.handlers.HelpMessage()}

	case matched && (direct || handler.Allows(channel)):
		start := time.Now()
		cmd, err := handler.fn(ctx, user, channel, fields)
		e.metrics.RecordHandler(ctx, handler.Name, time.Since(start))
		if err != nil {
			e.logger.Error("handler failed", "handler", handler.Name, "user", user, "channel", channel, "error", err)
			return nil
		}
		return cmd

	default:
		return nil
	}
}

// shouldStore applies the history storage rule: conversational messages in
// named channels, not authored by the bot and not addressed to it.
func (e *Engine) shouldStore(user, channel, text string) bool {
	if user == e.Name() || text == "" || channel == "" {
		return false
	}
	return !strings.HasPrefix(text, e.cfg.Alert)
}
