package bot

import (
	"context"
	"fmt"
	"os"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

// Drain executes cmd and every follow-up it yields until the chain ends.
// Sequence elements are drained depth first, each to completion before the
// next starts. trigger is the message that produced cmd, nil for preloaded
// commands. A failing step is logged and ends its own chain only.
func (e *Engine) Drain(ctx context.Context, cmd Command, trigger *entity.MessageEvent) {
	for cmd != nil {
		if seq, ok := cmd.(Sequence); ok {
			for _, sub := range seq {
				e.Drain(ctx, sub, trigger)
			}
			return
		}

		next, err := e.execute(ctx, cmd, trigger)
		e.metrics.RecordCommand(ctx, cmd.kind(), err)
		if err != nil {
			e.logger.Error("command failed",
				"command", cmd.kind(),
				"error", err,
			)
			return
		}
		cmd = next
	}
}

func (e *Engine) execute(ctx context.Context, cmd Command, trigger *entity.MessageEvent) (Command, error) {
	switch c := cmd.(type) {
	case Send:
		channelID, err := e.resolveTarget(c.Channel, c.User)
		if err != nil {
			return nil, err
		}
		return nil, e.send(ctx, channelID, c.Text)

	case Upload:
		return nil, e.upload(ctx, c)

	case React:
		if trigger == nil {
			return nil, fmt.Errorf("react %q: %w", c.Emoji, ErrNoTrigger)
		}
		if err := e.api.AddReaction(ctx, c.Emoji, trigger.Channel, trigger.Timestamp); err != nil {
			return nil, fmt.Errorf("adding reaction %q: %w", c.Emoji, err)
		}
		return nil, nil

	case Query:
		msgs, err := e.history.Find(ctx, e.namedFilter(c.Filter))
		if err != nil {
			return nil, fmt.Errorf("querying history: %w", err)
		}
		if c.Then == nil {
			return nil, nil
		}
		return c.Then(ctx, msgs)

	case Generate:
		if c == nil {
			return nil, nil
		}
		return c(ctx)

	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}
}

// namedFilter rewrites user and channel IDs, as captured from bare mentions,
// to the names history is stored under. Unknown values pass through.
func (e *Engine) namedFilter(f repository.HistoryFilter) repository.HistoryFilter {
	id := e.Identity()
	if id == nil {
		return f
	}
	if f.User != "" {
		if name, err := id.UserName(f.User); err == nil {
			f.User = name
		}
	}
	if f.Channel != "" {
		if name, err := id.ChannelName(f.Channel); err == nil {
			f.Channel = name
		}
	}
	return f
}

// resolveTarget returns the channel ID for a channel name, or the user's DM
// channel when channel is empty.
func (e *Engine) resolveTarget(channel, user string) (string, error) {
	id := e.Identity()
	if channel != "" {
		return id.ChannelID(channel)
	}
	return id.DirectChannel(user)
}

func (e *Engine) send(ctx context.Context, channelID, text string) error {
	if e.conn == nil {
		return ErrNotConnected
	}
	msg := entity.OutboundMessage{
		ID:      e.nextMessageID,
		Type:    "message",
		Channel: channelID,
		Text:    text,
	}
	e.nextMessageID++

	e.logger.Debug("sending message", "channel", channelID, "id", msg.ID)
	if err := e.conn.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

func (e *Engine) upload(ctx context.Context, c Upload) error {
	if c.Delete {
		defer func() {
			if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
				e.logger.Warn("failed to remove uploaded file", "path", c.Path, "error", err)
			}
		}()
	}

	channelID, err := e.resolveTarget(c.Channel, c.User)
	if err != nil {
		return err
	}
	if err := e.api.UploadFile(ctx, c.Path, e.Name()+" upload", channelID); err != nil {
		return fmt.Errorf("uploading %s: %w", c.Path, err)
	}
	return nil
}
