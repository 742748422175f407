package bot

import (
	"context"
	"strconv"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
)

// loadHistory wipes the history store and reloads every known channel's
// archive. Any contract violation by the service is fatal.
func (e *Engine) loadHistory(ctx context.Context, id *Identity) error {
	if err := e.history.DeleteAll(ctx); err != nil {
		return fatalf("clearing history: %w", err)
	}
	e.logger.Info("history cleared")

	total := 0
	for _, channelID := range id.ChannelIDs() {
		n, err := e.loadChannelHistory(ctx, id, channelID)
		if err != nil {
			return err
		}
		total += n
		e.logger.Info("channel history loaded", "channel_id", channelID, "messages", n, "total", total)
	}
	return nil
}

// loadChannelHistory pages forward from the oldest watermark until the
// service reports no more pages. Returns the number of messages seen.
func (e *Engine) loadChannelHistory(ctx context.Context, id *Identity, channelID string) (int, error) {
	channel, err := id.ChannelName(channelID)
	if err != nil {
		return 0, fatalf("loading history: %w", err)
	}

	oldest := "0"
	seen := 0
	for {
		page, err := e.api.History(ctx, channelID, oldest)
		if err != nil {
			return seen, fatalf("fetching history for %s (oldest %s): %w", channel, oldest, err)
		}

		var (
			batch     []*entity.HistoryMessage
			maxTS     float64
			watermark string
		)
		for _, m := range page.Messages {
			ts, err := strconv.ParseFloat(m.TS(), 64)
			if err != nil {
				return seen, fatalf("message in %s has invalid ts %q: %+v", channel, m.TS(), m)
			}
			if ts > maxTS {
				maxTS = ts
				watermark = m.TS()
			}

			if !entity.IsMessage(m, false) {
				continue
			}
			if m.User == nil {
				return seen, fatalf("message in %s at %s has no user: %+v", channel, m.TS(), m)
			}
			user, err := id.UserName(*m.User)
			if err != nil {
				return seen, fatalf("message in %s at %s: %w", channel, m.TS(), err)
			}
			if e.shouldStore(user, channel, m.Text) {
				batch = append(batch, entity.NewHistoryMessage(user, channel, m.Text, m.TS()))
			}
		}

		if len(batch) > 0 {
			if err := e.history.SaveBatch(ctx, batch); err != nil {
				return seen, fatalf("storing history for %s: %w", channel, err)
			}
			e.metrics.RecordHistoryStored(ctx, len(batch))
		}
		seen += len(page.Messages)

		if !page.HasMore {
			return seen, nil
		}
		if watermark == "" {
			return seen, fatalf("history for %s reports more pages but returned no messages", channel)
		}
		oldest = watermark
	}
}
