package repository

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
)

// HistoryFilter narrows a history query. Zero fields match everything.
type HistoryFilter struct {
	// Channel name
	Channel string

	// User name
	User string

	// Since excludes messages posted before it.
	Since time.Time

	// Limit caps the number of results; 0 means no cap.
	Limit int
}

// HistoryRepository is the conversational message store.
// Implementations must be safe for concurrent use.
type HistoryRepository interface {
	// Save persists a message.
	// Returns ErrAlreadyExists if a message with the same ID exists.
	Save(ctx context.Context, msg *entity.HistoryMessage) error

	// SaveBatch persists messages in a single transaction where supported.
	SaveBatch(ctx context.Context, msgs []*entity.HistoryMessage) error

	// Find returns messages matching the filter, oldest first.
	// Returns empty slice if none found.
	Find(ctx context.Context, filter HistoryFilter) ([]*entity.HistoryMessage, error)

	// Count returns the number of messages matching the filter.
	Count(ctx context.Context, filter HistoryFilter) (int, error)

	// DeleteAll clears the store.
	DeleteAll(ctx context.Context) error
}

// Matches reports whether msg satisfies the filter's predicates, ignoring Limit.
func (f HistoryFilter) Matches(msg *entity.HistoryMessage) bool {
	if f.Channel != "" && msg.Channel != f.Channel {
		return false
	}
	if f.User != "" && msg.User != f.User {
		return false
	}
	if !f.Since.IsZero() && msg.PostedAt.Before(f.Since) {
		return false
	}
	return true
}
