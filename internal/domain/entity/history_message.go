package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HistoryMessage is a conversational message kept in the history store.
type HistoryMessage struct {
	ID string

	// Names, not IDs
	User    string
	Channel string

	Text string

	// Timestamp is the service's "ts" value, kept verbatim.
	Timestamp string
	PostedAt  time.Time

	CreatedAt time.Time
}

// NewHistoryMessage creates a history record. An unparseable timestamp leaves
// PostedAt zero.
func NewHistoryMessage(user, channel, text, ts string) *HistoryMessage {
	postedAt, _ := ParseTimestamp(ts)
	return &HistoryMessage{
		ID:        uuid.New().String(),
		User:      user,
		Channel:   channel,
		Text:      text,
		Timestamp: ts,
		PostedAt:  postedAt,
		CreatedAt: time.Now().UTC(),
	}
}

// ParseTimestamp converts a "seconds.micros" timestamp string to time.Time.
func ParseTimestamp(ts string) (time.Time, error) {
	secPart, fracPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	var nanos int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		frac, err := strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		for i := len(fracPart); i < 9; i++ {
			frac *= 10
		}
		nanos = int64(frac)
	}

	return time.Unix(sec, nanos).UTC(), nil
}
