package bot

import (
	"context"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
)

// Logger defines the contract for logging within the engine.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// API is the REST surface of the messaging service.
type API interface {
	// Connect establishes a session and returns the streaming URL with the
	// user, channel and group listings.
	// Errors not marked transient are treated as fatal.
	Connect(ctx context.Context) (*entity.Session, error)

	// OpenDirectChannel returns the DM channel ID for a user.
	// Returns an error wrapping domainerrors.ErrCannotDM for users that
	// cannot receive direct messages.
	OpenDirectChannel(ctx context.Context, userID string) (string, error)

	// AddReaction reacts to the message at timestamp in channelID.
	AddReaction(ctx context.Context, emoji, channelID, timestamp string) error

	// UploadFile uploads a local file to channelID.
	UploadFile(ctx context.Context, path, filename, channelID string) error

	// History returns one page of channelID's archive, strictly newer than oldest.
	// A response without a pagination marker is an error.
	History(ctx context.Context, channelID, oldest string) (*entity.HistoryPage, error)
}

// Dialer opens streaming connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an open streaming connection.
type Conn interface {
	// ReadEvent blocks until the next event arrives.
	// Returns domainerrors.ErrConnectionClosed when the remote end closes.
	ReadEvent(ctx context.Context) (entity.Event, error)

	// Send writes an outbound message envelope.
	Send(ctx context.Context, msg entity.OutboundMessage) error

	Close() error
}

// Grammar parses command text into named results.
type Grammar interface {
	Add(name string, expr grammar.Expr, priority int)
	Parse(text string, direct bool) (grammar.Result, error)
}

// Recorder receives engine metrics.
type Recorder interface {
	RecordEvent(ctx context.Context, kind entity.EventKind)
	RecordCommand(ctx context.Context, kind string, err error)
	RecordHandler(ctx context.Context, name string, elapsed time.Duration)
	RecordReconnect(ctx context.Context)
	RecordHistoryStored(ctx context.Context, n int)
}

type noopRecorder struct{}

func (noopRecorder) RecordEvent(context.Context, entity.EventKind) {}
func (noopRecorder) RecordCommand(context.Context, string, error) {}
func (noopRecorder) RecordHandler(context.Context, string, time.Duration) {}
func (noopRecorder) RecordReconnect(context.Context) {}
func (noopRecorder) RecordHistoryStored(context.Context, int) {}
