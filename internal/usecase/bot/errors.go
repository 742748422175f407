package bot

import (
	"errors"
	"fmt"
)

var (
	// ErrFatal wraps every condition the engine cannot safely continue from.
	ErrFatal = errors.New("fatal")

	// ErrNotFound is returned by identity lookups for unknown names or IDs.
	ErrNotFound = errors.New("not found")

	// ErrNoDirectChannel is returned for users that cannot receive direct messages.
	ErrNoDirectChannel = errors.New("no direct message channel")

	// ErrNotConnected is returned when sending without an open connection.
	ErrNotConnected = errors.New("not connected")

	// ErrNoTrigger is returned when a command needs a triggering event and has none.
	ErrNoTrigger = errors.New("command has no triggering event")
)

func fatalf(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrFatal, fmt.Errorf(format, args...))
}
