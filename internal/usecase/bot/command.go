package bot

import (
	"context"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

// Command is a deferred side effect returned by handlers. A nil Command means
// no action. Variants: Send, Upload, React, Query, Generate and Sequence.
type Command interface {
	kind() string
}

// Send posts Text to Channel, or to User's direct message channel when
// Channel is empty. Channel and User are names.
type Send struct {
	Channel string
	User    string
	Text    string
}

// Upload uploads the local file at Path to Channel, or to User's direct
// message channel when Channel is empty. Delete removes the file afterwards.
type Upload struct {
	Channel string
	User    string
	Path    string
	Delete  bool
}

// React adds Emoji to the triggering message.
type React struct {
	Emoji string
}

// Query reads the history store and passes the result to Then, whose return
// value is the follow-up command.
type Query struct {
	Filter repository.HistoryFilter
	Then   func(ctx context.Context, msgs []*entity.HistoryMessage) (Command, error)
}

// Generate runs an arbitrary step and returns its follow-up.
type Generate func(ctx context.Context) (Command, error)

// Sequence runs each element in order. It never yields a follow-up itself.
type Sequence []Command

func (Send) kind() string { return "send" }
func (Upload) kind() string { return "upload" }
func (React) kind() string { return "react" }
func (Query) kind() string { return "query" }
func (Generate) kind() string { return "generate" }
func (Sequence) kind() string { return "sequence" }

// Seq is shorthand for building a Sequence, dropping nil entries.
func Seq(cmds ...Command) Command {
	out := make(Sequence, 0, len(cmds))
	for _, c := range cmds {
		if c != nil {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
