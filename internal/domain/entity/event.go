package entity

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// EventKind identifies the variant of an inbound Event.
type EventKind string

const (
	EventKindMessage     EventKind = "message"
	EventKindGroupJoined EventKind = "group_joined"
	EventKindTeamJoin    EventKind = "team_join"
	EventKindIgnored     EventKind = "ignored"
)

// Event is an inbound record from the streaming connection, validated once at
// the transport boundary. Variants: MessageEvent, GroupJoinedEvent,
// TeamJoinEvent and IgnoredEvent.
type Event interface {
	Kind() EventKind
}

// MessageEvent is a regular chat message (see IsMessage).
type MessageEvent struct {
	Channel   string
	User      string
	Text      string
	Timestamp string
}

func (MessageEvent) Kind() EventKind { return EventKindMessage }

// IsDirect reports whether the message was posted in a direct message channel.
func (e MessageEvent) IsDirect() bool {
	return IsDirectChannelID(e.Channel)
}

// GroupJoinedEvent is emitted when the bot is added to a private group.
type GroupJoinedEvent struct {
	ChannelID   string
	ChannelName string
}

func (GroupJoinedEvent) Kind() EventKind { return EventKindGroupJoined }

// TeamJoinEvent is emitted when a new user joins the team.
type TeamJoinEvent struct {
	UserID   string
	UserName string
}

func (TeamJoinEvent) Kind() EventKind { return EventKindTeamJoin }

// IgnoredEvent covers every record the engine does not act on: unknown types,
// system and echo messages, and malformed shapes.
type IgnoredEvent struct {
	Type   string
	Reason string
}

func (IgnoredEvent) Kind() EventKind { return EventKindIgnored }

// RawMessage is the wire shape of a "message" record. Pointer and raw fields
// keep track of presence, which matters for classification.
type RawMessage struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	User      *string         `json:"user,omitempty"`
	Text      string          `json:"text,omitempty"`
	Timestamp *string         `json:"ts,omitempty"`
	Subtype   json.RawMessage `json:"subtype,omitempty"`
	ReplyTo   json.RawMessage `json:"reply_to,omitempty"`
}

// UserID returns the author ID or "" when absent.
func (m RawMessage) UserID() string {
	if m.User == nil {
		return ""
	}
	return *m.User
}

// TS returns the message timestamp or "" when absent.
func (m RawMessage) TS() string {
	if m.Timestamp == nil {
		return ""
	}
	return *m.Timestamp
}

// IsMessage reports whether m is a regular message: type "message", non-blank
// text, no subtype and no reply marker. When requireChannel is set the record
// must also carry a channel; history records omit it.
func IsMessage(m RawMessage, requireChannel bool) bool {
	if m.Type != string(EventKindMessage) {
		return false
	}
	if requireChannel && m.Channel == "" {
		return false
	}
	if m.Subtype != nil || m.ReplyTo != nil {
		return false
	}
	// Zero length messages are possible via slash commands such as /giphy.
	return strings.TrimSpace(m.Text) != ""
}

// DecodeEvent turns one streaming frame into an Event. Only invalid JSON is an
// error; unknown or incomplete records become IgnoredEvent.
func DecodeEvent(data []byte) (Event, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding event: %w", err)
	}

	switch EventKind(probe.Type) {
	case EventKindMessage:
		var m RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return IgnoredEvent{Type: probe.Type, Reason: "malformed message"}, nil
		}
		if !IsMessage(m, true) {
			return IgnoredEvent{Type: probe.Type, Reason: "not a regular message"}, nil
		}
		if m.UserID() == "" || m.TS() == "" {
			return IgnoredEvent{Type: probe.Type, Reason: "message without user or ts"}, nil
		}
		return MessageEvent{
			Channel:   m.Channel,
			User:      m.UserID(),
			Text:      m.Text,
			Timestamp: m.TS(),
		}, nil

	case EventKindGroupJoined:
		var g struct {
			Channel struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"channel"`
		}
		if err := json.Unmarshal(data, &g); err != nil || g.Channel.ID == "" || g.Channel.Name == "" {
			return IgnoredEvent{Type: probe.Type, Reason: "malformed group_joined"}, nil
		}
		return GroupJoinedEvent{ChannelID: g.Channel.ID, ChannelName: g.Channel.Name}, nil

	case EventKindTeamJoin:
		var tj struct {
			User struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"user"`
		}
		if err := json.Unmarshal(data, &tj); err != nil || tj.User.ID == "" || tj.User.Name == "" {
			return IgnoredEvent{Type: probe.Type, Reason: "malformed team_join"}, nil
		}
		return TeamJoinEvent{UserID: tj.User.ID, UserName: tj.User.Name}, nil

	default:
		return IgnoredEvent{Type: probe.Type, Reason: "unhandled type"}, nil
	}
}

// IsDirectChannelID reports whether id denotes a direct message channel.
func IsDirectChannelID(id string) bool {
	return strings.HasPrefix(id, "D")
}

// IsPublicChannelID reports whether id denotes a public channel. Everything
// else that is not a DM is a private group.
func IsPublicChannelID(id string) bool {
	return strings.HasPrefix(id, "C")
}
