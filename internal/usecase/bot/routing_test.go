package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
)

type call struct {
	user    string
	channel string
	value   string
}

func registerEcho(e *Engine, channels []string, calls *[]call) {
	e.AddCommand(CommandSpec{
		Name:     "echo",
		Expr:     grammar.Seq(grammar.Literal("echo"), grammar.Capture("word", grammar.Word)),
		Help:     "Echo a word",
		Channels: channels,
	}, func(_ context.Context, user, channel string, parsed grammar.Fields) (Command, error) {
		*calls = append(*calls, call{user: user, channel: channel, value: parsed.Get("word")})
		return Send{Channel: channel, User: user, Text: parsed.Get("word")}, nil
	})
}

func TestRouting_ChannelCommand(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})
	var calls []call
	registerEcho(e, nil, &calls)

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: "U1", Text: "!echo hi", Timestamp: "1.0"})

	assert.Equal(t, []call{{user: "alice", channel: "general", value: "hi"}}, calls)
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "C1", sent[0].Channel)
	assert.Equal(t, "hi", sent[0].Text)
}

func TestRouting_DirectMessageNeedsNoAlert(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})
	var calls []call
	registerEcho(e, []string{"random"}, &calls)

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "D1", User: "U1", Text: "echo hi", Timestamp: "1.0"})

	assert.Equal(t, []call{{user: "alice", channel: "", value: "hi"}}, calls, "DMs bypass channel restrictions")
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "D1", sent[0].Channel)
}

func TestRouting_DirectMessageWithoutMatchGetsHelp(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "unparseable", text: "what can you do"},
		{name: "unparseable with alert", text: "!nope"},
		{name: "grammar match without handler", text: "orphan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})
			var calls []call
			registerEcho(e, nil, &calls)
			e.grammar.Add("orphan", grammar.Literal("orphan"), 0)

			e.dispatch(context.Background(), entity.MessageEvent{Channel: "D2", User: "U2", Text: tt.text, Timestamp: "1.0"})

			assert.Empty(t, calls)
			sent := conn.Sent()
			require.Len(t, sent, 1, "exactly one help reply")
			assert.Equal(t, "D2", sent[0].Channel)
			assert.Equal(t, e.HelpMessage(), sent[0].Text)
		})
	}
}

func TestRouting_RestrictedCommandOutsideAllowList(t *testing.T) {
	hist := &fakeHistory{}
	e, conn := newConnectedEngine(t, testAPI(), hist)
	var calls []call
	registerEcho(e, []string{"random"}, &calls)

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: "U1", Text: "!echo hi", Timestamp: "1.0"})

	assert.Empty(t, calls)
	assert.Empty(t, conn.Sent())
	assert.Empty(t, hist.Saved(), "commands are never stored")

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C2", User: "U1", Text: "!echo hi", Timestamp: "2.0"})
	assert.Len(t, calls, 1)
}

func TestRouting_UnmatchedChannelCommandIsSilent(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: "U1", Text: "!what", Timestamp: "1.0"})

	assert.Empty(t, conn.Sent())
}

func TestRouting_ListenersRunInOrderThenStore(t *testing.T) {
	hist := &fakeHistory{}
	e, _ := newConnectedEngine(t, testAPI(), hist)

	var order []string
	listener := func(name string) ListenerFunc {
		return func(_ context.Context, user, channel, text string) (Command, error) {
			order = append(order, name+":"+user+":"+channel+":"+text)
			return nil, nil
		}
	}
	e.AddListener(ListenerSpec{Name: "first"}, listener("first"))
	e.AddListener(ListenerSpec{Name: "restricted", Channels: []string{"random"}}, listener("restricted"))
	e.AddListener(ListenerSpec{Name: "failing"}, func(context.Context, string, string, string) (Command, error) {
		order = append(order, "failing")
		return nil, errors.New("boom")
	})
	e.AddListener(ListenerSpec{Name: "last"}, listener("last"))

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: "U1", Text: "hello all", Timestamp: "1500000000.000100"})

	assert.Equal(t, []string{"first:alice:general:hello all", "failing", "last:alice:general:hello all"}, order)

	saved := hist.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "alice", saved[0].User)
	assert.Equal(t, "general", saved[0].Channel)
	assert.Equal(t, "hello all", saved[0].Text)
	assert.Equal(t, "1500000000.000100", saved[0].Timestamp)
}

func TestRouting_ListenerInDirectMessage(t *testing.T) {
	hist := &fakeHistory{}
	e, _ := newConnectedEngine(t, testAPI(), hist)

	var ran []string
	e.AddListener(ListenerSpec{Name: "restricted", Channels: []string{"random"}}, func(_ context.Context, user, channel, _ string) (Command, error) {
		ran = append(ran, user+"|"+channel)
		return nil, nil
	})

	// DMs are always bot-directed, so listeners only see them through the
	// command path; a DM never reaches the listeners.
	e.dispatch(context.Background(), entity.MessageEvent{Channel: "D1", User: "U1", Text: "hi", Timestamp: "1.0"})
	assert.Empty(t, ran)
	assert.Empty(t, hist.Saved())
}

func TestRouting_ListenerReactsToTrigger(t *testing.T) {
	api := testAPI()
	e, _ := newConnectedEngine(t, api, &fakeHistory{})

	e.AddListener(ListenerSpec{Name: "reactor"}, func(context.Context, string, string, string) (Command, error) {
		return React{Emoji: "wave"}, nil
	})

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C2", User: "U2", Text: "hello", Timestamp: "7.5"})

	require.Len(t, api.reactions, 1)
	assert.Equal(t, reaction{emoji: "wave", channel: "C2", timestamp: "7.5"}, api.reactions[0])
}

func TestRouting_StorageRule(t *testing.T) {
	tests := []struct {
		name  string
		user  string
		text  string
		store bool
	}{
		{name: "conversation", user: "U1", text: "nice weather", store: true},
		{name: "authored by bot", user: "UBOT", text: "nice weather", store: false},
		{name: "alert prefixed", user: "U1", text: "!nope", store: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &fakeHistory{}
			e, _ := newConnectedEngine(t, testAPI(), hist)

			e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: tt.user, Text: tt.text, Timestamp: "3.0"})

			if tt.store {
				assert.Len(t, hist.Saved(), 1)
			} else {
				assert.Empty(t, hist.Saved())
			}
		})
	}
}

func TestRouting_UnknownIdentityIsDropped(t *testing.T) {
	hist := &fakeHistory{}
	e, conn := newConnectedEngine(t, testAPI(), hist)

	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C1", User: "U404", Text: "hi", Timestamp: "1.0"})
	e.dispatch(context.Background(), entity.MessageEvent{Channel: "C404", User: "U1", Text: "hi", Timestamp: "1.0"})

	assert.Empty(t, hist.Saved())
	assert.Empty(t, conn.Sent())
}

func TestDispatch_JoinEventsExtendIdentity(t *testing.T) {
	api := testAPI()
	api.direct["U9"] = "D9"
	e, _ := newConnectedEngine(t, api, &fakeHistory{})

	e.dispatch(context.Background(), entity.GroupJoinedEvent{ChannelID: "G7", ChannelName: "war-room"})
	e.dispatch(context.Background(), entity.TeamJoinEvent{UserID: "U9", UserName: "newbie"})
	e.dispatch(context.Background(), entity.IgnoredEvent{Type: "presence_change"})

	id := e.Identity()
	cid, err := id.ChannelID("war-room")
	require.NoError(t, err)
	assert.Equal(t, "G7", cid)

	uid, err := id.UserID("newbie")
	require.NoError(t, err)
	assert.Equal(t, "U9", uid)

	dm, err := id.DirectChannel("newbie")
	require.NoError(t, err)
	assert.Equal(t, "D9", dm)
}
