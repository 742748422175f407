package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

func TestDrain_NestedSequenceOrder(t *testing.T) {
	e, _ := newConnectedEngine(t, testAPI(), &fakeHistory{})

	var order []string
	cmd := Sequence{
		step(&order, "A", step(&order, "A1", nil)),
		Sequence{
			step(&order, "B", nil),
			step(&order, "C", step(&order, "C1", step(&order, "C2", nil))),
		},
		step(&order, "D", nil),
	}

	e.Drain(context.Background(), cmd, nil)

	assert.Equal(t, []string{"A", "A1", "B", "C", "C1", "C2", "D"}, order)
}

func TestDrain_FollowUpChain(t *testing.T) {
	e, _ := newConnectedEngine(t, testAPI(), &fakeHistory{})

	var order []string
	e.Drain(context.Background(), step(&order, "A", step(&order, "B", nil)), nil)

	assert.Equal(t, []string{"A", "B"}, order)
}

func TestDrain_NilAndEmpty(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})

	e.Drain(context.Background(), nil, nil)
	e.Drain(context.Background(), Sequence{}, nil)
	e.Drain(context.Background(), Generate(nil), nil)

	assert.Empty(t, conn.Sent())
	assert.Nil(t, Seq(nil, nil))
}

func TestDrain_ErrorEndsOnlyItsChain(t *testing.T) {
	e, _ := newConnectedEngine(t, testAPI(), &fakeHistory{})

	var order []string
	failing := Generate(func(context.Context) (Command, error) {
		order = append(order, "fail")
		return step(&order, "never", nil), errors.New("boom")
	})

	e.Drain(context.Background(), Sequence{failing, step(&order, "next", nil)}, nil)

	assert.Equal(t, []string{"fail", "next"}, order)
}

func TestExecute_Send(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})

	e.Drain(context.Background(), Seq(
		Send{Channel: "general", Text: "hello"},
		Send{User: "alice", Text: "psst"},
	), nil)

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, entity.OutboundMessage{ID: 0, Type: "message", Channel: "C1", Text: "hello"}, sent[0])
	assert.Equal(t, entity.OutboundMessage{ID: 1, Type: "message", Channel: "D1", Text: "psst"}, sent[1])
}

func TestExecute_SendUnknownTarget(t *testing.T) {
	e, conn := newConnectedEngine(t, testAPI(), &fakeHistory{})

	_, err := e.execute(context.Background(), Send{Channel: "nope", Text: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.execute(context.Background(), Send{User: "cloudbot", Text: "x"}, nil)
	assert.ErrorIs(t, err, ErrNoDirectChannel)

	assert.Empty(t, conn.Sent())
}

func TestExecute_SendNotConnected(t *testing.T) {
	e, _ := newConnectedEngine(t, testAPI(), &fakeHistory{})
	e.conn = nil

	_, err := e.execute(context.Background(), Send{Channel: "general", Text: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestExecute_React(t *testing.T) {
	api := testAPI()
	e, _ := newConnectedEngine(t, api, &fakeHistory{})

	trigger := &entity.MessageEvent{Channel: "C1", User: "U1", Text: "yay", Timestamp: "1.000001"}
	e.Drain(context.Background(), React{Emoji: "tada"}, trigger)

	require.Len(t, api.reactions, 1)
	assert.Equal(t, reaction{emoji: "tada", channel: "C1", timestamp: "1.000001"}, api.reactions[0])

	_, err := e.execute(context.Background(), React{Emoji: "tada"}, nil)
	assert.ErrorIs(t, err, ErrNoTrigger)

	api.reactionErr = errors.New("invalid_name")
	_, err = e.execute(context.Background(), React{Emoji: "nope"}, trigger)
	assert.Error(t, err)
}

func TestExecute_Upload(t *testing.T) {
	api := testAPI()
	e, _ := newConnectedEngine(t, api, &fakeHistory{})

	path := filepath.Join(t.TempDir(), "cloud.txt")
	require.NoError(t, os.WriteFile(path, []byte("words"), 0o600))

	e.Drain(context.Background(), Upload{User: "bob", Path: path, Delete: true}, nil)

	require.Len(t, api.uploads, 1)
	assert.Equal(t, upload{path: path, filename: "cloudbot upload", channel: "D2"}, api.uploads[0])
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed after upload")
}

func TestExecute_Query(t *testing.T) {
	hist := &fakeHistory{found: []*entity.HistoryMessage{
		entity.NewHistoryMessage("alice", "general", "one", "1.0"),
		entity.NewHistoryMessage("bob", "general", "two", "2.0"),
	}}
	e, conn := newConnectedEngine(t, testAPI(), hist)

	filter := repository.HistoryFilter{Channel: "general"}
	e.Drain(context.Background(), Query{
		Filter: filter,
		Then: func(_ context.Context, msgs []*entity.HistoryMessage) (Command, error) {
			return Send{Channel: "general", Text: msgs[0].Text + msgs[1].Text}, nil
		},
	}, nil)

	assert.Equal(t, []repository.HistoryFilter{filter}, hist.filters)
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "onetwo", sent[0].Text)
}

func TestExecute_QueryResolvesMentionIDs(t *testing.T) {
	tests := []struct {
		name   string
		filter repository.HistoryFilter
		want   repository.HistoryFilter
	}{
		{
			name:   "user and channel ids",
			filter: repository.HistoryFilter{User: "U1", Channel: "C1"},
			want:   repository.HistoryFilter{User: "alice", Channel: "general"},
		},
		{
			name:   "group id",
			filter: repository.HistoryFilter{Channel: "G1"},
			want:   repository.HistoryFilter{Channel: "secret"},
		},
		{
			name:   "names pass through",
			filter: repository.HistoryFilter{User: "bob", Channel: "random"},
			want:   repository.HistoryFilter{User: "bob", Channel: "random"},
		},
		{
			name:   "unknown ids pass through",
			filter: repository.HistoryFilter{User: "U999", Channel: "C999"},
			want:   repository.HistoryFilter{User: "U999", Channel: "C999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &fakeHistory{}
			e, _ := newConnectedEngine(t, testAPI(), hist)

			e.Drain(context.Background(), Query{Filter: tt.filter}, nil)

			assert.Equal(t, []repository.HistoryFilter{tt.want}, hist.filters)
		})
	}
}

func TestExecute_QueryWithoutContinuation(t *testing.T) {
	e, _ := newConnectedEngine(t, testAPI(), &fakeHistory{})

	next, err := e.execute(context.Background(), Query{}, nil)
	require.NoError(t, err)
	assert.Nil(t, next)
}
