package wordcloud

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

type recordingRegistrar struct {
	specs    []bot.CommandSpec
	handlers []bot.HandlerFunc
}

func (r *recordingRegistrar) AddCommand(spec bot.CommandSpec, fn bot.HandlerFunc) {
	r.specs = append(r.specs, spec)
	r.handlers = append(r.handlers, fn)
}

func (r *recordingRegistrar) AddListener(bot.ListenerSpec, bot.ListenerFunc) {}

func (r *recordingRegistrar) Preload(...bot.Command) {}

func history(texts ...string) []*entity.HistoryMessage {
	msgs := make([]*entity.HistoryMessage, len(texts))
	for i, text := range texts {
		msgs[i] = entity.NewHistoryMessage("alice", "general", text, "1.000000")
	}
	return msgs
}

func TestPlugin_Grammar(t *testing.T) {
	reg := &recordingRegistrar{}
	require.NoError(t, New(Config{}).Register(reg))
	require.Len(t, reg.specs, 1)

	router := grammar.NewRouter("!")
	router.Add(reg.specs[0].Name, reg.specs[0].Expr, reg.specs[0].Priority)

	tests := []struct {
		text   string
		ok     bool
		fields grammar.Fields
	}{
		{"!wordcloud", true, grammar.Fields{}},
		{"!WordCloud --user alice", true, grammar.Fields{"user": "alice"}},
		{"!wordcloud --channel #random --user @bob", true, grammar.Fields{"channel": "random", "user": "bob"}},
		{"!wordcloud --all_channels", true, grammar.Fields{"all_channels": "true"}},
		{"!wordcloud --channel random --all_channels", false, nil},
		{"!wordcloud extra", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res, err := router.Parse(tt.text, false)
			if !tt.ok {
				assert.ErrorIs(t, err, grammar.ErrNoMatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, commandName, res.Name)
			assert.Equal(t, tt.fields, res.Fields)
		})
	}
}

func TestPlugin_HandleBuildsFilter(t *testing.T) {
	p := New(Config{})
	ctx := context.Background()

	tests := []struct {
		name    string
		channel string
		fields  grammar.Fields
		want    repository.HistoryFilter
	}{
		{"defaults to invoking channel", "general", grammar.Fields{}, repository.HistoryFilter{Channel: "general"}},
		{"direct message covers all channels", "", grammar.Fields{}, repository.HistoryFilter{}},
		{"explicit channel", "general", grammar.Fields{"channel": "random"}, repository.HistoryFilter{Channel: "random"}},
		{"all channels", "general", grammar.Fields{"all_channels": "true"}, repository.HistoryFilter{}},
		{"user filter", "general", grammar.Fields{"user": "bob"}, repository.HistoryFilter{Channel: "general", User: "bob"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := p.handle(ctx, "alice", tt.channel, tt.fields)
			require.NoError(t, err)
			q, ok := cmd.(bot.Query)
			require.True(t, ok)
			assert.Equal(t, tt.want, q.Filter)
		})
	}
}

func TestPlugin_EmptyHistoryDoesNothing(t *testing.T) {
	p := New(Config{})
	cmd, err := p.handle(context.Background(), "alice", "general", grammar.Fields{})
	require.NoError(t, err)

	next, err := cmd.(bot.Query).Then(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestPlugin_RepliesWithListing(t *testing.T) {
	p := New(Config{Words: 2})
	cmd, err := p.handle(context.Background(), "alice", "general", grammar.Fields{})
	require.NoError(t, err)

	next, err := cmd.(bot.Query).Then(context.Background(), history(
		"deploy the build",
		"deploy again <@U123> :tada:",
		"build deploy",
	))
	require.NoError(t, err)
	assert.Equal(t, bot.Send{Channel: "general", User: "alice", Text: "deploy 3\nbuild 2"}, next)
}

func TestPlugin_UploadsLongListing(t *testing.T) {
	dir := t.TempDir()
	p := New(Config{Words: 50, UploadThreshold: 10, TempDir: dir})

	next, err := p.render("alice", "", history("alpha beta gamma delta epsilon"))
	require.NoError(t, err)

	up, ok := next.(bot.Upload)
	require.True(t, ok)
	assert.Empty(t, up.Channel)
	assert.Equal(t, "alice", up.User)
	assert.True(t, up.Delete)

	data, err := os.ReadFile(up.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "epsilon 1")
}

func TestPlugin_Frequencies(t *testing.T) {
	p := New(Config{Words: 10, Stopwords: []string{"Ignored"}})

	counts := p.Frequencies([]string{
		"Ship it 🚀 ship IT",
		"uploaded a file: <https://files.example.com|report>",
		"ignored words and :smile: codes",
		"x ship",
	})

	assert.Equal(t, []WordCount{
		{Word: "ship", Count: 3},
		{Word: "codes", Count: 1},
		{Word: "words", Count: 1},
	}, counts)
}

func TestPlugin_NothingToCount(t *testing.T) {
	p := New(Config{})
	next, err := p.render("alice", "general", history("the and of"))
	require.NoError(t, err)
	assert.Equal(t, bot.Send{Channel: "general", User: "alice", Text: "Nothing to count."}, next)
}
