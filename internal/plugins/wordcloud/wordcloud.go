// Package wordcloud lists the most frequent words in the chat history.
package wordcloud

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/forPelevin/gomoji"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

const commandName = "Display a wordcloud"

const help = "Make a wordcloud using chat history, with optional filters:\n" +
	"\twordcloud [--user <user>] [--channel <channel> | --all_channels]"

// Mentions, :emoji: codes and upload notices.
var noise = regexp.MustCompile(`<[^>]*>|:[^\s:]*:|uploaded a file:`)

// Config tunes the listing.
type Config struct {
	// Words is how many words are listed.
	Words int
	// UploadThreshold is the listing length above which it is uploaded as a file.
	UploadThreshold int
	// Stopwords are excluded in addition to the built-in list.
	Stopwords []string
	// TempDir holds uploaded listings; "" uses the system default.
	TempDir string
}

// WordCount is a word and how often it occurs.
type WordCount struct {
	Word  string
	Count int
}

// Plugin registers the wordcloud command.
type Plugin struct {
	cfg  Config
	stop map[string]struct{}
}

// New creates the plugin.
func New(cfg Config) *Plugin {
	if cfg.Words <= 0 {
		cfg.Words = 20
	}
	stop := make(map[string]struct{}, len(defaultStopwords)+len(cfg.Stopwords))
	for _, w := range defaultStopwords {
		stop[w] = struct{}{}
	}
	for _, w := range cfg.Stopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Plugin{cfg: cfg, stop: stop}
}

// Name implements bot.Plugin.
func (p *Plugin) Name() string { return "wordcloud" }

// Register implements bot.Plugin.
func (p *Plugin) Register(r bot.Registrar) error {
	r.AddCommand(bot.CommandSpec{
		Name: commandName,
		Expr: grammar.Seq(
			grammar.Literal("wordcloud"),
			grammar.Each(
				grammar.Optional(grammar.FlagWithArg("user", grammar.UserName)),
				grammar.Optional(grammar.OneOf(
					grammar.FlagWithArg("channel", grammar.ChannelName),
					grammar.Flag("all_channels"),
				)),
			),
		),
		Help: help,
	}, p.handle)
	return nil
}

func (p *Plugin) handle(_ context.Context, user, channel string, parsed grammar.Fields) (bot.Command, error) {
	filter := repository.HistoryFilter{User: parsed.Get("user")}
	switch {
	case parsed.Has("all_channels"):
	case parsed.Has("channel"):
		filter.Channel = parsed.Get("channel")
	default:
		// "" in a direct message, which covers every channel
		filter.Channel = channel
	}

	return bot.Query{
		Filter: filter,
		Then: func(_ context.Context, msgs []*entity.HistoryMessage) (bot.Command, error) {
			return p.render(user, channel, msgs)
		},
	}, nil
}

func (p *Plugin) render(user, channel string, msgs []*entity.HistoryMessage) (bot.Command, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	counts := p.Frequencies(texts)
	if len(counts) == 0 {
		return bot.Send{Channel: channel, User: user, Text: "Nothing to count."}, nil
	}

	listing := format(counts)
	if p.cfg.UploadThreshold <= 0 || len(listing) <= p.cfg.UploadThreshold {
		return bot.Send{Channel: channel, User: user, Text: listing}, nil
	}

	f, err := os.CreateTemp(p.cfg.TempDir, "wordcloud-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating listing file: %w", err)
	}
	_, werr := f.WriteString(listing)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("writing listing file: %w", errors.Join(werr, cerr))
	}
	return bot.Upload{Channel: channel, User: user, Path: f.Name(), Delete: true}, nil
}

// Frequencies counts words across texts, most frequent first, capped at the
// configured number of words. Ties are ordered alphabetically.
func (p *Plugin) Frequencies(texts []string) []WordCount {
	freq := make(map[string]int)
	for _, text := range texts {
		text = noise.ReplaceAllString(text, " ")
		text = gomoji.RemoveEmojis(text)
		for _, w := range strings.FieldsFunc(strings.ToLower(text), isSeparator) {
			w = strings.Trim(w, "'")
			if len([]rune(w)) < 2 {
				continue
			}
			if _, skip := p.stop[w]; skip {
				continue
			}
			freq[w]++
		}
	}

	counts := make([]WordCount, 0, len(freq))
	for w, n := range freq {
		counts = append(counts, WordCount{Word: w, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Word < counts[j].Word
	})
	if len(counts) > p.cfg.Words {
		counts = counts[:p.cfg.Words]
	}
	return counts
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}

func format(counts []WordCount) string {
	var b strings.Builder
	for i, c := range counts {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %d", c.Word, c.Count)
	}
	return b.String()
}
