// Package reactor adds emoji reactions to messages mentioning configured keywords.
package reactor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

// Rule reacts with Emoji when a message contains Keyword, ignoring case.
type Rule struct {
	Keyword string
	Emoji   string
}

// Plugin registers the reaction listener.
type Plugin struct {
	rules []Rule
}

// New creates the plugin.
func New(rules []Rule) *Plugin {
	folded := make([]Rule, 0, len(rules))
	for _, r := range rules {
		folded = append(folded, Rule{
			Keyword: cases.Fold().String(r.Keyword),
			Emoji:   strings.Trim(r.Emoji, ":"),
		})
	}
	return &Plugin{rules: folded}
}

// Name implements bot.Plugin.
func (p *Plugin) Name() string { return "reactor" }

// Register implements bot.Plugin.
func (p *Plugin) Register(r bot.Registrar) error {
	for i, rule := range p.rules {
		if rule.Keyword == "" || rule.Emoji == "" {
			return fmt.Errorf("reactor rule %d: keyword and emoji are required", i)
		}
	}
	r.AddListener(bot.ListenerSpec{Name: "reactor"}, p.listen)
	return nil
}

// listen reacts once per distinct emoji, in rule order.
func (p *Plugin) listen(_ context.Context, _, _, text string) (bot.Command, error) {
	folded := cases.Fold().String(text)

	var cmds []bot.Command
	seen := make(map[string]struct{})
	for _, rule := range p.rules {
		if !strings.Contains(folded, rule.Keyword) {
			continue
		}
		if _, dup := seen[rule.Emoji]; dup {
			continue
		}
		seen[rule.Emoji] = struct{}{}
		cmds = append(cmds, bot.React{Emoji: rule.Emoji})
	}

	switch len(cmds) {
	case 0:
		return nil, nil
	case 1:
		return cmds[0], nil
	default:
		return bot.Seq(cmds...), nil
	}
}
