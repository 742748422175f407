// Package oncall answers who is currently on call in PagerDuty.
package oncall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
	"github.com/qj0r9j0vc2/rtm-bot/internal/usecase/bot"
)

const commandName = "Show who is on call"

const help = "List the current PagerDuty on-call users:\n\toncall [--schedule <id>]"

// Lister fetches current on-call assignments.
type Lister interface {
	ListOnCalls(ctx context.Context, scheduleIDs []string) ([]entity.OnCall, error)
}

// Plugin registers the oncall command.
type Plugin struct {
	lister    Lister
	schedules []string
}

// New creates the plugin. schedules is the default filter when no
// --schedule flag is given; empty means every schedule.
func New(lister Lister, schedules []string) *Plugin {
	return &Plugin{lister: lister, schedules: schedules}
}

// Name implements bot.Plugin.
func (p *Plugin) Name() string { return "oncall" }

// Register implements bot.Plugin.
func (p *Plugin) Register(r bot.Registrar) error {
	if p.lister == nil {
		return fmt.Errorf("oncall: no pagerduty client")
	}
	r.AddCommand(bot.CommandSpec{
		Name: commandName,
		Expr: grammar.Seq(
			grammar.Literal("oncall"),
			grammar.Optional(grammar.FlagWithArg("schedule", grammar.Word)),
		),
		Help: help,
	}, p.handle)
	return nil
}

func (p *Plugin) handle(_ context.Context, user, channel string, parsed grammar.Fields) (bot.Command, error) {
	schedules := p.schedules
	if parsed.Has("schedule") {
		schedules = []string{parsed.Get("schedule")}
	}

	// The REST call runs when the command executes, not while routing.
	return bot.Generate(func(ctx context.Context) (bot.Command, error) {
		oncalls, err := p.lister.ListOnCalls(ctx, schedules)
		if err != nil {
			// Reply first, then surface the error to the executor.
			return bot.Seq(
				bot.Send{Channel: channel, User: user, Text: "Could not reach PagerDuty."},
				bot.Generate(func(context.Context) (bot.Command, error) {
					return nil, fmt.Errorf("listing on-calls: %w", err)
				}),
			), nil
		}
		return bot.Send{Channel: channel, User: user, Text: format(oncalls)}, nil
	}), nil
}

func format(oncalls []entity.OnCall) string {
	if len(oncalls) == 0 {
		return "Nobody is on call."
	}

	sorted := make([]entity.OnCall, len(oncalls))
	copy(sorted, oncalls)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].EscalationPolicy != sorted[j].EscalationPolicy {
			return sorted[i].EscalationPolicy < sorted[j].EscalationPolicy
		}
		return sorted[i].Level < sorted[j].Level
	})

	var b strings.Builder
	b.WriteString("On call now:")
	for _, oc := range sorted {
		fmt.Fprintf(&b, "\n• %s (%s, level %d", oc.User, oc.EscalationPolicy, oc.Level)
		if oc.Schedule != "" {
			fmt.Fprintf(&b, ", %s", oc.Schedule)
		}
		if !oc.End.IsZero() {
			fmt.Fprintf(&b, ", until %s", oc.End.UTC().Format("2006-01-02 15:04 MST"))
		}
		b.WriteString(")")
	}
	return b.String()
}
