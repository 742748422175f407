package grammar

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrNoMatch is returned by Parse when no registered command matches the text.
var ErrNoMatch = errors.New("no command matched")

// Result is a successful parse: the matched command name and its captures.
type Result struct {
	Name   string
	Fields Fields
}

type command struct {
	name     string
	expr     Expr
	priority int
	seq      int
}

// Router maps command names to expressions and match priorities.
type Router struct {
	alert string

	mu       sync.RWMutex
	commands []command
	nextSeq  int
}

// NewRouter creates a router for commands prefixed with alert outside of
// direct messages.
func NewRouter(alert string) *Router {
	return &Router{alert: alert}
}

// Add registers expr under name. Re-adding a name replaces its expression and
// priority but keeps its original registration order for tie-breaks.
func (r *Router) Add(name string, expr Expr, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.commands, func(c command) bool { return c.name == name })
	if idx >= 0 {
		r.commands[idx].expr = expr
		r.commands[idx].priority = priority
	} else {
		r.commands = append(r.commands, command{name: name, expr: expr, priority: priority, seq: r.nextSeq})
		r.nextSeq++
	}

	// Higher priority first, then first registered.
	slices.SortStableFunc(r.commands, func(a, b command) int {
		if a.priority != b.priority {
			return b.priority - a.priority
		}
		return a.seq - b.seq
	})
}

// Parse matches text against the registered commands. Outside direct messages
// the text must start with the alert prefix; in direct messages it is optional.
// The whole input must be consumed.
func (r *Router) Parse(text string, direct bool) (Result, error) {
	body := strings.TrimSpace(text)
	if r.alert != "" && strings.HasPrefix(body, r.alert) {
		body = strings.TrimPrefix(body, r.alert)
	} else if !direct {
		return Result{}, ErrNoMatch
	}

	tokens := tokenize(body)
	if len(tokens) == 0 {
		return Result{}, ErrNoMatch
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.commands {
		fields := Fields{}
		next, ok := c.expr.match(tokens, 0, fields)
		if ok && next == len(tokens) {
			return Result{Name: c.name, Fields: fields}, nil
		}
	}
	return Result{}, ErrNoMatch
}

// Names returns the registered command names in match order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		names = append(names, c.name)
	}
	return names
}
