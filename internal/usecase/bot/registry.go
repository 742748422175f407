package bot

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
)

// HandlerFunc handles a matched command. channel is "" in direct messages.
type HandlerFunc func(ctx context.Context, user, channel string, parsed grammar.Fields) (Command, error)

// ListenerFunc handles a plain message. channel is "" in direct messages.
type ListenerFunc func(ctx context.Context, user, channel, text string) (Command, error)

// CommandSpec describes a grammar-filtered handler.
type CommandSpec struct {
	Name     string
	Expr     grammar.Expr
	Help     string
	Channels []string // nil admits every channel
	Priority int
}

// ListenerSpec describes an unfiltered handler.
type ListenerSpec struct {
	Name     string
	Channels []string // nil admits every channel
}

// Handler is a registered filtered handler.
type Handler struct {
	Name     string
	Help     string
	Channels []string
	fn       HandlerFunc
}

// Allows reports whether the handler may run in channel.
func (h Handler) Allows(channel string) bool {
	return allows(h.Channels, channel)
}

// Listener is a registered unfiltered handler.
type Listener struct {
	Name     string
	Channels []string
	fn       ListenerFunc
}

// Allows reports whether the listener may run in channel.
func (l Listener) Allows(channel string) bool {
	return allows(l.Channels, channel)
}

func allows(channels []string, channel string) bool {
	return channels == nil || slices.Contains(channels, channel)
}

// Registry holds filtered handlers keyed by name and unfiltered handlers in
// registration order. The two never collide.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	handlers  map[string]Handler
	listeners []Listener
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// AddHandler stores h under its name. A second registration with the same
// name replaces the first and keeps its position in the help listing.
func (r *Registry) AddHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Name]; !exists {
		r.order = append(r.order, h.Name)
	}
	r.handlers[h.Name] = h
}

// AddListener appends l.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Handler returns the filtered handler registered under name.
func (r *Registry) Handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Listeners returns the unfiltered handlers in registration order.
func (r *Registry) Listeners() []Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.listeners)
}

// HelpMessage joins the help text of every filtered handler that has one.
func (r *Registry) HelpMessage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lines []string
	for _, name := range r.order {
		h := r.handlers[name]
		if h.Help == "" {
			continue
		}
		allowed := "All"
		if h.Channels != nil {
			allowed = strings.Join(h.Channels, ", ")
		}
		lines = append(lines,
			h.Name+":",
			"\t"+h.Help,
			"\tAllowed channels: "+allowed,
		)
	}
	if len(lines) == 0 {
		return "No commands are registered."
	}
	return strings.Join(lines, "\n")
}
