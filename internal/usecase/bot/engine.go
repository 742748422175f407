// Package bot is the event dispatch and command execution engine.
//
// An Engine keeps a streaming connection to the messaging service open,
// classifies inbound events, routes messages to grammar-filtered handlers or
// to unfiltered listeners, and drains the commands those handlers return.
package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

// State is the dispatch loop state.
type State int32

const (
	StateEstablishing State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	default:
		return "establishing"
	}
}

// Config holds engine settings.
type Config struct {
	// Name is the bot's user name. Messages it authors are not stored.
	// Defaults to the name reported at session establishment.
	Name string

	// Alert is the prefix marking a command outside direct messages.
	Alert string

	// LoadHistory reloads the message archive on the first connection.
	LoadHistory bool

	// DirectWorkers bounds concurrent DM channel resolution.
	DirectWorkers int

	// Retry pacing for failed session establishment.
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// Engine is a bot session: identity and handler registries, preloaded
// commands and the current connection.
type Engine struct {
	cfg     Config
	api     API
	dialer  Dialer
	grammar Grammar
	history repository.HistoryRepository
	logger  Logger
	metrics Recorder

	handlers *Registry
	identity atomic.Pointer[Identity]
	state    atomic.Int32

	mu      sync.Mutex
	preload []Command

	// Owned by the dispatch loop.
	conn          Conn
	nextMessageID int64
	historyLoaded bool
}

// NewEngine creates an engine. Handlers, listeners and preloaded commands
// should be registered before Run.
func NewEngine(cfg Config, api API, dialer Dialer, g Grammar, history repository.HistoryRepository, logger Logger, opts ...Option) *Engine {
	if cfg.DirectWorkers < 1 {
		cfg.DirectWorkers = 8
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = time.Second
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = time.Minute
	}

	e := &Engine{
		cfg:      cfg,
		api:      api,
		dialer:   dialer,
		grammar:  g,
		history:  history,
		logger:   logger,
		metrics:  noopRecorder{},
		handlers: NewRegistry(),
	}
	e.identity.Store(NewIdentity())
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddCommand registers a grammar-filtered handler. Re-registering a name
// replaces the previous handler.
func (e *Engine) AddCommand(spec CommandSpec, fn HandlerFunc) {
	e.grammar.Add(spec.Name, spec.Expr, spec.Priority)
	e.handlers.AddHandler(Handler{
		Name:     spec.Name,
		Help:     spec.Help,
		Channels: spec.Channels,
		fn:       fn,
	})
}

// AddListener registers an unfiltered handler, run on every eligible plain
// message in registration order.
func (e *Engine) AddListener(spec ListenerSpec, fn ListenerFunc) {
	e.handlers.AddListener(Listener{
		Name:     spec.Name,
		Channels: spec.Channels,
		fn:       fn,
	})
}

// Preload queues commands to run once the first connection is up.
func (e *Engine) Preload(cmds ...Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.preload = append(e.preload, cmds...)
}

func (e *Engine) takePreload() []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	cmds := e.preload
	e.preload = nil
	return cmds
}

// HelpMessage returns the help listing sent to direct messages that match no command.
func (e *Engine) HelpMessage() string {
	return e.handlers.HelpMessage()
}

// Identity returns the current identity registry.
func (e *Engine) Identity() *Identity {
	return e.identity.Load()
}

// State returns the dispatch loop state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Ping reports whether the engine holds an open connection.
func (e *Engine) Ping(_ context.Context) error {
	if e.State() != StateConnected {
		return ErrNotConnected
	}
	return nil
}

// Name returns the bot's user name.
func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Name
}

func (e *Engine) setDefaultName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.Name == "" {
		e.cfg.Name = name
	}
}
