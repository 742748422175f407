package slack

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// RTMConfig configures the streaming transport.
type RTMConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration

	// SendRate is the sustained outbound message rate per second.
	SendRate  float64
	SendBurst int
}

// DefaultRTMConfig returns default transport settings. Slack allows roughly
// one message per second per connection.
func DefaultRTMConfig() RTMConfig {
	return RTMConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		SendRate:         1,
		SendBurst:        3,
	}
}

// RTMDialer opens RTM websocket connections.
type RTMDialer struct {
	cfg    RTMConfig
	dialer *websocket.Dialer
	logger Logger
}

// NewRTMDialer creates a dialer.
func NewRTMDialer(cfg RTMConfig, logger Logger) *RTMDialer {
	def := DefaultRTMConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = def.SendRate
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = def.SendBurst
	}

	return &RTMDialer{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger,
	}
}

// Dial connects to url. The connection is closed when ctx is cancelled.
func (d *RTMDialer) Dial(ctx context.Context, url string) (*RTMConn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, domainerrors.NewTransientError(fmt.Sprintf("dialing rtm: %v", err), err)
	}

	c := &RTMConn{
		id:      uuid.New().String(),
		ws:      ws,
		cfg:     d.cfg,
		limiter: rate.NewLimiter(rate.Limit(d.cfg.SendRate), d.cfg.SendBurst),
		logger:  d.logger,
		done:    make(chan struct{}),
	}
	go c.watch(ctx)

	d.logger.Info("rtm connection opened", "connection_id", c.id)
	return c, nil
}

// RTMConn is one RTM websocket connection.
type RTMConn struct {
	id      string
	ws      *websocket.Conn
	cfg     RTMConfig
	limiter *rate.Limiter
	logger  Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// ID returns the connection's correlation ID.
func (c *RTMConn) ID() string {
	return c.id
}

// watch closes the socket on cancellation and keeps it alive with pings.
func (c *RTMConn) watch(ctx context.Context) {
	var ticks <-chan time.Time
	if c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-c.done:
			return
		case <-ticks:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("rtm ping failed", "connection_id", c.id, "error", err)
			}
		}
	}
}

// ReadEvent reads frames until one decodes into an event. Frames that are not
// valid JSON are logged and skipped. Any read failure ends the connection.
func (c *RTMConn) ReadEvent(ctx context.Context) (entity.Event, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", domainerrors.ErrConnectionClosed, err)
		}

		ev, err := entity.DecodeEvent(data)
		if err != nil {
			c.logger.Warn("skipping undecodable rtm frame", "connection_id", c.id, "error", err)
			continue
		}
		return ev, nil
	}
}

// Send writes a message envelope, waiting for the rate limiter first.
func (c *RTMConn) Send(ctx context.Context, msg entity.OutboundMessage) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrConnectionClosed, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrConnectionClosed, err)
	}
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (c *RTMConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
		c.logger.Info("rtm connection closed", "connection_id", c.id)
	})
	return err
}
