package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// Run drives the reconnect loop until ctx is cancelled or a fatal error
// occurs. A closed connection goes straight back to session establishment;
// failed establishment attempts are retried with exponential backoff.
// Returns nil on cancellation and an error wrapping ErrFatal otherwise.
func (e *Engine) Run(ctx context.Context) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = e.cfg.RetryInitialInterval
	retry.MaxInterval = e.cfg.RetryMaxInterval
	retry.MaxElapsedTime = 0
	retry.Reset()

	for {
		if ctx.Err() != nil {
			return nil
		}
		e.setState(StateEstablishing)

		conn, err := e.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrFatal) {
				return err
			}
			wait := retry.NextBackOff()
			e.logger.Warn("session establishment failed", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return nil
			}
			continue
		}
		retry.Reset()

		err = e.serve(ctx, conn)
		e.closeConn()

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrFatal):
			return err
		case errors.Is(err, domainerrors.ErrConnectionClosed):
			e.logger.Info("connection closed, reconnecting")
		default:
			e.logger.Warn("connection failed, reconnecting", "error", err)
		}
		e.metrics.RecordReconnect(ctx)
	}
}

// connect establishes a session and opens its streaming connection.
func (e *Engine) connect(ctx context.Context) (Conn, error) {
	url, err := e.establish(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := e.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing stream: %w", err)
	}
	return conn, nil
}

// establish creates a session, rebuilds the identity registry and, on the
// first successful establishment only, loads the message archive.
func (e *Engine) establish(ctx context.Context) (string, error) {
	session, err := e.api.Connect(ctx)
	if err != nil {
		if !domainerrors.IsTransientError(err) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: establishing session: %w", ErrFatal, err)
		}
		return "", fmt.Errorf("establishing session: %w", err)
	}
	e.setDefaultName(session.Self.Name)

	id, err := BuildIdentity(ctx, session, e.api, e.cfg.DirectWorkers, e.logger)
	if err != nil {
		return "", err
	}
	e.identity.Store(id)

	if e.cfg.LoadHistory && !e.historyLoaded {
		if err := e.loadHistory(ctx, id); err != nil {
			return "", err
		}
		e.historyLoaded = true
		e.cfg.LoadHistory = false
	}

	return session.URL, nil
}

// serve pumps one connection until it fails.
func (e *Engine) serve(ctx context.Context, conn Conn) error {
	e.conn = conn
	e.nextMessageID = 0
	e.setState(StateConnected)
	e.logger.Info("connected")

	if cmds := e.takePreload(); len(cmds) > 0 {
		e.logger.Info("running preloaded commands", "count", len(cmds))
		for _, cmd := range cmds {
			e.Drain(ctx, cmd, nil)
		}
	}

	for {
		ev, err := conn.ReadEvent(ctx)
		if err != nil {
			return err
		}
		e.dispatch(ctx, ev)
	}
}

func (e *Engine) closeConn() {
	e.setState(StateEstablishing)
	if e.conn == nil {
		return
	}
	if err := e.conn.Close(); err != nil {
		e.logger.Debug("closing connection", "error", err)
	}
	e.conn = nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
