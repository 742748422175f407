package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/grammar"
)

// newConnectedEngine returns an engine with a seeded identity registry and a
// fake connection, without running the dispatch loop.
func newConnectedEngine(t *testing.T, api *fakeAPI, hist *fakeHistory) (*Engine, *fakeConn) {
	t.Helper()

	e := NewEngine(Config{Name: "cloudbot", Alert: "!"}, api, &fakeDialer{}, grammar.NewRouter("!"), hist, nopLogger{})

	id, err := BuildIdentity(context.Background(), api.session, api, 2, nopLogger{})
	require.NoError(t, err)
	e.identity.Store(id)

	conn := newFakeConn(0)
	e.conn = conn
	e.setState(StateConnected)
	return e, conn
}

// step returns a Generate that appends name to order and yields next.
func step(order *[]string, name string, next Command) Command {
	return Generate(func(context.Context) (Command, error) {
		*order = append(*order, name)
		return next, nil
	})
}
