package bot

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type historyCall struct {
	channel string
	oldest  string
}

type reaction struct {
	emoji     string
	channel   string
	timestamp string
}

type upload struct {
	path     string
	filename string
	channel  string
}

type fakeAPI struct {
	mu sync.Mutex

	session     *entity.Session
	connectErrs []error
	connects    int

	direct    map[string]string // user id -> DM channel
	directErr map[string]error

	pages        map[string][]*entity.HistoryPage
	historyErr   error
	historyCalls []historyCall

	reactions   []reaction
	reactionErr error
	uploads     []upload
}

func (f *fakeAPI) Connect(context.Context) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	if len(f.connectErrs) > 0 {
		err := f.connectErrs[0]
		f.connectErrs = f.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.session, nil
}

func (f *fakeAPI) OpenDirectChannel(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.directErr[userID]; ok {
		return "", err
	}
	if id, ok := f.direct[userID]; ok {
		return id, nil
	}
	return "", fmt.Errorf("cannot_dm_bot: %w", domainerrors.ErrCannotDM)
}

func (f *fakeAPI) AddReaction(_ context.Context, emoji, channelID, timestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactionErr != nil {
		return f.reactionErr
	}
	f.reactions = append(f.reactions, reaction{emoji: emoji, channel: channelID, timestamp: timestamp})
	return nil
}

func (f *fakeAPI) UploadFile(_ context.Context, path, filename, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, upload{path: path, filename: filename, channel: channelID})
	return nil
}

func (f *fakeAPI) History(_ context.Context, channelID, oldest string) (*entity.HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls = append(f.historyCalls, historyCall{channel: channelID, oldest: oldest})
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	pages := f.pages[channelID]
	if len(pages) == 0 {
		return &entity.HistoryPage{}, nil
	}
	page := pages[0]
	f.pages[channelID] = pages[1:]
	return page, nil
}

func (f *fakeAPI) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

type fakeConn struct {
	events chan entity.Event

	mu     sync.Mutex
	sent   []entity.OutboundMessage
	closed bool
}

func newFakeConn(buffer int) *fakeConn {
	return &fakeConn{events: make(chan entity.Event, buffer)}
}

func (c *fakeConn) ReadEvent(ctx context.Context) (entity.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-c.events:
		if !ok {
			return nil, domainerrors.ErrConnectionClosed
		}
		return ev, nil
	}
}

func (c *fakeConn) Send(_ context.Context, msg entity.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Sent() []entity.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	urls  []string
}

func (d *fakeDialer) Dial(_ context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	if len(d.conns) == 0 {
		return nil, fmt.Errorf("no connection available")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	saved   []*entity.HistoryMessage
	deleted int
	found   []*entity.HistoryMessage
	filters []repository.HistoryFilter
}

func (h *fakeHistory) Save(_ context.Context, msg *entity.HistoryMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, msg)
	return nil
}

func (h *fakeHistory) SaveBatch(_ context.Context, msgs []*entity.HistoryMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, msgs...)
	return nil
}

func (h *fakeHistory) Find(_ context.Context, filter repository.HistoryFilter) ([]*entity.HistoryMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filters = append(h.filters, filter)
	return h.found, nil
}

func (h *fakeHistory) Count(context.Context, repository.HistoryFilter) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.saved), nil
}

func (h *fakeHistory) DeleteAll(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted++
	h.saved = nil
	return nil
}

func (h *fakeHistory) Saved() []*entity.HistoryMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.saved)
}

func testSession() *entity.Session {
	return &entity.Session{
		URL:  "wss://example.test/stream",
		Self: entity.Identity{ID: "UBOT", Name: "cloudbot"},
		Users: []entity.Identity{
			{ID: "U1", Name: "alice"},
			{ID: "U2", Name: "bob"},
			{ID: "UBOT", Name: "cloudbot"},
		},
		Channels: []entity.Identity{
			{ID: "C1", Name: "general"},
			{ID: "C2", Name: "random"},
		},
		Groups: []entity.Identity{
			{ID: "G1", Name: "secret"},
		},
	}
}

func testAPI() *fakeAPI {
	return &fakeAPI{
		session: testSession(),
		direct: map[string]string{
			"U1": "D1",
			"U2": "D2",
		},
		pages: map[string][]*entity.HistoryPage{},
	}
}

func strPtr(s string) *string { return &s }

func rawMessage(user, text, ts string) entity.RawMessage {
	return entity.RawMessage{Type: "message", User: strPtr(user), Text: text, Timestamp: strPtr(ts)}
}
