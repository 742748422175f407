package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	domainerrors "github.com/qj0r9j0vc2/rtm-bot/internal/domain/errors"
)

// Identity maps human readable user and channel names to service IDs, and
// user names to their direct message channel. Channels and groups share one
// namespace. Entries are added, never removed.
type Identity struct {
	mu sync.RWMutex

	userIDs      map[string]string // name -> id
	userNames    map[string]string // id -> name
	channelIDs   map[string]string
	channelNames map[string]string
	directByUser map[string]string // user name -> DM channel id
}

// NewIdentity creates an empty registry.
func NewIdentity() *Identity {
	return &Identity{
		userIDs:      make(map[string]string),
		userNames:    make(map[string]string),
		channelIDs:   make(map[string]string),
		channelNames: make(map[string]string),
		directByUser: make(map[string]string),
	}
}

// AddUser upserts a user.
func (i *Identity) AddUser(name, id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.userIDs[name] = id
	i.userNames[id] = name
}

// AddChannel upserts a channel or group.
func (i *Identity) AddChannel(name, id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.channelIDs[name] = id
	i.channelNames[id] = name
}

// SetDirectChannel records the DM channel for a user.
func (i *Identity) SetDirectChannel(userName, channelID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.directByUser[userName] = channelID
}

// UserID returns the ID for a user name.
func (i *Identity) UserID(name string) (string, error) {
	return i.lookup(i.userIDs, "user", name)
}

// UserName returns the name for a user ID.
func (i *Identity) UserName(id string) (string, error) {
	return i.lookup(i.userNames, "user", id)
}

// ChannelID returns the ID for a channel or group name.
func (i *Identity) ChannelID(name string) (string, error) {
	return i.lookup(i.channelIDs, "channel", name)
}

// ChannelName returns the name for a channel or group ID.
func (i *Identity) ChannelName(id string) (string, error) {
	return i.lookup(i.channelNames, "channel", id)
}

// DirectChannel returns the DM channel for a user name, or ErrNoDirectChannel
// when the user cannot receive direct messages.
func (i *Identity) DirectChannel(userName string) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.directByUser[userName]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoDirectChannel, userName)
	}
	return id, nil
}

// ChannelIDs returns every known channel and group ID, sorted.
func (i *Identity) ChannelIDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := make([]string, 0, len(i.channelNames))
	for id := range i.channelNames {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Counts returns the number of known users, channels and DM channels.
func (i *Identity) Counts() (users, channels, direct int) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.userIDs), len(i.channelIDs), len(i.directByUser)
}

func (i *Identity) lookup(m map[string]string, kind, key string) (string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s %q", ErrNotFound, kind, key)
	}
	return v, nil
}

// BuildIdentity seeds a registry from a session listing and resolves every
// user's DM channel on a bounded worker pool. Users that cannot receive DMs
// are skipped; any other resolution failure is fatal.
func BuildIdentity(ctx context.Context, session *entity.Session, api API, workers int, logger Logger) (*Identity, error) {
	id := NewIdentity()
	for _, u := range session.Users {
		id.AddUser(u.Name, u.ID)
	}
	for _, c := range session.Channels {
		id.AddChannel(c.Name, c.ID)
	}
	for _, g := range session.Groups {
		id.AddChannel(g.Name, g.ID)
	}

	if workers < 1 {
		workers = 1
	}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for _, u := range session.Users {
		p.Go(func(ctx context.Context) error {
			channelID, err := api.OpenDirectChannel(ctx, u.ID)
			if errors.Is(err, domainerrors.ErrCannotDM) {
				logger.Debug("skipping user without direct messages", "user", u.Name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("resolving direct channel for %s: %w", u.Name, err)
			}
			id.SetDirectChannel(u.Name, channelID)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFatal, err)
	}

	users, channels, direct := id.Counts()
	logger.Info("identity registry loaded",
		"users", users,
		"channels", channels,
		"direct_channels", direct,
	)
	return id, nil
}
