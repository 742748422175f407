package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

// HistoryRepository provides an in-memory implementation of repository.HistoryRepository.
// Thread-safe for concurrent access.
type HistoryRepository struct {
	mu       sync.RWMutex
	messages map[string]*entity.HistoryMessage // id -> message
	order    []string                          // insertion order, for stable sorting
}

// NewHistoryRepository creates a new in-memory history repository.
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{
		messages: make(map[string]*entity.HistoryMessage),
	}
}

// Save persists a new message.
func (r *HistoryRepository) Save(ctx context.Context, msg *entity.HistoryMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saveLocked(msg)
}

// SaveBatch persists all messages or none of them.
func (r *HistoryRepository) SaveBatch(ctx context.Context, msgs []*entity.HistoryMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		if _, exists := r.messages[msg.ID]; exists {
			return repository.ErrAlreadyExists
		}
		if _, dup := seen[msg.ID]; dup {
			return repository.ErrAlreadyExists
		}
		seen[msg.ID] = struct{}{}
	}

	for _, msg := range msgs {
		if err := r.saveLocked(msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *HistoryRepository) saveLocked(msg *entity.HistoryMessage) error {
	if _, exists := r.messages[msg.ID]; exists {
		return repository.ErrAlreadyExists
	}

	// Store a copy to prevent external mutations
	msgCopy := *msg
	r.messages[msg.ID] = &msgCopy
	r.order = append(r.order, msg.ID)
	return nil
}

// Find returns messages matching the filter, oldest first.
func (r *HistoryRepository) Find(ctx context.Context, filter repository.HistoryFilter) ([]*entity.HistoryMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entity.HistoryMessage, 0)
	for _, id := range r.order {
		msg := r.messages[id]
		if filter.Matches(msg) {
			msgCopy := *msg
			result = append(result, &msgCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PostedAt.Before(result[j].PostedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Count returns the number of messages matching the filter, ignoring Limit.
func (r *HistoryRepository) Count(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, msg := range r.messages {
		if filter.Matches(msg) {
			count++
		}
	}
	return count, nil
}

// DeleteAll removes every message.
func (r *HistoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = make(map[string]*entity.HistoryMessage)
	r.order = nil
	return nil
}
