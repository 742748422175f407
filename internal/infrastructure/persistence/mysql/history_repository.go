package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

const (
	historyColumns = `id, user_name, channel_name, text, ts, posted_at, created_at`
	batchRetries   = 3
)

// HistoryRepository implements repository.HistoryRepository using MySQL.
// Reads go to the replica when one is configured.
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new MySQL history repository.
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save persists a new message.
func (r *HistoryRepository) Save(ctx context.Context, msg *entity.HistoryMessage) error {
	_, err := r.db.Primary().ExecContext(ctx,
		`INSERT INTO history_messages (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		historyArgs(msg)...,
	)
	if err != nil {
		if mapped := mapError(err); mapped == repository.ErrAlreadyExists {
			return mapped
		}
		return fmt.Errorf("inserting history message: %w", err)
	}
	return nil
}

// SaveBatch persists messages in one transaction, retrying on deadlocks and
// dropped connections.
func (r *HistoryRepository) SaveBatch(ctx context.Context, msgs []*entity.HistoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), batchRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := r.saveBatch(ctx, msgs)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (r *HistoryRepository) saveBatch(ctx context.Context, msgs []*entity.HistoryMessage) error {
	tx, err := r.db.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := make([]string, 0, len(msgs))
	args := make([]any, 0, len(msgs)*7)
	for _, msg := range msgs {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, historyArgs(msg)...)
	}

	query := `INSERT INTO history_messages (` + historyColumns + `) VALUES ` + strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if mapped := mapError(err); mapped == repository.ErrAlreadyExists {
			return mapped
		}
		return fmt.Errorf("inserting history batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Find returns messages matching the filter, oldest first.
func (r *HistoryRepository) Find(ctx context.Context, filter repository.HistoryFilter) ([]*entity.HistoryMessage, error) {
	where, args := historyWhere(filter)
	query := `SELECT ` + historyColumns + ` FROM history_messages` + where + ` ORDER BY posted_at ASC, seq ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Replica().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history messages: %w", err)
	}
	defer rows.Close()

	msgs := []*entity.HistoryMessage{}
	for rows.Next() {
		var (
			msg      entity.HistoryMessage
			postedAt int64
		)
		if err := rows.Scan(
			&msg.ID, &msg.User, &msg.Channel, &msg.Text, &msg.Timestamp,
			&postedAt, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history message: %w", err)
		}
		msg.PostedAt = fromMicros(postedAt)
		msg.CreatedAt = msg.CreatedAt.UTC()
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history messages: %w", err)
	}
	return msgs, nil
}

// Count returns the number of messages matching the filter, ignoring Limit.
func (r *HistoryRepository) Count(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	where, args := historyWhere(filter)

	var count int
	err := r.db.Replica().QueryRowContext(ctx, `SELECT COUNT(*) FROM history_messages`+where, args...).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("counting history messages: %w", err)
	}
	return count, nil
}

// DeleteAll removes every message.
func (r *HistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Primary().ExecContext(ctx, `DELETE FROM history_messages`); err != nil {
		return fmt.Errorf("deleting history messages: %w", err)
	}
	return nil
}

func historyArgs(msg *entity.HistoryMessage) []any {
	return []any{
		msg.ID, msg.User, msg.Channel, msg.Text, msg.Timestamp,
		toMicros(msg.PostedAt), msg.CreatedAt.UTC(),
	}
}

func historyWhere(filter repository.HistoryFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Channel != "" {
		clauses = append(clauses, "channel_name = ?")
		args = append(args, filter.Channel)
	}
	if filter.User != "" {
		clauses = append(clauses, "user_name = ?")
		args = append(args, filter.User)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "posted_at >= ?")
		args = append(args, toMicros(filter.Since))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
