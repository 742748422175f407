package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/entity"
	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

const historyColumns = `id, user_name, channel_name, text, ts, posted_at, created_at`

// HistoryRepository provides SQLite implementation of repository.HistoryRepository.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new SQLite-backed history repository.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Save persists a new message.
func (r *HistoryRepository) Save(ctx context.Context, msg *entity.HistoryMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO history_messages (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		historyArgs(msg)...,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert history message: %w", err)
	}
	return nil
}

// SaveBatch persists messages in one transaction.
func (r *HistoryRepository) SaveBatch(ctx context.Context, msgs []*entity.HistoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history_messages (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		if _, err := stmt.ExecContext(ctx, historyArgs(msg)...); err != nil {
			if isUniqueConstraintError(err) {
				return repository.ErrAlreadyExists
			}
			return fmt.Errorf("insert history message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Find returns messages matching the filter, oldest first.
// Returns empty slice if none found.
func (r *HistoryRepository) Find(ctx context.Context, filter repository.HistoryFilter) ([]*entity.HistoryMessage, error) {
	where, args := historyWhere(filter)
	query := `SELECT ` + historyColumns + ` FROM history_messages` + where + ` ORDER BY posted_at ASC, rowid ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history messages: %w", err)
	}
	defer rows.Close()

	return scanHistoryMessages(rows)
}

// Count returns the number of messages matching the filter, ignoring Limit.
func (r *HistoryRepository) Count(ctx context.Context, filter repository.HistoryFilter) (int, error) {
	where, args := historyWhere(filter)

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_messages`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count history messages: %w", err)
	}
	return count, nil
}

// DeleteAll removes every message.
func (r *HistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM history_messages`); err != nil {
		return fmt.Errorf("delete history messages: %w", err)
	}
	return nil
}

func historyArgs(msg *entity.HistoryMessage) []any {
	return []any{
		msg.ID, msg.User, msg.Channel, msg.Text, msg.Timestamp,
		toMicros(msg.PostedAt), timeToString(msg.CreatedAt),
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

// scanHistoryMessages scans multiple rows into HistoryMessage entities.
func scanHistoryMessages(rows *sql.Rows) ([]*entity.HistoryMessage, error) {
	msgs := []*entity.HistoryMessage{}

	for rows.Next() {
		var (
			msg       entity.HistoryMessage
			postedAt  int64
			createdAt string
		)
		if err := rows.Scan(
			&msg.ID, &msg.User, &msg.Channel, &msg.Text, &msg.Timestamp,
			&postedAt, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan history message row: %w", err)
		}

		msg.PostedAt = fromMicros(postedAt)
		msg.CreatedAt, _ = parseTime(createdAt)
		msgs = append(msgs, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return msgs, nil
}
