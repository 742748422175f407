package mysql

import (
	"context"
	"fmt"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

// Repositories holds all MySQL repository implementations.
type Repositories struct {
	History *HistoryRepository
}

// NewRepositories connects, runs migrations, and returns the repositories.
func NewRepositories(ctx context.Context, cfg *config.MySQLConfig) (*Repositories, *DB, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating database connection: %w", err)
	}

	if err := NewMigrator(db.Primary()).Up(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Repositories{History: NewHistoryRepository(db)}, db, nil
}
