package app

import (
	"context"
	"fmt"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/persistence/memory"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/persistence/mysql"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/persistence/sqlite"
)

const storageInitTimeout = 30 * time.Second

func (app *Application) initializeStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), storageInitTimeout)
	defer cancel()

	switch app.config.Storage.Type {
	case "mysql":
		repos, db, err := mysql.NewRepositories(ctx, &app.config.Storage.MySQL)
		if err != nil {
			return fmt.Errorf("mysql init: %w", err)
		}
		app.history = repos.History
		app.dbPinger = db
		app.dbCloser = db

		app.logger.Get().Info("MySQL storage initialized",
			"host", app.config.Storage.MySQL.Primary.Host,
			"database", app.config.Storage.MySQL.Primary.Database,
			"replica", app.config.Storage.MySQL.Replica.Enabled,
		)

	case "sqlite":
		db, err := sqlite.NewDB(app.config.Storage.SQLite.Path)
		if err != nil {
			return fmt.Errorf("sqlite init: %w", err)
		}

		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return fmt.Errorf("sqlite migration: %w", err)
		}

		app.history = sqlite.NewRepositories(db.DB).History
		app.dbPinger = db
		app.dbCloser = db

		app.logger.Get().Info("SQLite storage initialized",
			"path", app.config.Storage.SQLite.Path,
		)

	case "memory", "":
		app.history = memory.NewHistoryRepository()

		app.logger.Get().Info("in-memory storage initialized")

	default:
		return fmt.Errorf("unknown storage type: %s", app.config.Storage.Type)
	}

	return nil
}
