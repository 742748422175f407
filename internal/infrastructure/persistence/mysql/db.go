package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

// DB wraps a MySQL primary connection and an optional read replica.
type DB struct {
	primary *sql.DB
	replica *sql.DB
}

// NewDB opens the primary (and replica, when enabled) connection pools and
// verifies each with a ping.
func NewDB(cfg *config.MySQLConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config is required")
	}

	primary, err := openPool(cfg, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}
	db := &DB{primary: primary}

	if cfg.Replica.Enabled {
		replica, err := openPool(cfg, config.MySQLInstanceConfig{
			Host:     cfg.Replica.Host,
			Port:     cfg.Replica.Port,
			Database: cfg.Replica.Database,
			Username: cfg.Replica.Username,
			Password: cfg.Replica.Password,
		})
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("replica: %w", err)
		}
		db.replica = replica
	}

	return db, nil
}

func openPool(cfg *config.MySQLConfig, inst config.MySQLInstanceConfig) (*sql.DB, error) {
	pool, err := sql.Open("mysql", buildDSN(inst, cfg.Charset, cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("opening connection: %w", err)
	}

	pool.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// buildDSN constructs a driver DSN for one instance. Time parsing is always
// on since created_at is scanned into time.Time.
func buildDSN(inst config.MySQLInstanceConfig, charset string, timeout time.Duration) string {
	dsn := mysql.NewConfig()
	dsn.User = inst.Username
	dsn.Passwd = inst.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(inst.Host, strconv.Itoa(inst.Port))
	dsn.DBName = inst.Database
	dsn.ParseTime = true
	dsn.Timeout = timeout
	if charset != "" {
		dsn.Params = map[string]string{"charset": charset}
	}
	return dsn.FormatDSN()
}

// Primary returns the connection for writes and consistent reads.
func (db *DB) Primary() *sql.DB {
	return db.primary
}

// Replica returns the read replica, or the primary if none is configured.
func (db *DB) Replica() *sql.DB {
	if db.replica != nil {
		return db.replica
	}
	return db.primary
}

// Ping checks connectivity to the primary and the replica, if any.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary ping failed: %w", err)
	}
	if db.replica != nil {
		if err := db.replica.PingContext(ctx); err != nil {
			return fmt.Errorf("replica ping failed: %w", err)
		}
	}
	return nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var primaryErr, replicaErr error
	if db.primary != nil {
		primaryErr = db.primary.Close()
	}
	if db.replica != nil {
		replicaErr = db.replica.Close()
	}

	if primaryErr != nil {
		return fmt.Errorf("closing primary: %w", primaryErr)
	}
	if replicaErr != nil {
		return fmt.Errorf("closing replica: %w", replicaErr)
	}
	return nil
}
