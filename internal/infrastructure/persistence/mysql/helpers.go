package mysql

import (
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/qj0r9j0vc2/rtm-bot/internal/domain/repository"
)

// MySQL server error numbers.
const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
	erServerGone      = 2006
	erServerLost      = 2013
)

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

// mapError maps MySQL errors to domain repository errors.
func mapError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry {
		return repository.ErrAlreadyExists
	}
	return err
}

// isRetryable reports transient failures: deadlocks, lock timeouts and dropped connections.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case erLockDeadlock, erLockWaitTimeout, erServerGone, erServerLost:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe")
}
