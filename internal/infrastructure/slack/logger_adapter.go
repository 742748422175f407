package slack

import "strings"

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// debugLogAdapter routes slack-go's debug output into the structured logger.
// It satisfies the printf-style logger accepted by slack.OptionLog.
type debugLogAdapter struct {
	logger Logger
}

func (a debugLogAdapter) Output(_ int, s string) error {
	a.logger.Debug("slack api", "message", strings.TrimSpace(s))
	return nil
}
