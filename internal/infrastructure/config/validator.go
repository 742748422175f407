package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// reloadableKeys defines the whitelist of configuration keys that can be hot-reloaded.
var reloadableKeys = map[string]bool{
	"logging.level":  true,
	"logging.format": true,
}

// staticKeys defines configuration keys that require application restart.
var staticKeys = map[string]string{
	"server.port":        "HTTP listener restart required",
	"storage.type":       "Storage backend initialization required",
	"storage.sqlite":     "Database connection recreation required",
	"storage.mysql":      "Database connection pool recreation required",
	"slack.bot_token":    "Session re-establishment required",
	"slack.alert":        "Grammar rebuild required",
	"slack.load_history": "History load runs once at startup",
	"plugins":            "Plugin registration happens at startup",
	"pagerduty":          "Plugin registration happens at startup",
}

// IsReloadable returns true if the given config key can be hot-reloaded.
func IsReloadable(key string) bool {
	return reloadableKeys[key]
}

// getRestartReason returns the reason why a static config key requires restart.
// Keys are matched on their longest known prefix.
func getRestartReason(key string) string {
	best := ""
	for prefix := range staticKeys {
		if (key == prefix || strings.HasPrefix(key, prefix+".")) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return staticKeys[best]
	}
	return "unknown configuration requires restart"
}

// ValidateLogLevel checks if the log level is valid.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// ValidateLogFormat checks if the log format is valid.
func ValidateLogFormat(format string) error {
	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[strings.ToLower(format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
	return nil
}

// ValidateNonEmpty checks if a string is non-empty.
func ValidateNonEmpty(value string, fieldName string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateDuration checks if a duration is greater than zero.
func ValidateDuration(duration time.Duration, fieldName string) error {
	if duration <= 0 {
		return fmt.Errorf("%s must be greater than 0", fieldName)
	}
	return nil
}

// ValidatePort checks if a port number is valid.
func ValidatePort(port int, fieldName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", fieldName, port)
	}
	return nil
}

// ValidateStorageType checks if the storage type is valid.
func ValidateStorageType(storageType string) error {
	validTypes := map[string]bool{
		"memory": true,
		"sqlite": true,
		"mysql":  true,
	}
	if !validTypes[storageType] {
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, or mysql)", storageType)
	}
	return nil
}

// Validate performs comprehensive validation on the configuration.
// Every failure is collected and reported together.
func (c *Config) Validate() error {
	var errs []string
	check := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	// Server
	check(ValidatePort(c.Server.Port, "server.port"))
	check(ValidateDuration(c.Server.ReadTimeout, "server.read_timeout"))
	check(ValidateDuration(c.Server.WriteTimeout, "server.write_timeout"))
	check(ValidateDuration(c.Server.RequestTimeout, "server.request_timeout"))
	check(ValidateDuration(c.Server.ShutdownTimeout, "server.shutdown_timeout"))
	if c.Server.RequestTimeout >= c.Server.WriteTimeout {
		errs = append(errs, "server.request_timeout must be less than server.write_timeout")
	}

	// Slack
	check(ValidateNonEmpty(c.Slack.BotToken, "slack.bot_token"))
	check(ValidateNonEmpty(c.Slack.Alert, "slack.alert"))
	if strings.ContainsAny(c.Slack.Alert, " \t\n") {
		errs = append(errs, "slack.alert cannot contain whitespace")
	}
	if c.Slack.Alert != "" && utf8.RuneCountInString(c.Slack.Alert) != 1 {
		errs = append(errs, "slack.alert must be a single character")
	}
	if c.Slack.DMWorkers < 1 {
		errs = append(errs, "slack.dm_workers must be at least 1")
	}
	if c.Slack.SendRate <= 0 {
		errs = append(errs, "slack.send_rate must be greater than 0")
	}
	if c.Slack.SendBurst < 1 {
		errs = append(errs, "slack.send_burst must be at least 1")
	}
	check(ValidateDuration(c.Slack.RequestTimeout, "slack.request_timeout"))
	check(ValidateDuration(c.Slack.PingInterval, "slack.ping_interval"))
	check(ValidateDuration(c.Slack.RetryInitialInterval, "slack.retry_initial_interval"))
	check(ValidateDuration(c.Slack.RetryMaxInterval, "slack.retry_max_interval"))
	if c.Slack.RetryMaxInterval < c.Slack.RetryInitialInterval {
		errs = append(errs, "slack.retry_max_interval must not be less than slack.retry_initial_interval")
	}
	if c.Slack.BreakerMaxFailures < 1 {
		errs = append(errs, "slack.breaker_max_failures must be at least 1")
	}
	check(ValidateDuration(c.Slack.BreakerTimeout, "slack.breaker_timeout"))

	// Storage
	check(ValidateStorageType(c.Storage.Type))
	if c.Storage.Type == "sqlite" {
		check(ValidateNonEmpty(c.Storage.SQLite.Path, "storage.sqlite.path"))
	}
	if c.Storage.Type == "mysql" {
		errs = append(errs, c.validateMySQL()...)
	}

	// PagerDuty
	if c.IsPagerDutyEnabled() {
		check(ValidateNonEmpty(c.PagerDuty.APIToken, "pagerduty.api_token"))
	}
	if c.Plugins.OnCall.Enabled && !c.IsPagerDutyEnabled() {
		errs = append(errs, "plugins.oncall requires pagerduty.enabled")
	}

	// Plugins
	if c.Plugins.WordCloud.Words < 1 {
		errs = append(errs, "plugins.wordcloud.words must be at least 1")
	}
	if c.Plugins.WordCloud.UploadThreshold < 1 {
		errs = append(errs, "plugins.wordcloud.upload_threshold must be at least 1")
	}
	for i, rule := range c.Plugins.Reactor.Rules {
		if rule.Keyword == "" || rule.Emoji == "" {
			errs = append(errs, fmt.Sprintf("plugins.reactor.rules[%d] needs both keyword and emoji", i))
		}
	}

	// Logging
	check(ValidateLogLevel(c.Logging.Level))
	check(ValidateLogFormat(c.Logging.Format))
	if c.Logging.File.Dir != "" {
		if c.Logging.File.MaxSizeMB <= 0 || c.Logging.File.MaxBackups <= 0 || c.Logging.File.MaxAgeDays <= 0 {
			errs = append(errs, "logging.file size, backups and age must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateMySQL() []string {
	var errs []string
	check := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	m := c.Storage.MySQL
	check(ValidateNonEmpty(m.Primary.Host, "storage.mysql.primary.host"))
	check(ValidatePort(m.Primary.Port, "storage.mysql.primary.port"))
	check(ValidateNonEmpty(m.Primary.Database, "storage.mysql.primary.database"))
	check(ValidateNonEmpty(m.Primary.Username, "storage.mysql.primary.username"))
	check(ValidateNonEmpty(m.Primary.Password, "storage.mysql.primary.password"))

	if m.Replica.Enabled {
		check(ValidateNonEmpty(m.Replica.Host, "storage.mysql.replica.host"))
		check(ValidatePort(m.Replica.Port, "storage.mysql.replica.port"))
		check(ValidateNonEmpty(m.Replica.Database, "storage.mysql.replica.database"))
		check(ValidateNonEmpty(m.Replica.Username, "storage.mysql.replica.username"))
		check(ValidateNonEmpty(m.Replica.Password, "storage.mysql.replica.password"))
	}

	if m.Pool.MaxOpenConns < 1 {
		errs = append(errs, "storage.mysql.pool.max_open_conns must be at least 1")
	}
	if m.Pool.MaxIdleConns < 0 {
		errs = append(errs, "storage.mysql.pool.max_idle_conns cannot be negative")
	}
	if m.Pool.MaxIdleConns > m.Pool.MaxOpenConns {
		errs = append(errs, "storage.mysql.pool.max_idle_conns cannot exceed max_open_conns")
	}
	return errs
}
