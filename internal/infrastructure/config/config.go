package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Slack     SlackConfig     `yaml:"slack"`
	PagerDuty PagerDutyConfig `yaml:"pagerduty"`
	Plugins   PluginsConfig   `yaml:"plugins"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig holds history store settings.
type StorageConfig struct {
	Type   string       `yaml:"type"` // "memory", "sqlite", or "mysql"
	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // Database file path, use ":memory:" for in-memory
}

// MySQLConfig holds MySQL-specific settings.
type MySQLConfig struct {
	Primary MySQLInstanceConfig `yaml:"primary"`
	Replica MySQLReplicaConfig  `yaml:"replica"`
	Pool    MySQLPoolConfig     `yaml:"pool"`
	Timeout time.Duration       `yaml:"timeout"`
	Charset string              `yaml:"charset"`
}

// MySQLInstanceConfig holds MySQL instance connection settings.
type MySQLInstanceConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MySQLReplicaConfig holds MySQL read replica settings.
type MySQLReplicaConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MySQLPoolConfig holds MySQL connection pool settings.
type MySQLPoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ServerConfig holds operational HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SlackConfig holds the bot session settings.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	APIURL   string `yaml:"api_url"`
	Debug    bool   `yaml:"debug"`

	// BotName overrides the name reported at session establishment.
	BotName string `yaml:"bot_name"`

	// Alert is the command prefix outside direct messages.
	Alert string `yaml:"alert"`

	LoadHistory bool `yaml:"load_history"`
	DMWorkers   int  `yaml:"dm_workers"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	SendRate       float64       `yaml:"send_rate"`
	SendBurst      int           `yaml:"send_burst"`

	RetryInitialInterval time.Duration `yaml:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"`

	BreakerMaxFailures int           `yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// PagerDutyConfig holds PagerDuty REST settings used by the oncall plugin.
type PagerDutyConfig struct {
	Enabled     bool     `yaml:"enabled"`
	APIToken    string   `yaml:"api_token"`
	APIURL      string   `yaml:"api_url"`
	ScheduleIDs []string `yaml:"schedule_ids"`
}

// PluginsConfig toggles and tunes the bundled plugins.
type PluginsConfig struct {
	WordCloud WordCloudConfig `yaml:"wordcloud"`
	OnCall    OnCallConfig    `yaml:"oncall"`
	Reactor   ReactorConfig   `yaml:"reactor"`
}

// WordCloudConfig configures the word frequency command.
type WordCloudConfig struct {
	Enabled bool `yaml:"enabled"`

	// Words is how many words are listed.
	Words int `yaml:"words"`

	// UploadThreshold is the listing length in bytes above which the
	// result is uploaded as a file instead of sent as a message.
	UploadThreshold int `yaml:"upload_threshold"`

	Stopwords []string `yaml:"stopwords"`
}

// OnCallConfig configures the on-call lookup command.
type OnCallConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ReactorConfig configures keyword reactions.
type ReactorConfig struct {
	Enabled bool          `yaml:"enabled"`
	Rules   []ReactorRule `yaml:"rules"`
}

// ReactorRule reacts with Emoji to messages containing Keyword.
type ReactorRule struct {
	Keyword string `yaml:"keyword"`
	Emoji   string `yaml:"emoji"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig enables rotated file output next to stdout.
type LogFileConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a .env file, the YAML file and the environment.
func Load(path string) (*Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// Load from file if exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			// Expand environment variables in YAML
			expandedData := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotenv loads variables from path when it exists. Variables already set
// in the environment win.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat dotenv file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load dotenv file %s: %w", path, err)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.ToLower(v) == "true"
	}
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// overrideFromEnv overrides config values from environment variables.
func (c *Config) overrideFromEnv() {
	// Server
	envInt("SERVER_PORT", &c.Server.Port)

	// Slack
	envString("SLACK_BOT_TOKEN", &c.Slack.BotToken)
	envString("SLACK_API_URL", &c.Slack.APIURL)
	envString("SLACK_BOT_NAME", &c.Slack.BotName)
	envString("SLACK_ALERT", &c.Slack.Alert)
	envBool("SLACK_LOAD_HISTORY", &c.Slack.LoadHistory)
	envBool("SLACK_DEBUG", &c.Slack.Debug)
	envInt("SLACK_DM_WORKERS", &c.Slack.DMWorkers)

	// PagerDuty
	envBool("PAGERDUTY_ENABLED", &c.PagerDuty.Enabled)
	envString("PAGERDUTY_API_TOKEN", &c.PagerDuty.APIToken)
	if v := os.Getenv("PAGERDUTY_SCHEDULE_IDS"); v != "" {
		c.PagerDuty.ScheduleIDs = splitList(v)
	}

	// Logging
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_FORMAT", &c.Logging.Format)
	envString("LOG_DIR", &c.Logging.File.Dir)

	// Storage
	envString("STORAGE_TYPE", &c.Storage.Type)
	envString("SQLITE_DATABASE_PATH", &c.Storage.SQLite.Path)

	// MySQL
	envString("MYSQL_HOST", &c.Storage.MySQL.Primary.Host)
	envInt("MYSQL_PORT", &c.Storage.MySQL.Primary.Port)
	envString("MYSQL_DATABASE", &c.Storage.MySQL.Primary.Database)
	envString("MYSQL_USERNAME", &c.Storage.MySQL.Primary.Username)
	envString("MYSQL_PASSWORD", &c.Storage.MySQL.Primary.Password)
	envInt("MYSQL_MAX_OPEN_CONNS", &c.Storage.MySQL.Pool.MaxOpenConns)
	envInt("MYSQL_MAX_IDLE_CONNS", &c.Storage.MySQL.Pool.MaxIdleConns)
	envDuration("MYSQL_CONN_MAX_LIFETIME", &c.Storage.MySQL.Pool.ConnMaxLifetime)
	envDuration("MYSQL_CONN_MAX_IDLE_TIME", &c.Storage.MySQL.Pool.ConnMaxIdleTime)

	// MySQL Replica (optional)
	envBool("MYSQL_REPLICA_ENABLED", &c.Storage.MySQL.Replica.Enabled)
	envString("MYSQL_REPLICA_HOST", &c.Storage.MySQL.Replica.Host)
	envInt("MYSQL_REPLICA_PORT", &c.Storage.MySQL.Replica.Port)
	envString("MYSQL_REPLICA_DATABASE", &c.Storage.MySQL.Replica.Database)
	envString("MYSQL_REPLICA_USERNAME", &c.Storage.MySQL.Replica.Username)
	envString("MYSQL_REPLICA_PASSWORD", &c.Storage.MySQL.Replica.Password)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyDefaults sets default values for unset config options.
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 5 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}

	// Slack defaults
	if c.Slack.Alert == "" {
		c.Slack.Alert = "!"
	}
	if c.Slack.DMWorkers == 0 {
		c.Slack.DMWorkers = 8
	}
	if c.Slack.RequestTimeout == 0 {
		c.Slack.RequestTimeout = 30 * time.Second
	}
	if c.Slack.PingInterval == 0 {
		c.Slack.PingInterval = 30 * time.Second
	}
	if c.Slack.SendRate == 0 {
		c.Slack.SendRate = 1
	}
	if c.Slack.SendBurst == 0 {
		c.Slack.SendBurst = 3
	}
	if c.Slack.RetryInitialInterval == 0 {
		c.Slack.RetryInitialInterval = time.Second
	}
	if c.Slack.RetryMaxInterval == 0 {
		c.Slack.RetryMaxInterval = time.Minute
	}
	if c.Slack.BreakerMaxFailures == 0 {
		c.Slack.BreakerMaxFailures = 5
	}
	if c.Slack.BreakerTimeout == 0 {
		c.Slack.BreakerTimeout = 30 * time.Second
	}

	// Plugin defaults
	if c.Plugins.WordCloud.Words == 0 {
		c.Plugins.WordCloud.Words = 20
	}
	if c.Plugins.WordCloud.UploadThreshold == 0 {
		c.Plugins.WordCloud.UploadThreshold = 3000
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.File.MaxSizeMB == 0 {
		c.Logging.File.MaxSizeMB = 100
	}
	if c.Logging.File.MaxBackups == 0 {
		c.Logging.File.MaxBackups = 5
	}
	if c.Logging.File.MaxAgeDays == 0 {
		c.Logging.File.MaxAgeDays = 28
	}

	// Storage defaults
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "./data/rtm-bot.db"
	}

	// MySQL defaults
	if c.Storage.MySQL.Pool.MaxOpenConns == 0 {
		c.Storage.MySQL.Pool.MaxOpenConns = 25
	}
	if c.Storage.MySQL.Pool.MaxIdleConns == 0 {
		c.Storage.MySQL.Pool.MaxIdleConns = 5
	}
	if c.Storage.MySQL.Pool.ConnMaxLifetime == 0 {
		c.Storage.MySQL.Pool.ConnMaxLifetime = 3 * time.Minute
	}
	if c.Storage.MySQL.Pool.ConnMaxIdleTime == 0 {
		c.Storage.MySQL.Pool.ConnMaxIdleTime = 1 * time.Minute
	}
	if c.Storage.MySQL.Timeout == 0 {
		c.Storage.MySQL.Timeout = 5 * time.Second
	}
	if c.Storage.MySQL.Charset == "" {
		c.Storage.MySQL.Charset = "utf8mb4"
	}
	if c.Storage.MySQL.Primary.Port == 0 {
		c.Storage.MySQL.Primary.Port = 3306
	}
	if c.Storage.MySQL.Replica.Port == 0 {
		c.Storage.MySQL.Replica.Port = 3306
	}
}

// IsPagerDutyEnabled returns true if the PagerDuty integration is enabled.
func (c *Config) IsPagerDutyEnabled() bool {
	return c.PagerDuty.Enabled
}
