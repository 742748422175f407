package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrRequiresRestart is returned by Reload when the file changed keys that
// cannot be applied to a running process.
var ErrRequiresRestart = errors.New("configuration change requires restart")

// Manager owns the live configuration and applies hot-reloadable changes.
type Manager struct {
	path   string
	logger *slog.Logger

	mu          sync.RWMutex
	current     *Config
	subscribers []func(*Config)
}

// NewManager creates a manager seeded with an already loaded configuration.
func NewManager(path string, initial *Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, current: initial, logger: logger}
}

// Current returns the live configuration. Callers must not mutate it.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn to receive the configuration after each applied reload.
func (m *Manager) Subscribe(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Reload re-reads the file and applies the reloadable keys that changed.
// Changed static keys are not applied and produce ErrRequiresRestart.
func (m *Manager) Reload() error {
	loaded, err := Load(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed, err := changedKeys(m.current, loaded)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	var static []string
	next := *m.current
	applied := 0
	for _, key := range changed {
		if IsReloadable(key) {
			applyKey(&next, loaded, key)
			applied++
			continue
		}
		static = append(static, key)
	}

	var subs []func(*Config)
	if applied > 0 {
		m.current = &next
		subs = append(subs, m.subscribers...)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(&next)
	}
	if applied > 0 {
		m.logger.Info("configuration reloaded", "keys", applied)
	}

	if len(static) > 0 {
		reasons := make([]string, 0, len(static))
		for _, key := range static {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", key, getRestartReason(key)))
		}
		return fmt.Errorf("%w: %s", ErrRequiresRestart, strings.Join(reasons, ", "))
	}
	return nil
}

// Watch reloads on every write to the config file until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}

	v := viper.New()
	v.SetConfigFile(m.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := m.Reload(); err != nil {
			m.logger.Warn("configuration reload incomplete", "file", e.Name, "error", err)
		}
	})
	v.WatchConfig()

	m.logger.Info("watching configuration", "file", m.path)
	<-ctx.Done()
	return nil
}

// applyKey copies one reloadable key from src into dst.
func applyKey(dst, src *Config, key string) {
	switch key {
	case "logging.level":
		dst.Logging.Level = src.Logging.Level
	case "logging.format":
		dst.Logging.Format = src.Logging.Format
	}
}

// changedKeys flattens both configurations to dotted keys and lists those
// whose values differ.
func changedKeys(a, b *Config) ([]string, error) {
	fa, err := flatten(a)
	if err != nil {
		return nil, err
	}
	fb, err := flatten(b)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var keys []string
	for _, m := range []map[string]any{fa, fb} {
		for key := range m {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if !reflect.DeepEqual(fa[key], fb[key]) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func flatten(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("flatten config: %w", err)
	}

	out := make(map[string]any)
	for _, key := range v.AllKeys() {
		out[key] = v.Get(key)
	}
	return out, nil
}
