package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/tripwise/internal/core/ports/driven"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "tripwise.toml"

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a read-only TOML configuration file.
// Nested tables are flattened to dot-notation keys, so
//
//	[retry]
//	attempts = 3
//
// is read as "retry.attempts". Load swaps in a fresh snapshot, so readers
// never see a half-parsed file.
type ConfigStore struct {
	filePath string
	values   atomic.Pointer[map[string]any]
}

// NewConfigStore opens the TOML file at filePath. A missing file is an
// empty configuration; a malformed one is an error.
func NewConfigStore(filePath string) (*ConfigStore, error) {
	if filePath == "" {
		filePath = DefaultFileName
	}
	s := &ConfigStore{filePath: filePath}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load re-reads the file.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		raw = nil
	case err != nil:
		return fmt.Errorf("read config %s: %w", s.filePath, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse config %s: %w", s.filePath, err)
	}

	values := make(map[string]any)
	flatten(values, "", doc)
	s.values.Store(&values)
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string { return s.filePath }

// Get returns the raw TOML value for key.
func (s *ConfigStore) Get(key string) (any, bool) {
	values := s.values.Load()
	if values == nil {
		return nil, false
	}
	v, ok := (*values)[key]
	return v, ok
}

// GetString returns key as a string, or "" when absent or not a string.
func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt returns key as an int. TOML integers decode as int64.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return 0
}

// GetFloat returns key as a float64, widening integers.
func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

// GetDuration accepts a Go duration string ("90s", "2m") or integer seconds.
func (s *ConfigStore) GetDuration(key string) time.Duration {
	v, _ := s.Get(key)
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	case int64:
		return time.Duration(d) * time.Second
	}
	return 0
}

// flatten copies src into dst with nested tables joined by dots.
func flatten(dst map[string]any, prefix string, src map[string]any) {
	for k, v := range src {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(dst, k, table)
			continue
		}
		dst[k] = v
	}
}
