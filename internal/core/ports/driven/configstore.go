package driven

import "time"

// ConfigStore provides read access to file-backed configuration.
// Keys use dot notation for nested tables (e.g., "retry.attempts").
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" when absent.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 when absent.
	GetInt(key string) int

	// GetFloat retrieves a float value, or 0 when absent.
	GetFloat(key string) float64

	// GetDuration retrieves a duration written as a string ("2s") or
	// as integer seconds, or 0 when absent.
	GetDuration(key string) time.Duration

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
