// Package durations persists the slot length configured for each calendar day.
//
// Two backends are available: a JSON file keyed by YYYY-MM-DD (the default)
// and a Redis hash for deployments running more than one instance. Both
// return the configured default for days that were never set. Writes are
// last-write-wins.
package durations

import (
	"context"
	"errors"
	"fmt"

	"github.com/teemow/meetslots/internal/slots"
)

// ErrInvalidDuration is returned when saving a non-positive duration.
var ErrInvalidDuration = errors.New("slot duration must be a positive number of minutes")

// Backend names accepted by Open.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// DefaultFile is the file used by the file backend when no path is configured.
const DefaultFile = "slot_durations.json"

// Store loads and saves per-day slot durations in minutes.
type Store interface {
	// Load returns the duration stored for day, or the default if none is stored.
	Load(ctx context.Context, day slots.Date) (int, error)

	// Save sets the duration for day, replacing any previous value.
	Save(ctx context.Context, day slots.Date, minutes int) error

	// All returns every stored duration keyed by YYYY-MM-DD.
	All(ctx context.Context) (map[string]int, error)
}

// Config selects and configures a Store backend.
type Config struct {
	Backend        string
	Path           string
	DefaultMinutes int
	Redis          RedisConfig
}

// Open returns the Store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.DefaultMinutes <= 0 {
		return nil, fmt.Errorf("default slot duration: %w", ErrInvalidDuration)
	}

	switch cfg.Backend {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			path = DefaultFile
		}
		return NewFileStore(path, cfg.DefaultMinutes), nil
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.DefaultMinutes)
	default:
		return nil, fmt.Errorf("unsupported duration store backend %q (supported: file, redis)", cfg.Backend)
	}
}

func validateMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, minutes)
	}
	return nil
}
