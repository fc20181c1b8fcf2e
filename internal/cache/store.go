// Package cache persists resolver lookups with per-entry freshness.
//
// Freshness is not stored with the entry: each Get supplies the TTL for the
// record class it is reading, so a single store serves coordinates, sun-times
// and weather with their different lifetimes. Missing or malformed entries
// are reported as misses, never as errors.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Record keys. Each is an independent record in the backing store.
const (
	KeyCoordinates = "coordinates"
	KeySunTimes    = "suntimes"
	KeyWeather     = "weather"
)

// TTL classes
const (
	TTLCoordinates = 24 * time.Hour
	TTLSunTimes    = 24 * time.Hour // callers also match the stored date
	TTLWeather     = time.Hour
)

// Store is a key/value store whose reads report freshness
type Store interface {
	// Get decodes the entry for key into dst and reports whether it exists,
	// is well-formed and is younger than ttl.
	Get(ctx context.Context, key string, ttl time.Duration, dst any) bool

	// Put overwrites the entry for key, stamping it with the current time
	Put(ctx context.Context, key string, value any) error

	// Clear deletes every entry. Safe on an empty store.
	Clear(ctx context.Context) error
}

// Entry is the on-store envelope for a cached value
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// Fresh reports whether the entry is younger than ttl at now
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}

// Option configures a store
type Option func(*codec)

// WithClock overrides the time source used for stamping and freshness
func WithClock(now func() time.Time) Option {
	return func(c *codec) {
		c.now = now
	}
}

// codec holds the envelope logic shared by all backends
type codec struct {
	now    func() time.Time
	logger *slog.Logger
}

func newCodec(logger *slog.Logger, opts []Option) codec {
	c := codec{now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c codec) encode(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Entry{Value: raw, Timestamp: c.now().UTC()})
}

// decode unpacks data into dst. Any malformed content is a logged miss.
func (c codec) decode(key string, data []byte, ttl time.Duration, dst any) bool {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Discarding malformed cache entry", "key", key, "error", err)
		return false
	}
	if entry.Timestamp.IsZero() || len(entry.Value) == 0 {
		c.logger.Warn("Discarding incomplete cache entry", "key", key)
		return false
	}
	if !entry.Fresh(c.now(), ttl) {
		c.logger.Debug("Cache entry is stale", "key", key, "age", c.now().Sub(entry.Timestamp).Round(time.Second))
		return false
	}
	if err := json.Unmarshal(entry.Value, dst); err != nil {
		c.logger.Warn("Discarding undecodable cache value", "key", key, "error", err)
		return false
	}
	return true
}

// Lookup is a typed wrapper around Store.Get
func Lookup[T any](ctx context.Context, s Store, key string, ttl time.Duration) (T, bool) {
	var v T
	if !s.Get(ctx, key, ttl, &v) {
		var zero T
		return zero, false
	}
	return v, true
}
