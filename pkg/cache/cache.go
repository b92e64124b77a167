// Package cache provides caching for export pipeline results.
//
// Two implementations cover the common cases: [FileCache] persists entries
// on disk for CLI and server usage, and [NullCache] disables caching for
// tests. The [Keyer] builds content-addressed keys from bundle hashes and
// export options so that the CLI and the control server share entries.
package cache

import (
	"context"
	"time"
)

// TTL values for the different entry kinds. Built graphs are quick to derive
// from a bundle, so they expire daily. Rendered artifacts are derived purely
// from graph content and options and can live longer.
const (
	TTLGraph    = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented cache with per-entry TTL expiry.
//
// Get returns (data, true, nil) on a hit and (nil, false, nil) on a miss;
// errors are reserved for I/O failures. Implementations treat unknown keys
// as misses, never as errors.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
