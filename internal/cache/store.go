// Package cache persists per-bucket JSON blobs for the overview service.
//
// Stores are best effort. There is no locking: two callers that miss the same
// bucket will both fetch, and whichever writes second is either skipped or
// overwrites an equivalent blob. Lost updates are accepted because entries in
// one bucket are derived from the same upstream data.
package cache

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Read when no entry exists for the key.
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorruptEntry is returned by Read when the stored blob is not valid JSON.
	ErrCorruptEntry = errors.New("cache entry corrupt")
)

// Store is a key to JSON blob store.
type Store interface {
	// Exists reports whether an entry is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Read decodes the entry stored under key into v.
	Read(ctx context.Context, key string, v any) error
	// Write stores v under key unless an entry already exists.
	Write(ctx context.Context, key string, v any) error
	// Prune deletes the entry under key. Missing entries and delete failures
	// are not reported.
	Prune(ctx context.Context, key string)
}
