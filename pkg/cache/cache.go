// Package cache defines the score cache and movers contract (C9, spec
// §4.9): a freshness-gated key→Score store with an append-only history
// table. Grounded on the teacher's pkg/storage.Store interface
// (storage.go) — a small, explicit interface segregating the
// persistence contract from its SQLite implementation in
// pkg/cache/sqlite.
package cache

import (
	"context"
	"time"

	"github.com/ossuary/ossuary/pkg/model"
)

// Mover is one row of a movers() query result: a package whose score
// changed the most over the requested window.
type Mover struct {
	Ecosystem  model.Ecosystem
	Name       string
	From       int
	To         int
	ComputedAt time.Time
}

// Delta returns To - From.
func (m Mover) Delta() int {
	return m.To - m.From
}

// Cache is the persistence contract the orchestrator (C10) uses to
// read/write scores and query movers. Implementations MUST make read
// and write individually atomic; batch seeding is many independent
// writes, never one cross-package transaction (spec §4.9).
type Cache interface {
	// Read returns a cached Score iff one exists for (ecosystem, name,
	// asOfBucket) with computed_at >= now - maxAge. asOfBucket is the
	// empty string for "current" scores. Returns (Score{}, false, nil)
	// on a clean miss.
	Read(ctx context.Context, ecosystem model.Ecosystem, name, asOfBucket string, maxAge time.Duration) (model.Score, bool, error)

	// Write upserts the scores table and appends a score_history row,
	// atomically.
	Write(ctx context.Context, ecosystem model.Ecosystem, name, asOfBucket string, score model.Score) error

	// Movers returns up to limit packages whose most recent two history
	// rows within since differ by the largest absolute score delta,
	// descending, ties broken by later computed_at.
	Movers(ctx context.Context, limit int, since time.Duration) ([]Mover, error)

	// Stale returns every "current" (as_of_bucket == "") cache entry
	// computed more than maxAge ago, optionally filtered to one
	// ecosystem. Used by the refresh command (spec §6) to find what to
	// recompute without the caller tracking package lists itself.
	Stale(ctx context.Context, ecosystem *model.Ecosystem, maxAge time.Duration) ([]model.PackageIdentity, error)

	// List returns every "current" (as_of_bucket == "") cache entry,
	// optionally filtered to one ecosystem, each carrying its
	// computed_at so the caller can bucket entries by age. Used by the
	// status command's freshness listing (a SPEC_FULL.md §12 supplement).
	List(ctx context.Context, ecosystem *model.Ecosystem) ([]model.CacheEntry, error)

	// Close releases any underlying resources.
	Close() error
}
