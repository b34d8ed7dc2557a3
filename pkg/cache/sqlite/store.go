// Package sqlite implements the score cache (C9, spec §4.9) on top of
// modernc.org/sqlite, the teacher's pure-Go SQLite driver
// (pkg/storage/sqlite/store.go). Unlike the teacher's hand-rolled
// version-table migration runner, schema setup here goes through
// golang-migrate so the other ecosystem dependency the retrieval pack
// lists for schema management gets a real home (see DESIGN.md).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ossuary/ossuary/pkg/cache"
	"github.com/ossuary/ossuary/pkg/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements cache.Cache using SQLite in WAL mode, one writer at
// a time, matching the teacher's pkg/storage/sqlite.Store connection
// settings.
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) the SQLite database at dbPath and
// applies pending migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running cache migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrateSchema(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("building migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("building migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// Close implements cache.Cache.
func (s *Store) Close() error {
	return s.db.Close()
}

// Read implements cache.Cache.
func (s *Store) Read(ctx context.Context, ecosystem model.Ecosystem, name, asOfBucket string, maxAge time.Duration) (model.Score, bool, error) {
	var scoreJSON string
	var computedAt time.Time

	row := s.db.QueryRowContext(ctx, `
		SELECT score_json, computed_at FROM scores
		WHERE ecosystem = ? AND name = ? AND as_of_bucket = ?
	`, string(ecosystem), name, asOfBucket)

	if err := row.Scan(&scoreJSON, &computedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.Score{}, false, nil
		}
		return model.Score{}, false, fmt.Errorf("reading cached score: %w", err)
	}

	if time.Since(computedAt) > maxAge {
		return model.Score{}, false, nil
	}

	var score model.Score
	if err := json.Unmarshal([]byte(scoreJSON), &score); err != nil {
		return model.Score{}, false, fmt.Errorf("decoding cached score: %w", err)
	}
	return score, true, nil
}

// Write implements cache.Cache: upserts scores and appends
// score_history in one transaction, so a reader never observes a
// scores row without its corresponding history entry or vice versa.
func (s *Store) Write(ctx context.Context, ecosystem model.Ecosystem, name, asOfBucket string, score model.Score) error {
	payload, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("encoding score: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning cache write transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scores (ecosystem, name, as_of_bucket, score_json, score_value, level, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ecosystem, name, as_of_bucket) DO UPDATE SET
			score_json = excluded.score_json,
			score_value = excluded.score_value,
			level = excluded.level,
			computed_at = excluded.computed_at
	`, string(ecosystem), name, asOfBucket, string(payload), score.Score, string(score.Level), score.ComputedAt)
	if err != nil {
		return fmt.Errorf("upserting score: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO score_history (id, ecosystem, name, score_value, score_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), string(ecosystem), name, score.Score, string(payload), score.ComputedAt)
	if err != nil {
		return fmt.Errorf("appending score history: %w", err)
	}

	return tx.Commit()
}

// Movers implements cache.Cache's delta query (spec §4.9): for every
// package with at least two history rows within `since` whose two most
// recent rows differ, the absolute difference between those rows, sorted
// descending and tie-broken by later computed_at.
func (s *Store) Movers(ctx context.Context, limit int, since time.Duration) ([]cache.Mover, error) {
	cutoff := time.Now().UTC().Add(-since)

	rows, err := s.db.QueryContext(ctx, `
		SELECT ecosystem, name, score_value, computed_at FROM score_history
		WHERE computed_at >= ?
		ORDER BY ecosystem, name, computed_at DESC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying score history: %w", err)
	}
	defer rows.Close()

	type pair struct {
		newest, prior *struct {
			score      int
			computedAt time.Time
		}
	}
	byPackage := make(map[string]*pair)
	order := make([]string, 0)

	for rows.Next() {
		var ecosystem, name string
		var scoreValue int
		var computedAt time.Time
		if err := rows.Scan(&ecosystem, &name, &scoreValue, &computedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		key := ecosystem + ":" + name
		p, ok := byPackage[key]
		if !ok {
			p = &pair{}
			byPackage[key] = p
			order = append(order, key)
		}
		entry := &struct {
			score      int
			computedAt time.Time
		}{scoreValue, computedAt}
		switch {
		case p.newest == nil:
			p.newest = entry
		case p.prior == nil:
			p.prior = entry
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	movers := make([]cache.Mover, 0, len(order))
	for _, key := range order {
		p := byPackage[key]
		if p.newest == nil || p.prior == nil || p.newest.score == p.prior.score {
			continue
		}
		ecosystem, name := splitKey(key)
		movers = append(movers, cache.Mover{
			Ecosystem:  model.Ecosystem(ecosystem),
			Name:       name,
			From:       p.prior.score,
			To:         p.newest.score,
			ComputedAt: p.newest.computedAt,
		})
	}

	sort.Slice(movers, func(i, j int) bool {
		di, dj := abs(movers[i].Delta()), abs(movers[j].Delta())
		if di != dj {
			return di > dj
		}
		return movers[i].ComputedAt.After(movers[j].ComputedAt)
	})

	if limit > 0 && len(movers) > limit {
		movers = movers[:limit]
	}
	return movers, nil
}

// Stale implements cache.Cache: current-bucket entries older than
// maxAge, optionally narrowed to one ecosystem.
func (s *Store) Stale(ctx context.Context, ecosystem *model.Ecosystem, maxAge time.Duration) ([]model.PackageIdentity, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	query := `SELECT ecosystem, name FROM scores WHERE as_of_bucket = '' AND computed_at < ?`
	queryArgs := []any{cutoff}
	if ecosystem != nil {
		query += ` AND ecosystem = ?`
		queryArgs = append(queryArgs, string(*ecosystem))
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying stale scores: %w", err)
	}
	defer rows.Close()

	var identities []model.PackageIdentity
	for rows.Next() {
		var eco, name string
		if err := rows.Scan(&eco, &name); err != nil {
			return nil, fmt.Errorf("scanning stale row: %w", err)
		}
		identities = append(identities, model.PackageIdentity{Ecosystem: model.Ecosystem(eco), Name: name})
	}
	return identities, rows.Err()
}

// List implements cache.Cache: every current-bucket entry, optionally
// narrowed to one ecosystem, for the status command's freshness report.
func (s *Store) List(ctx context.Context, ecosystem *model.Ecosystem) ([]model.CacheEntry, error) {
	query := `SELECT ecosystem, name, score_json, computed_at FROM scores WHERE as_of_bucket = ''`
	queryArgs := []any{}
	if ecosystem != nil {
		query += ` AND ecosystem = ?`
		queryArgs = append(queryArgs, string(*ecosystem))
	}
	query += ` ORDER BY ecosystem, name`

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var entries []model.CacheEntry
	for rows.Next() {
		var eco, name, scoreJSON string
		var computedAt time.Time
		if err := rows.Scan(&eco, &name, &scoreJSON, &computedAt); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		var score model.Score
		if err := json.Unmarshal([]byte(scoreJSON), &score); err != nil {
			return nil, fmt.Errorf("decoding cached score: %w", err)
		}
		entries = append(entries, model.CacheEntry{
			Ecosystem:  model.Ecosystem(eco),
			Name:       name,
			Score:      score,
			ComputedAt: computedAt,
		})
	}
	return entries, rows.Err()
}

func splitKey(key string) (ecosystem, name string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
