package respcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores raw model responses keyed by work unit and model, backed by
// SQLite. It lets a fresh run (cleared result table) reuse answers for
// requests the API has already been billed for.
type Cache struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS responses (
    reference    TEXT NOT NULL,
    species      TEXT NOT NULL,
    query_image  TEXT NOT NULL,
    model        TEXT NOT NULL,
    raw_text     TEXT NOT NULL,
    created_at   TEXT NOT NULL,
    PRIMARY KEY (reference, species, query_image, model)
);
`

// Open initializes or connects to the response cache database.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached raw text for a work unit, if present.
func (c *Cache) Get(ctx context.Context, reference, species, queryImage, model string) (string, bool, error) {
	var raw string
	err := c.db.QueryRowContext(
		ctx,
		`SELECT raw_text FROM responses WHERE reference = ? AND species = ? AND query_image = ? AND model = ?`,
		reference, species, queryImage, model,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get: %w", err)
	}
	return raw, true, nil
}

// Put stores the raw text for a work unit, replacing any prior entry.
func (c *Cache) Put(ctx context.Context, reference, species, queryImage, model, raw string) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO responses (reference, species, query_image, model, raw_text, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (reference, species, query_image, model) DO UPDATE SET
             raw_text = excluded.raw_text,
             created_at = excluded.created_at`,
		reference, species, queryImage, model, raw,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}
