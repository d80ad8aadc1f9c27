package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_counts (
	day   TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);`

// SQLiteStore keeps counts in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create quota directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // Close error less important than schema error
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load returns the count for day, or 0 if none is stored.
func (s *SQLiteStore) Load(ctx context.Context, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT count FROM search_counts WHERE day = ?", day).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query search count: %w", err)
	}
	return count, nil
}

// Save upserts the count for day.
func (s *SQLiteStore) Save(ctx context.Context, day string, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_counts (day, count) VALUES (?, ?)
		 ON CONFLICT(day) DO UPDATE SET count = excluded.count`,
		day, count)
	if err != nil {
		return fmt.Errorf("upsert search count: %w", err)
	}
	return nil
}

// Days returns every stored day with its count.
func (s *SQLiteStore) Days(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT day, count FROM search_counts ORDER BY day")
	if err != nil {
		return nil, fmt.Errorf("query search counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			day   string
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan search count: %w", err)
		}
		out[day] = count
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
