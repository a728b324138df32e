package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite implements Store using modernc.org/sqlite (pure Go, no CGO).
// It is used when the gateway must keep token records, rate counters, and
// cached responses across restarts.
type SQLite struct {
	db *sql.DB

	// now is replaceable in tests to exercise expiry without sleeping.
	now func() time.Time
}

// NewSQLite opens (or creates) a SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Get returns the value for key, treating expired rows as absent and
// deleting them opportunistically.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM kv WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}

	if expiresAt > 0 && s.now().UnixMilli() > expiresAt {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
		return nil, false, nil
	}
	return value, true, nil
}

// Put stores value under key with the given ttl.
func (s *SQLite) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value, count, expires_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Incr increments the counter under key, creating it with ttl when absent
// or expired. The single-connection pool serializes the read-modify-write.
func (s *SQLite) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("incr %q: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	var count, expiresAt int64
	err = tx.QueryRowContext(ctx,
		"SELECT count, expires_at FROM kv WHERE key = ?", key,
	).Scan(&count, &expiresAt)
	switch {
	case err == sql.ErrNoRows:
		count = 0
	case err != nil:
		return 0, fmt.Errorf("incr %q: %w", key, err)
	case expiresAt > 0 && now.UnixMilli() > expiresAt:
		count = 0
	}

	if count == 0 {
		expiresAt = 0
		if ttl > 0 {
			expiresAt = now.Add(ttl).UnixMilli()
		}
	}
	count++

	_, err = tx.ExecContext(ctx, `INSERT INTO kv (key, value, count, expires_at)
		VALUES (?, x'', ?, ?)
		ON CONFLICT(key) DO UPDATE SET count = excluded.count, expires_at = excluded.expires_at`,
		key, count, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("incr %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("incr %q: %w", key, err)
	}
	return count, nil
}

// Delete removes key if present.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// DeleteFunc removes every key matching the predicate.
func (s *SQLite) DeleteFunc(ctx context.Context, match func(key string) bool) error {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM kv")
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var doomed []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return fmt.Errorf("scan key: %w", err)
		}
		if match(key) {
			doomed = append(doomed, key)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	for _, key := range doomed {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
