package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/mailkan/internal/adapters/api"
	"github.com/evanschultz/mailkan/internal/adapters/offline"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// refreshTokenKey is the session row holding the persisted refresh token.
const refreshTokenKey = "refresh_token"

// Repository persists the session and offline cache buckets.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			status INTEGER NOT NULL,
			header_json TEXT NOT NULL DEFAULT '{}',
			body BLOB NOT NULL,
			stored_at TEXT NOT NULL,
			PRIMARY KEY(bucket, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_bucket ON cache_entries(bucket);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// LoadRefreshToken returns the persisted refresh token, or "" when none is stored.
func (r *Repository) LoadRefreshToken(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, refreshTokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	return token, nil
}

// SaveRefreshToken persists token.
func (r *Repository) SaveRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, refreshTokenKey, token, ts(r.now()))
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ClearRefreshToken removes the persisted token.
func (r *Repository) ClearRefreshToken(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, refreshTokenKey); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// GetEntry returns one cached response.
func (r *Repository) GetEntry(ctx context.Context, bucket, key string) (offline.Entry, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, status, header_json, body, stored_at
		FROM cache_entries
		WHERE bucket = ? AND key = ?
	`, bucket, key)
	var (
		entry      offline.Entry
		headerJSON string
		storedRaw  string
	)
	err := row.Scan(&entry.Key, &entry.Status, &headerJSON, &entry.Body, &storedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return offline.Entry{}, false, nil
	}
	if err != nil {
		return offline.Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	entry.Header = http.Header{}
	if err := json.Unmarshal([]byte(headerJSON), &entry.Header); err != nil {
		return offline.Entry{}, false, fmt.Errorf("decode cached headers: %w", err)
	}
	entry.StoredAt = parseTS(storedRaw)
	return entry, true, nil
}

// PutEntry stores or replaces one cached response.
func (r *Repository) PutEntry(ctx context.Context, bucket string, entry offline.Entry) error {
	header := entry.Header
	if header == nil {
		header = http.Header{}
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("encode cached headers: %w", err)
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = r.now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cache_entries(bucket, key, status, header_json, body, stored_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			status = excluded.status,
			header_json = excluded.header_json,
			body = excluded.body,
			stored_at = excluded.stored_at
	`, bucket, entry.Key, entry.Status, string(headerJSON), body, ts(storedAt))
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// ListBuckets returns every bucket with at least one entry.
func (r *Repository) ListBuckets(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT bucket FROM cache_entries ORDER BY bucket ASC`)
	if err != nil {
		return nil, fmt.Errorf("list cache buckets: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache bucket: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cache buckets: %w", err)
	}
	return out, nil
}

// DeleteBucket drops every entry in bucket.
func (r *Repository) DeleteBucket(ctx context.Context, bucket string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("delete cache bucket: %w", err)
	}
	return nil
}

// CacheStats reports the entry count per bucket.
func (r *Repository) CacheStats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT bucket, COUNT(*) FROM cache_entries GROUP BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan cache stats: %w", err)
		}
		out[name] = count
	}
	return out, rows.Err()
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

var (
	_ api.TokenStore = (*Repository)(nil)
	_ offline.Store  = (*Repository)(nil)
)
