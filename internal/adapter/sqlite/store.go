// Package sqlite persists favorites and user preferences in a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/pukaar-service/internal/domain"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a favorite or preference does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnknownPreference is returned for preference keys outside the known set.
var ErrUnknownPreference = errors.New("unknown preference")

// ErrInvalidPreference is returned when a preference value fails validation.
var ErrInvalidPreference = errors.New("invalid preference value")

// Preference keys.
const (
	PrefPreferredCategories = "preferredCategories"
	PrefDefaultCity         = "defaultCity"
	PrefTheme               = "theme"
	PrefBannerShown         = "pwaBannerShown"
)

var knownPreferences = map[string]bool{
	PrefPreferredCategories: true,
	PrefDefaultCity:         true,
	PrefTheme:               true,
	PrefBannerShown:         true,
}

// ToggleResult reports which action a Toggle performed.
type ToggleResult struct {
	Added bool `json:"added"`
}

// Store is the favorites and preferences store.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS favorites (
	identity_key TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	address      TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	saved_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_favorites_saved_at ON favorites(saved_at);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- favorites ---

// List returns every favorite, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.FavoriteEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT identity_key, name, address, phone, category, latitude, longitude, saved_at
		 FROM favorites ORDER BY saved_at, identity_key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list favorites: %w", err)
	}
	defer rows.Close()

	out := []domain.FavoriteEntry{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Get returns one favorite by identity key.
func (s *Store) Get(ctx context.Context, key string) (domain.FavoriteEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT identity_key, name, address, phone, category, latitude, longitude, saved_at
		 FROM favorites WHERE identity_key = ?`, key)
	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FavoriteEntry{}, fmt.Errorf("favorite %s: %w", key, ErrNotFound)
	}
	return f, err
}

// Contains reports whether key is a favorite.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE identity_key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: contains favorite: %w", err)
	}
	return n > 0, nil
}

// Toggle removes key when it is a favorite, otherwise saves the snapshot
// under key. Both steps run in one transaction.
func (s *Store) Toggle(ctx context.Context, key string, snapshot domain.ServiceRecord) (ToggleResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE identity_key = ?`, key)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("sqlite: delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ToggleResult{}, fmt.Errorf("sqlite: rows affected: %w", err)
	}

	result := ToggleResult{Added: n == 0}
	if result.Added {
		f := snapshot.Favorite()
		f.IdentityKey = key
		_, err = tx.ExecContext(ctx,
			`INSERT INTO favorites (identity_key, name, address, phone, category, latitude, longitude, saved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.IdentityKey, f.Name, f.Address, f.Phone, string(f.Category), f.Latitude, f.Longitude, f.SavedAt,
		)
		if err != nil {
			return ToggleResult{}, fmt.Errorf("sqlite: insert favorite: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ToggleResult{}, fmt.Errorf("sqlite: commit: %w", err)
	}
	return result, nil
}

// Remove deletes a favorite.
func (s *Store) Remove(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE identity_key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite: remove favorite %s: %w", key, err)
	}
	return checkRowsAffected(res, "favorite", key)
}

// --- preferences ---

// GetPreference returns the raw JSON value stored under key.
func (s *Store) GetPreference(ctx context.Context, key string) (json.RawMessage, error) {
	if !knownPreferences[key] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("preference %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get preference %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// SetPreference stores a JSON value under key. Preferred categories are
// validated against the known category set.
func (s *Store) SetPreference(ctx context.Context, key string, value json.RawMessage) error {
	if !knownPreferences[key] {
		return fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	if !json.Valid(value) {
		return fmt.Errorf("preference %s: %w: not JSON", key, ErrInvalidPreference)
	}
	if key == PrefPreferredCategories {
		if _, err := decodeCategories(value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPreference, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), domain.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: set preference %s: %w", key, err)
	}
	return nil
}

func decodeCategories(raw json.RawMessage) ([]domain.Category, error) {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("preferred categories: %w", err)
	}
	out := make([]domain.Category, 0, len(names))
	for _, n := range names {
		c, err := domain.ParseCategory(n)
		if err != nil {
			return nil, fmt.Errorf("preferred categories: %w", err)
		}
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanFavorite(row scannable) (domain.FavoriteEntry, error) {
	var (
		f        domain.FavoriteEntry
		category string
		savedAt  time.Time
	)
	if err := row.Scan(&f.IdentityKey, &f.Name, &f.Address, &f.Phone, &category,
		&f.Latitude, &f.Longitude, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, err
		}
		return f, fmt.Errorf("sqlite: scan favorite: %w", err)
	}
	f.Category = domain.Category(category)
	f.SavedAt = savedAt.UTC()
	return f, nil
}
