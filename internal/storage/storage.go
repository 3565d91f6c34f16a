package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lotas/tabcounter/internal/settings"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// HistoryEntry is one previously saved settings record.
type HistoryEntry struct {
	ID      int64
	Version string
	SavedAt time.Time
	Record  settings.Record
}

// OpenDB opens (or creates) a SQLite database at the given path.
// It creates parent directories if needed, enables foreign keys, WAL mode and
// a busy timeout on every pooled connection, and runs any pending migrations.
func OpenDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// runMigrations applies the embedded schema migrations. Already applied
// versions are skipped, so it is safe on every start.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// SettingsStore keeps the settings record as a single JSON row.
type SettingsStore struct {
	db *sql.DB
}

var _ settings.Store = (*SettingsStore)(nil)

// NewSettingsStore returns a store backed by db.
func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load returns the stored record. found is false if nothing was saved yet.
func (s *SettingsStore) Load(ctx context.Context) (settings.Record, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT data FROM settings WHERE id = 1").Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings.Record{}, false, nil
		}
		return settings.Record{}, false, fmt.Errorf("query settings: %w", err)
	}

	var r settings.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return settings.Record{}, false, fmt.Errorf("decode settings: %w", err)
	}
	return r, true, nil
}

// Save replaces the stored record and appends it to the history table in one
// transaction.
func (s *SettingsStore) Save(ctx context.Context, r settings.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	version := ""
	if r.Version != nil {
		version = *r.Version
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (id, data, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO settings_history (data, version) VALUES (?, ?)",
		string(data), version,
	); err != nil {
		return fmt.Errorf("insert settings history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Reset deletes the stored record so the next reconcile treats the install as
// fresh. History is kept.
func (s *SettingsStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings"); err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	return nil
}

// History returns up to limit saved records, newest first.
func (s *SettingsStore) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, version, saved_at, data FROM settings_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query settings history: %w", err)
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var data string
		if err := rows.Scan(&e.ID, &e.Version, &e.SavedAt, &data); err != nil {
			return nil, fmt.Errorf("scan settings history: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Record); err != nil {
			return nil, fmt.Errorf("decode settings history %d: %w", e.ID, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings history: %w", err)
	}
	return result, nil
}
