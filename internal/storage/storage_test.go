package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/tabcounter/internal/settings"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "tabcounter.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not found: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO settings (id, data) VALUES (1, '{}')`); err != nil {
		t.Fatalf("insert into settings: %v", err)
	}
	// The settings table holds a single row.
	if _, err := db.Exec(`INSERT INTO settings (id, data) VALUES (2, '{}')`); err == nil {
		t.Fatal("expected check constraint violation for id 2")
	}
}

func TestOpenDBTwice(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "again.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("first OpenDB: %v", err)
	}
	db.Close()

	db, err = OpenDB(dbPath)
	if err != nil {
		t.Fatalf("second OpenDB: %v", err)
	}
	db.Close()
}

func TestSettingsStoreEmpty(t *testing.T) {
	store := NewSettingsStore(testDB(t))

	r, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Errorf("found = true on empty database, record %+v", r)
	}
}

func TestSettingsStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(testDB(t))

	in := settings.Record{
		Version:           strPtr("0.6.0"),
		CounterMode:       strPtr("windowAndAll"),
		BadgeColor:        strPtr("#999"),
		IncludeHiddenTabs: boolPtr(true),
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("found = false after Save")
	}
	if *out.CounterMode != "windowAndAll" || *out.Version != "0.6.0" || !*out.IncludeHiddenTabs {
		t.Errorf("loaded %+v", out)
	}
	if out.Icon != nil || out.BadgeTextColorAuto != nil {
		t.Errorf("unset fields came back set: %+v", out)
	}
}

func TestSettingsStoreSaveReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(testDB(t))

	store.Save(ctx, settings.Record{Version: strPtr("0.5.0"), Icon: strPtr("old.svg")})
	store.Save(ctx, settings.Record{Version: strPtr("0.6.0")})

	out, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Icon != nil {
		t.Errorf("Icon = %q, want nil after whole-record replace", *out.Icon)
	}
}

func TestSettingsStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(testDB(t))

	for _, v := range []string{"0.4.0", "0.5.0", "0.6.0"} {
		if err := store.Save(ctx, settings.Record{Version: strPtr(v)}); err != nil {
			t.Fatalf("Save %s: %v", v, err)
		}
	}

	hist, err := store.History(ctx, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("got %d entries, want 2", len(hist))
	}
	if hist[0].Version != "0.6.0" || hist[1].Version != "0.5.0" {
		t.Errorf("history order = %s, %s", hist[0].Version, hist[1].Version)
	}
	if hist[0].SavedAt.IsZero() {
		t.Error("SavedAt is zero")
	}
}

func TestSettingsStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(testDB(t))

	store.Save(ctx, settings.Record{Version: strPtr("0.6.0")})
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, found, _ := store.Load(ctx); found {
		t.Error("record still present after Reset")
	}
	hist, _ := store.History(ctx, 10)
	if len(hist) != 1 {
		t.Errorf("history entries = %d, want 1", len(hist))
	}
}

func TestReconcileAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(testDB(t))
	store.Save(ctx, settings.Record{Version: strPtr("0.2.5"), CounterMode: strPtr("1")})

	current := settings.MustParseVersion("0.6.0")
	caps := settings.StaticCapabilities{TextColor: true}
	s, err := settings.Reconcile(ctx, store, current, caps)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if s.CounterMode != settings.ModeAllWindows || s.Icon != settings.DefaultIcon || !s.BadgeTextColorAuto {
		t.Errorf("reconciled %+v", s)
	}

	raw, _, _ := store.Load(ctx)
	if raw.Version == nil || *raw.Version != "0.6.0" {
		t.Errorf("stored version = %v, want 0.6.0", raw.Version)
	}
}
