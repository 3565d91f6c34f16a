package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/lotas/tabcounter/internal/applog"
)

// Store persists the settings record as a whole. Save replaces the stored
// record; there are no partial writes.
type Store interface {
	// Load returns the stored record. found is false for a fresh install.
	Load(ctx context.Context) (r Record, found bool, err error)
	Save(ctx context.Context, r Record) error
}

// Reconcile brings the stored record up to date: a record without a version
// is a fresh install and is stamped with current; a record from another
// version is migrated. The result is completed with defaults and written back.
func Reconcile(ctx context.Context, store Store, current Version, caps Capabilities) (Settings, error) {
	raw, _, err := store.Load(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	switch {
	case raw.Version == nil:
		raw.Version = ptr(current.String())
		applog.Info("settings.install", "version", current)
	case *raw.Version != current.String():
		from := *raw.Version
		raw = Migrate(raw, current, caps)
		applog.Info("settings.migrated", "from", from, "to", *raw.Version)
	}

	s := ApplyDefaults(raw, current, caps)
	if err := store.Save(ctx, s.Record()); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

// Load reads the stored record and completes it with defaults without
// writing anything back. A record from another version is migrated in
// memory only.
func Load(ctx context.Context, store Store, current Version, caps Capabilities) (Settings, error) {
	raw, _, err := store.Load(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if raw.Version != nil && *raw.Version != current.String() {
		raw = Migrate(raw, current, caps)
	}
	return ApplyDefaults(raw, current, caps), nil
}

// Update reconciles the stored record, applies change to it and saves the
// result. Edits always start from migrated settings, so legacy values are
// never written back under the current version.
func Update(ctx context.Context, store Store, current Version, caps Capabilities, change func(*Record) error) (Settings, error) {
	s, err := Reconcile(ctx, store, current, caps)
	if err != nil {
		return Settings{}, err
	}
	rec := s.Record()
	if err := change(&rec); err != nil {
		return Settings{}, err
	}
	if err := store.Save(ctx, rec); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return ApplyDefaults(rec, current, caps), nil
}

// MemoryStore is an in-memory Store for tests and for running without a
// database.
type MemoryStore struct {
	mu     sync.RWMutex
	record Record
	found  bool
	saves  int
}

// NewMemoryStore returns a store holding r. Pass nil for an empty store.
func NewMemoryStore(r *Record) *MemoryStore {
	s := &MemoryStore{}
	if r != nil {
		s.record = *r
		s.found = true
	}
	return s
}

func (s *MemoryStore) Load(_ context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, s.found, nil
}

func (s *MemoryStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	s.record = r
	s.found = true
	s.saves++
	s.mu.Unlock()
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
