package background

import (
	"context"
	"reflect"
	"sync"

	"github.com/lotas/tabcounter/internal/settings"
)

// trackedStore remembers the last record it read or wrote, so a change
// notification for the store can be told apart from the background's own
// writes.
type trackedStore struct {
	settings.Store

	mu    sync.Mutex
	last  settings.Record
	found bool
	known bool
}

func (s *trackedStore) Load(ctx context.Context) (settings.Record, bool, error) {
	r, found, err := s.Store.Load(ctx)
	if err == nil {
		s.remember(r, found)
	}
	return r, found, err
}

func (s *trackedStore) Save(ctx context.Context, r settings.Record) error {
	if err := s.Store.Save(ctx, r); err != nil {
		return err
	}
	s.remember(r, true)
	return nil
}

func (s *trackedStore) remember(r settings.Record, found bool) {
	s.mu.Lock()
	s.last, s.found, s.known = r, found, true
	s.mu.Unlock()
}

// changed rereads the store and reports whether it holds something other
// than the last record seen.
func (s *trackedStore) changed(ctx context.Context) (bool, error) {
	r, found, err := s.Store.Load(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	same := s.known && s.found == found && reflect.DeepEqual(s.last, r)
	s.last, s.found, s.known = r, found, true
	return !same, nil
}
