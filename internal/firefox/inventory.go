package firefox

import (
	"context"
	"sync"

	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/types"
)

// SessionInventory answers inventory queries from a parsed session file.
// Reload picks up changes written by the browser.
type SessionInventory struct {
	profile types.Profile

	mu   sync.RWMutex
	data *types.SessionData
}

// NewSessionInventory returns an inventory for profile. Call Reload before
// querying.
func NewSessionInventory(profile types.Profile) *SessionInventory {
	return &SessionInventory{profile: profile, data: &types.SessionData{SelectedWindow: -1}}
}

// StaticInventory serves a fixed session.
func StaticInventory(data *types.SessionData) *SessionInventory {
	return &SessionInventory{profile: data.Profile, data: data}
}

// Profile returns the profile the inventory reads.
func (s *SessionInventory) Profile() types.Profile {
	return s.profile
}

// Reload re-reads the session file. On error the previous data is kept.
func (s *SessionInventory) Reload() error {
	data, err := ReadSessionFile(s.profile.Path)
	if err != nil {
		return err
	}
	data.Profile = s.profile
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Data returns the last loaded session.
func (s *SessionInventory) Data() *types.SessionData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// HidingTabs is always true: Firefox session files record hidden tabs.
func (s *SessionInventory) HidingTabs() bool { return true }

func (s *SessionInventory) ActiveTab(context.Context) (int, bool, error) {
	w := s.Data().CurrentWindow()
	if w == nil || w.Active == nil {
		return 0, false, nil
	}
	return w.Active.ID, true, nil
}

func (s *SessionInventory) CountTabs(_ context.Context, q counter.TabQuery) (int, error) {
	data := s.Data()
	tabs := data.AllTabs
	if q.CurrentWindow {
		w := data.CurrentWindow()
		if w == nil {
			return 0, nil
		}
		tabs = w.Tabs
	}
	n := 0
	for _, t := range tabs {
		if q.ExcludeHidden && t.Hidden {
			continue
		}
		n++
	}
	return n, nil
}

// CountWindows counts normal windows; popups are left out.
func (s *SessionInventory) CountWindows(context.Context) (int, error) {
	n := 0
	for _, w := range s.Data().Windows {
		if !w.Popup {
			n++
		}
	}
	return n, nil
}

func (s *SessionInventory) TabIDs(context.Context) ([]int, error) {
	tabs := s.Data().AllTabs
	ids := make([]int, 0, len(tabs))
	for _, t := range tabs {
		ids = append(ids, t.ID)
	}
	return ids, nil
}
