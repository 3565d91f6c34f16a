// Package counter reads tab and window counts from a tab inventory and
// formats them for the badge.
package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lotas/tabcounter/internal/settings"
	"golang.org/x/sync/errgroup"
)

// TabQuery selects which tabs CountTabs counts.
type TabQuery struct {
	CurrentWindow bool // only tabs in the focused window
	ExcludeHidden bool // skip tabs hidden by the browser or another extension
}

// Inventory answers read-only questions about open tabs and windows.
type Inventory interface {
	// ActiveTab returns the active tab of the focused window. ok is false
	// when there is none, e.g. while a window is closing.
	ActiveTab(ctx context.Context) (id int, ok bool, err error)
	CountTabs(ctx context.Context, q TabQuery) (int, error)
	// CountWindows counts normal, user-visible windows.
	CountWindows(ctx context.Context) (int, error)
}

// Snapshot is one set of counts used for a single badge update.
type Snapshot struct {
	CurrentWindowTabs int
	AllWindowsTabs    int
	Windows           int
	ActiveTabID       *int // nil: nothing to render onto
}

// RenderSkip reports whether there is no tab to render the badge onto.
func (s Snapshot) RenderSkip() bool {
	return s.ActiveTabID == nil
}

// Take issues the four inventory reads concurrently and assembles them once
// all have completed. Hidden tabs are left out when the host can hide tabs
// and the settings do not include them. The reads are not atomic with
// respect to concurrent browser changes.
func Take(ctx context.Context, inv Inventory, s settings.Settings, hidingSupported bool) (Snapshot, error) {
	q := TabQuery{ExcludeHidden: hidingSupported && !s.IncludeHiddenTabs}

	var (
		snap     Snapshot
		activeID int
		activeOK bool
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activeID, activeOK, err = inv.ActiveTab(ctx)
		if err != nil {
			return fmt.Errorf("active tab: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		cq := q
		cq.CurrentWindow = true
		n, err := inv.CountTabs(ctx, cq)
		if err != nil {
			return fmt.Errorf("count window tabs: %w", err)
		}
		snap.CurrentWindowTabs = n
		return nil
	})
	g.Go(func() error {
		n, err := inv.CountTabs(ctx, q)
		if err != nil {
			return fmt.Errorf("count all tabs: %w", err)
		}
		snap.AllWindowsTabs = n
		return nil
	})
	g.Go(func() error {
		n, err := inv.CountWindows(ctx)
		if err != nil {
			return fmt.Errorf("count windows: %w", err)
		}
		snap.Windows = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if activeOK {
		snap.ActiveTabID = &activeID
	}
	return snap, nil
}

// Format returns the badge text for mode. ok is false for ModeNone, which
// never renders a count.
func Format(mode settings.CounterMode, s Snapshot) (text string, ok bool) {
	switch mode {
	case settings.ModeCurrentWindow:
		return strconv.Itoa(s.CurrentWindowTabs), true
	case settings.ModeAllWindows:
		return strconv.Itoa(s.AllWindowsTabs), true
	case settings.ModeWindowAndAll:
		// Firefox fits about four characters in the badge.
		return fmt.Sprintf("%d/%d", s.CurrentWindowTabs, s.AllWindowsTabs), true
	case settings.ModeNumberOfWindows:
		return strconv.Itoa(s.Windows), true
	}
	return "", false
}

// Title is the toolbar tooltip heading, also used when the badge is off.
const Title = "Tab Counter"

// Tooltip shows all three counts regardless of the counter mode.
func Tooltip(s Snapshot) string {
	return fmt.Sprintf("%s\nTabs in this window:  %d\nTabs in all windows: %d\nNumber of windows: %d",
		Title, s.CurrentWindowTabs, s.AllWindowsTabs, s.Windows)
}
