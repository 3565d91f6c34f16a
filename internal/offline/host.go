// Package offline drives the badge logic from a Firefox session file
// instead of a live browser connection.
package offline

import (
	"fmt"
	"sync"

	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/badge"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/lotas/tabcounter/internal/watch"
)

// Host reads tabs from a session inventory and draws onto any renderer.
// Session-file changes are delivered to subscribers as tab updates, since
// the file does not say which events produced them.
type Host struct {
	*firefox.SessionInventory
	badge.Renderer

	mu       sync.Mutex
	handlers map[types.EventClass]map[uint64]func()
	next     uint64
	watcher  *watch.Watcher
}

// NewHost returns a Host over inv drawing onto r.
func NewHost(inv *firefox.SessionInventory, r badge.Renderer) *Host {
	return &Host{
		SessionInventory: inv,
		Renderer:         r,
		handlers:         make(map[types.EventClass]map[uint64]func()),
	}
}

// BadgeTextColor is true: terminals can color the badge text.
func (h *Host) BadgeTextColor() bool { return true }

func (h *Host) Subscribe(c types.EventClass, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers[c] == nil {
		h.handlers[c] = make(map[uint64]func())
	}
	h.next++
	id := h.next
	h.handlers[c][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[c], id)
	}
}

// Dispatch delivers an event of class c to its subscribers.
func (h *Host) Dispatch(c types.EventClass) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.handlers[c]))
	for _, fn := range h.handlers[c] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Refresh reloads the session file and reports the change.
func (h *Host) Refresh() error {
	if err := h.Reload(); err != nil {
		return err
	}
	h.Dispatch(types.TabUpdated)
	return nil
}

// Watch refreshes on every change of the profile's session file until Close.
func (h *Host) Watch(opts ...watch.Option) error {
	path, err := firefox.SessionPath(h.Profile().Path)
	if err != nil {
		return err
	}
	opts = append([]watch.Option{
		watch.WithOnChange(func() {
			if err := h.Refresh(); err != nil {
				applog.Error("offline.refresh", err)
			}
		}),
		watch.WithOnError(func(err error) {
			applog.Error("offline.watch", err)
		}),
	}, opts...)

	w, err := watch.New(path, opts...)
	if err != nil {
		return fmt.Errorf("watch session file: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch session file: %w", err)
	}
	h.mu.Lock()
	h.watcher = w
	h.mu.Unlock()
	applog.Info("offline.watch", "path", path, "polling", w.IsPolling())
	return nil
}

// Close stops watching.
func (h *Host) Close() {
	h.mu.Lock()
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}
