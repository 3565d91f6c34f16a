// Package lifecycle keeps the browser event subscriptions in step with the
// counter mode.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/badge"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
)

// State is the listener state.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Cause says why Enter was called.
type Cause int

const (
	// CauseStartup waits out the startup grace before subscribing.
	CauseStartup Cause = iota
	// CauseSettingsChange applies at once.
	CauseSettingsChange
)

func (c Cause) String() string {
	if c == CauseStartup {
		return "startup"
	}
	return "settings"
}

// EventSource delivers browser events of one class to a handler.
type EventSource interface {
	Subscribe(class types.EventClass, handler func()) (unsubscribe func())
}

// TabLister lists every open tab, used to clear per-tab badge values.
type TabLister interface {
	TabIDs(ctx context.Context) ([]int, error)
}

// DefaultGrace is how long after launch the browser keeps shuffling tabs
// around before counts settle.
const DefaultGrace = 2 * time.Second

// Manager is the Active/Inactive state machine over event subscriptions.
type Manager struct {
	src      EventSource
	tabs     TabLister
	renderer badge.Renderer
	notify   func(types.EventClass)
	grace    time.Duration

	mu       sync.Mutex
	state    State
	unsubs   map[types.EventClass]func()
	launched time.Time
}

// NewManager returns an Inactive Manager. notify receives every event once
// the manager is Active.
func NewManager(src EventSource, tabs TabLister, r badge.Renderer, notify func(types.EventClass), grace time.Duration) *Manager {
	return &Manager{
		src:      src,
		tabs:     tabs,
		renderer: r,
		notify:   notify,
		grace:    grace,
		unsubs:   make(map[types.EventClass]func()),
		launched: time.Now(),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscriptions returns the number of installed handlers.
func (m *Manager) Subscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.unsubs)
}

// Enter moves to the state s calls for. Counter mode none unsubscribes
// everything and blanks the badge on every tab; it blanks again even when
// already Inactive. Any other mode installs one handler per event class.
// Handlers already installed are kept.
func (m *Manager) Enter(ctx context.Context, s settings.Settings, cause Cause) error {
	if s.CounterMode == settings.ModeNone {
		m.mu.Lock()
		m.unsubscribeAll()
		m.state = Inactive
		m.mu.Unlock()
		applog.Info("lifecycle.inactive", "cause", cause)
		return m.blank(ctx)
	}

	if cause == CauseStartup {
		if err := m.AwaitGrace(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, c := range types.AllEventClasses {
		if _, ok := m.unsubs[c]; ok {
			continue
		}
		m.unsubs[c] = m.src.Subscribe(c, func() { m.notify(c) })
		added++
	}
	m.state = Active
	applog.Info("lifecycle.active", "cause", cause, "added", added)
	return nil
}

// AwaitGrace blocks until the startup grace since launch has passed.
func (m *Manager) AwaitGrace(ctx context.Context) error {
	m.mu.Lock()
	remaining := m.grace - time.Since(m.launched)
	m.mu.Unlock()
	if remaining <= 0 {
		return nil
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Relaunch returns to Inactive without touching the badge and restarts the
// grace clock. Used when the host reconnects after a browser restart.
func (m *Manager) Relaunch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribeAll()
	m.state = Inactive
	m.launched = time.Now()
}

func (m *Manager) unsubscribeAll() {
	for c, unsub := range m.unsubs {
		unsub()
		delete(m.unsubs, c)
	}
}

func (m *Manager) blank(ctx context.Context) error {
	ids, err := m.tabs.TabIDs(ctx)
	if err != nil {
		// Still clear the global value.
		applog.Error("lifecycle.tabs", err)
		ids = nil
	}
	if cerr := badge.Clear(ctx, m.renderer, ids); cerr != nil {
		return fmt.Errorf("clear badge: %w", cerr)
	}
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}
	return nil
}
