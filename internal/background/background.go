// Package background wires settings, scheduling, counting and rendering
// into the extension's background behavior.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/badge"
	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/lifecycle"
	"github.com/lotas/tabcounter/internal/schedule"
	"github.com/lotas/tabcounter/internal/settings"
)

// Host is everything the background needs from the browser side.
type Host interface {
	settings.Capabilities
	// HidingTabs reports whether the host supports hidden tabs.
	HidingTabs() bool
	counter.Inventory
	lifecycle.TabLister
	lifecycle.EventSource
	badge.Renderer
}

// Options configures a Background.
type Options struct {
	Version      settings.Version
	Timing       schedule.Timing
	StartupGrace time.Duration
}

// Placeholder is shown while settings load at startup.
const (
	Placeholder      = "..."
	PlaceholderColor = "#000"
)

// Install reasons that trigger a reconcile pass.
const (
	ReasonInstall       = "install"
	ReasonUpdate        = "update"
	ReasonBrowserUpdate = "browser_update"
)

// Background owns the current settings and reacts to host events.
type Background struct {
	host  Host
	store *trackedStore
	opts  Options

	sched *schedule.Scheduler
	life  *lifecycle.Manager

	// ctx bounds recomputes started by scheduler timers.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	current settings.Settings
	loaded  bool
}

// New returns a Background. The grace clock starts now.
func New(host Host, store settings.Store, opts Options) *Background {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Background{
		host:   host,
		store:  &trackedStore{Store: store},
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	b.sched = schedule.New(opts.Timing, func() { b.Recompute(b.ctx) })
	b.life = lifecycle.NewManager(host, host, host, b.sched.Notify, opts.StartupGrace)
	return b
}

// Close stops pending recomputes.
func (b *Background) Close() {
	b.sched.Stop()
	b.cancel()
}

// Settings returns the settings in effect. ok is false before the first load.
func (b *Background) Settings() (s settings.Settings, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current, b.loaded
}

// Lifecycle exposes the listener state machine.
func (b *Background) Lifecycle() *lifecycle.Manager {
	return b.life
}

// Start runs the startup sequence: placeholder badge, reconcile, grace,
// then the first real render.
func (b *Background) Start(ctx context.Context) error {
	applog.Info("background.start", "version", b.opts.Version)
	if err := b.host.SetBadgeBackgroundColor(ctx, PlaceholderColor); err != nil {
		return fmt.Errorf("placeholder: %w", err)
	}
	if err := b.host.SetBadgeText(ctx, Placeholder, nil); err != nil {
		return fmt.Errorf("placeholder: %w", err)
	}

	if _, err := settings.Reconcile(ctx, b.store, b.opts.Version, b.host); err != nil {
		return err
	}

	if err := b.life.AwaitGrace(ctx); err != nil {
		return err
	}
	if err := b.host.SetBadgeText(ctx, " ", nil); err != nil {
		return fmt.Errorf("clear placeholder: %w", err)
	}

	if err := b.LoadSettings(ctx, lifecycle.CauseStartup); err != nil {
		return err
	}
	b.Recompute(ctx)
	return nil
}

// Relaunch resets listener state for a fresh host connection.
func (b *Background) Relaunch() {
	b.life.Relaunch()
}

// LoadSettings reads the stored settings, applies the appearance and moves
// the listener state machine.
func (b *Background) LoadSettings(ctx context.Context, cause lifecycle.Cause) error {
	s, err := settings.Load(ctx, b.store, b.opts.Version, b.host)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.current = s
	b.loaded = true
	b.mu.Unlock()
	applog.Info("settings.loaded", "counter", s.CounterMode, "cause", cause)

	if err := badge.ApplyAppearance(ctx, b.host, s, b.host); err != nil {
		applog.Error("badge.appearance", err)
	}
	return b.life.Enter(ctx, s, cause)
}

// HandleUpdateSettings is the settings-changed signal: reload and render at
// once.
func (b *Background) HandleUpdateSettings(ctx context.Context) error {
	if err := b.LoadSettings(ctx, lifecycle.CauseSettingsChange); err != nil {
		return err
	}
	b.Recompute(ctx)
	return nil
}

// HandleStoreChange reacts to a change notification for the settings store,
// such as a write from another process. Writes the background made itself,
// and changes before the first load, are ignored: startup reads the store
// anyway.
func (b *Background) HandleStoreChange(ctx context.Context) error {
	if _, ok := b.Settings(); !ok {
		applog.Debug("settings.storeChange.skip", "reason", "not loaded")
		return nil
	}
	changed, err := b.store.changed(ctx)
	if err != nil {
		return fmt.Errorf("reload settings: %w", err)
	}
	if !changed {
		applog.Debug("settings.storeChange.skip", "reason", "unchanged")
		return nil
	}
	return b.HandleUpdateSettings(ctx)
}

// HandleInstalled reconciles the stored settings after an install or update.
// Temporary installs are left alone.
func (b *Background) HandleInstalled(ctx context.Context, reason string, temporary bool) error {
	if temporary {
		applog.Info("background.installed.skip", "reason", reason)
		return nil
	}
	switch reason {
	case ReasonInstall, ReasonUpdate, ReasonBrowserUpdate:
		_, err := settings.Reconcile(ctx, b.store, b.opts.Version, b.host)
		return err
	}
	return nil
}

// Recompute takes a fresh snapshot and renders it. Errors are logged; the
// next event retries.
func (b *Background) Recompute(ctx context.Context) {
	s, ok := b.Settings()
	if !ok || s.CounterMode == settings.ModeNone {
		return
	}

	snap, err := counter.Take(ctx, b.host, s, b.host.HidingTabs())
	if err != nil {
		applog.Error("recompute.snapshot", err)
		return
	}
	if snap.RenderSkip() {
		applog.Debug("recompute.skip", "reason", "no active tab")
		return
	}
	text, ok := counter.Format(s.CounterMode, snap)
	if !ok {
		return
	}
	if err := badge.Render(ctx, b.host, text, snap); err != nil {
		applog.Error("recompute.render", err)
		return
	}
	applog.Debug("badge.render", "text", text, "tab", *snap.ActiveTabID)
}
