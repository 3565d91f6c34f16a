// Package bridge adapts the WebSocket connection to the extension into the
// host interfaces the background logic consumes.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/server"
	"github.com/lotas/tabcounter/internal/types"
)

// DefaultTimeout bounds a single query to the extension.
const DefaultTimeout = 5 * time.Second

// Handler reacts to messages from the extension.
type Handler interface {
	Start(ctx context.Context) error
	Relaunch()
	HandleUpdateSettings(ctx context.Context) error
	HandleInstalled(ctx context.Context, reason string, temporary bool) error
}

// Bridge answers inventory queries and draws the badge through the
// extension, and fans browser events out to subscribers.
type Bridge struct {
	srv     *server.Server
	timeout time.Duration

	mu       sync.RWMutex
	caps     server.Capabilities
	handlers map[types.EventClass]map[uint64]func()
	next     uint64

	startMu     sync.Mutex
	startCancel context.CancelFunc
}

// New returns a Bridge over srv.
func New(srv *server.Server) *Bridge {
	return &Bridge{
		srv:      srv,
		timeout:  DefaultTimeout,
		handlers: make(map[types.EventClass]map[uint64]func()),
	}
}

// SetTimeout changes the per-query timeout.
func (b *Bridge) SetTimeout(d time.Duration) {
	b.timeout = d
}

// SetCapabilities records what the connected browser supports.
func (b *Bridge) SetCapabilities(c server.Capabilities) {
	b.mu.Lock()
	b.caps = c
	b.mu.Unlock()
}

func (b *Bridge) BadgeTextColor() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps.BadgeTextColor
}

func (b *Bridge) HidingTabs() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caps.HideTabs
}

func (b *Bridge) request(ctx context.Context, msg server.OutgoingMsg) (server.IncomingMsg, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.srv.Request(ctx, msg)
}

func (b *Bridge) ActiveTab(ctx context.Context) (int, bool, error) {
	resp, err := b.request(ctx, server.OutgoingMsg{Action: server.QueryActiveTab})
	if err != nil {
		return 0, false, err
	}
	if resp.TabID == nil {
		return 0, false, nil
	}
	return *resp.TabID, true, nil
}

func (b *Bridge) CountTabs(ctx context.Context, q counter.TabQuery) (int, error) {
	msg := server.OutgoingMsg{Action: server.QueryCountTabs, CurrentWindow: q.CurrentWindow}
	if q.ExcludeHidden {
		hidden := false
		msg.Hidden = &hidden
	}
	return b.count(ctx, msg)
}

func (b *Bridge) CountWindows(ctx context.Context) (int, error) {
	return b.count(ctx, server.OutgoingMsg{Action: server.QueryCountWindows})
}

func (b *Bridge) count(ctx context.Context, msg server.OutgoingMsg) (int, error) {
	resp, err := b.request(ctx, msg)
	if err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("%s: response without count", msg.Action)
	}
	return *resp.Count, nil
}

func (b *Bridge) TabIDs(ctx context.Context) ([]int, error) {
	resp, err := b.request(ctx, server.OutgoingMsg{Action: server.QueryTabIDs})
	if err != nil {
		return nil, err
	}
	return resp.TabIDs, nil
}

func (b *Bridge) SetBadgeText(_ context.Context, text string, tabID *int) error {
	return b.srv.Send(server.OutgoingMsg{Action: server.ActionSetBadgeText, Text: &text, TabID: tabID})
}

func (b *Bridge) SetBadgeBackgroundColor(_ context.Context, color string) error {
	return b.srv.Send(server.OutgoingMsg{Action: server.ActionSetBadgeBackgroundColor, Color: &color})
}

func (b *Bridge) SetBadgeTextColor(_ context.Context, color *string) error {
	return b.srv.Send(server.OutgoingMsg{Action: server.ActionSetBadgeTextColor, Color: color})
}

func (b *Bridge) SetTitle(_ context.Context, title string, tabID *int) error {
	return b.srv.Send(server.OutgoingMsg{Action: server.ActionSetTitle, Title: &title, TabID: tabID})
}

func (b *Bridge) SetIcon(_ context.Context, path string) error {
	return b.srv.Send(server.OutgoingMsg{Action: server.ActionSetIcon, Path: path})
}

// Subscribe registers fn for events of class c.
func (b *Bridge) Subscribe(c types.EventClass, fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[c] == nil {
		b.handlers[c] = make(map[uint64]func())
	}
	b.next++
	id := b.next
	b.handlers[c][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[c], id)
	}
}

// Dispatch calls every handler subscribed to c.
func (b *Bridge) Dispatch(c types.EventClass) {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.handlers[c]))
	for _, fn := range b.handlers[c] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Run routes extension messages to h until ctx is done.
func (b *Bridge) Run(ctx context.Context, h Handler) error {
	msgs := b.srv.Messages()
	for {
		select {
		case <-ctx.Done():
			b.cancelStart()
			return nil
		case msg := <-msgs:
			b.handle(ctx, h, msg)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, h Handler, msg server.IncomingMsg) {
	switch {
	case msg.Type == server.TypeHello:
		caps, err := server.ParseHello(msg)
		if err != nil {
			applog.Error("bridge.hello", err)
			return
		}
		b.SetCapabilities(caps)
		applog.Info("bridge.hello", "textColor", caps.BadgeTextColor, "hideTabs", caps.HideTabs)
		h.Relaunch()
		b.start(ctx, h)

	case msg.Type == server.TypeEvent:
		c, err := server.ParseEvent(msg)
		if err != nil {
			applog.Error("bridge.event", err)
			return
		}
		go b.Dispatch(c)

	case server.IsUpdateSettings(msg):
		go func() {
			if err := h.HandleUpdateSettings(ctx); err != nil {
				applog.Error("bridge.updateSettings", err)
			}
		}()

	case msg.Type == server.TypeInstalled:
		in, err := server.ParseInstalled(msg)
		if err != nil {
			applog.Error("bridge.installed", err)
			return
		}
		go func() {
			if err := h.HandleInstalled(ctx, in.Reason, in.Temporary); err != nil {
				applog.Error("bridge.installed", err)
			}
		}()

	default:
		applog.Info("bridge.unknown", "type", msg.Type)
	}
}

// start runs the startup sequence, cancelling one still in progress from an
// earlier connection.
func (b *Bridge) start(ctx context.Context, h Handler) {
	b.startMu.Lock()
	if b.startCancel != nil {
		b.startCancel()
	}
	sctx, cancel := context.WithCancel(ctx)
	b.startCancel = cancel
	b.startMu.Unlock()

	go func() {
		if err := h.Start(sctx); err != nil && sctx.Err() == nil {
			applog.Error("bridge.start", err)
		}
	}()
}

func (b *Bridge) cancelStart() {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.startCancel != nil {
		b.startCancel()
		b.startCancel = nil
	}
}
