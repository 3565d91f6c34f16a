// Package badge applies settings and counts to the toolbar button.
package badge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/settings"
)

// Renderer is the host's toolbar-button surface. A nil tabID addresses the
// global value, which tabs without their own value fall back to.
type Renderer interface {
	SetBadgeText(ctx context.Context, text string, tabID *int) error
	SetBadgeBackgroundColor(ctx context.Context, color string) error
	// SetBadgeTextColor sets the badge text color. A nil color restores
	// automatic contrast.
	SetBadgeTextColor(ctx context.Context, color *string) error
	SetTitle(ctx context.Context, title string, tabID *int) error
	SetIcon(ctx context.Context, path string) error
}

// IconPath is where the host finds icon files.
func IconPath(icon string) string {
	return "icons/" + icon
}

// ApplyAppearance sets the badge colors and icon from s. The text color is
// only touched when the host supports it.
func ApplyAppearance(ctx context.Context, r Renderer, s settings.Settings, caps settings.Capabilities) error {
	var errs []error
	if err := r.SetBadgeBackgroundColor(ctx, s.BadgeColor); err != nil {
		errs = append(errs, fmt.Errorf("badge color: %w", err))
	}
	if caps.BadgeTextColor() {
		var color *string
		if !s.BadgeTextColorAuto {
			c := s.BadgeTextColor
			color = &c
		}
		if err := r.SetBadgeTextColor(ctx, color); err != nil {
			errs = append(errs, fmt.Errorf("badge text color: %w", err))
		}
	}
	if err := r.SetIcon(ctx, IconPath(s.Icon)); err != nil {
		errs = append(errs, fmt.Errorf("icon: %w", err))
	}
	return errors.Join(errs...)
}

// Render shows text and the tooltip for snap on its active tab. The value
// is per tab: tabs in other windows keep their own count until they are
// activated.
func Render(ctx context.Context, r Renderer, text string, snap counter.Snapshot) error {
	if snap.ActiveTabID == nil {
		return nil
	}
	tab := snap.ActiveTabID

	var errs []error
	if err := r.SetBadgeText(ctx, text, tab); err != nil {
		errs = append(errs, fmt.Errorf("badge text: %w", err))
	}
	if err := r.SetTitle(ctx, counter.Tooltip(snap), tab); err != nil {
		errs = append(errs, fmt.Errorf("title: %w", err))
	}
	return errors.Join(errs...)
}
// Clear blanks the badge and resets the tooltip globally and on every tab in
// tabIDs.
func Clear(ctx context.Context, r Renderer, tabIDs []int) error {
	var errs []error
	clearOne := func(id *int) {
		if err := r.SetBadgeText(ctx, "", id); err != nil {
			errs = append(errs, err)
		}
		if err := r.SetTitle(ctx, counter.Title, id); err != nil {
			errs = append(errs, err)
		}
	}
	clearOne(nil)
	for _, id := range tabIDs {
		clearOne(&id)
	}
	return errors.Join(errs...)
}

// Call is one recorded Renderer call.
type Call struct {
	Method string
	Value  string
	TabID  *int
	Nil    bool // SetBadgeTextColor(nil)
}

// Recorder is a Renderer that keeps every call. It also tracks the visible
// state, so tests and previews can ask what a tab shows.
type Recorder struct {
	mu    sync.Mutex
	calls []Call

	Text      string
	Title     string
	TabText   map[int]string
	TabTitle  map[int]string
	BgColor   string
	TextColor *string
	Icon      string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{TabText: map[int]string{}, TabTitle: map[int]string{}}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) SetBadgeText(_ context.Context, text string, tabID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "setBadgeText", Value: text, TabID: copyID(tabID)})
	if tabID == nil {
		r.Text = text
	} else {
		r.TabText[*tabID] = text
	}
	return nil
}

func (r *Recorder) SetBadgeBackgroundColor(_ context.Context, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "setBadgeBackgroundColor", Value: color})
	r.BgColor = color
	return nil
}

func (r *Recorder) SetBadgeTextColor(_ context.Context, color *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Call{Method: "setBadgeTextColor", Nil: color == nil}
	if color != nil {
		c.Value = *color
		v := *color
		r.TextColor = &v
	} else {
		r.TextColor = nil
	}
	r.record(c)
	return nil
}

func (r *Recorder) SetTitle(_ context.Context, title string, tabID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "setTitle", Value: title, TabID: copyID(tabID)})
	if tabID == nil {
		r.Title = title
	} else {
		r.TabTitle[*tabID] = title
	}
	return nil
}

func (r *Recorder) SetIcon(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(Call{Method: "setIcon", Value: path})
	r.Icon = path
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls of one method.
func (r *Recorder) CallsTo(method string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls but keeps the visible state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Shown returns the badge text visible on tab id.
func (r *Recorder) Shown(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.TabText[id]; ok {
		return t
	}
	return r.Text
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
