package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// BadgeState is what the terminal badge currently shows.
type BadgeState struct {
	Text      string
	Title     string
	Color     string
	TextColor *string // nil: automatic contrast
	Icon      string
}

type badgeMsg BadgeState

// Renderer is a badge.Renderer that draws into the terminal. A terminal has
// one badge, so per-tab and global values land in the same place and the
// latest write wins.
type Renderer struct {
	mu    sync.Mutex
	state BadgeState
	send  func(tea.Msg)
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Attach sets where state changes are delivered, normally
// (*tea.Program).Send.
func (r *Renderer) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
}

// State returns the current badge.
func (r *Renderer) State() BadgeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Renderer) update(fn func(*BadgeState)) error {
	r.mu.Lock()
	fn(&r.state)
	st := r.state
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(badgeMsg(st))
	}
	return nil
}

func (r *Renderer) SetBadgeText(_ context.Context, text string, _ *int) error {
	return r.update(func(s *BadgeState) { s.Text = text })
}

func (r *Renderer) SetBadgeBackgroundColor(_ context.Context, color string) error {
	return r.update(func(s *BadgeState) { s.Color = color })
}

func (r *Renderer) SetBadgeTextColor(_ context.Context, color *string) error {
	return r.update(func(s *BadgeState) {
		if color == nil {
			s.TextColor = nil
			return
		}
		c := *color
		s.TextColor = &c
	})
}

func (r *Renderer) SetTitle(_ context.Context, title string, _ *int) error {
	return r.update(func(s *BadgeState) { s.Title = title })
}

func (r *Renderer) SetIcon(_ context.Context, path string) error {
	return r.update(func(s *BadgeState) { s.Icon = path })
}
