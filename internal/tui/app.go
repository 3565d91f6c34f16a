// Package tui shows the tab counter badge in the terminal, driven by a
// Firefox profile's session file.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/background"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/offline"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/lotas/tabcounter/internal/watch"
)

// --- Messages ---

type startedMsg struct {
	profile types.Profile
	host    *offline.Host
	bg      *background.Background
	err     error
}

type settingsMsg struct {
	settings settings.Settings
	err      error
}

type refreshedMsg struct {
	err error
}

// --- Model ---

type Model struct {
	// Data
	profiles []types.Profile
	profile  types.Profile
	store    settings.Store
	opts     background.Options
	watch    []watch.Option

	// Pipeline
	renderer *Renderer
	host     *offline.Host
	bg       *background.Background
	settings settings.Settings
	loaded   bool

	// UI state
	badge      BadgeState
	picker     ProfilePicker
	showPicker bool
	loading    bool
	err        error
	width      int
	height     int
}

// NewModel returns the badge view. name preselects a profile; with no name
// and more than one profile the picker opens first.
func NewModel(profiles []types.Profile, name string, store settings.Store, opts background.Options, r *Renderer) Model {
	m := Model{
		profiles: profiles,
		store:    store,
		opts:     opts,
		renderer: r,
		width:    60,
	}
	switch {
	case name != "" || len(profiles) == 1:
		p, err := firefox.PickProfile(profiles, name)
		if err != nil {
			m.err = err
			return m
		}
		m.profile = p
		m.loading = true
	default:
		m.showPicker = true
		m.picker = NewProfilePicker(profiles)
	}
	return m
}

// WithWatchOptions configures the session file watcher.
func (m Model) WithWatchOptions(opts ...watch.Option) Model {
	m.watch = opts
	return m
}

// Close stops the pipeline of the current profile.
func (m Model) Close() {
	if m.host != nil {
		m.host.Close()
	}
	if m.bg != nil {
		m.bg.Close()
	}
}

func (m Model) Init() tea.Cmd {
	if m.loading {
		return m.start(m.profile)
	}
	return nil
}

// start opens the profile's session file and builds the background on it.
func (m Model) start(p types.Profile) tea.Cmd {
	store, opts, r, wopts := m.store, m.opts, m.renderer, m.watch
	return func() tea.Msg {
		inv := firefox.NewSessionInventory(p)
		if err := inv.Reload(); err != nil {
			return startedMsg{profile: p, err: err}
		}
		host := offline.NewHost(inv, r)
		if err := host.Watch(wopts...); err != nil {
			// The badge still works, it just needs manual reloads.
			applog.Error("tui.watch", err)
		}
		return startedMsg{profile: p, host: host, bg: background.New(host, store, opts)}
	}
}

func launch(bg *background.Background) tea.Cmd {
	return func() tea.Msg {
		err := bg.Start(context.Background())
		s, _ := bg.Settings()
		return settingsMsg{settings: s, err: err}
	}
}

// updateSettings saves a changed copy of the current settings and signals
// the background, as the options page does.
func (m Model) updateSettings(change func(*settings.Record)) tea.Cmd {
	store, bg, rec := m.store, m.bg, m.settings.Record()
	change(&rec)
	return func() tea.Msg {
		ctx := context.Background()
		if err := store.Save(ctx, rec); err != nil {
			return settingsMsg{err: err}
		}
		err := bg.HandleUpdateSettings(ctx)
		s, _ := bg.Settings()
		return settingsMsg{settings: s, err: err}
	}
}

func refresh(host *offline.Host) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: host.Refresh()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case badgeMsg:
		m.badge = BadgeState(msg)
		return m, nil

	case startedMsg:
		m.loading = false
		m.profile = msg.profile
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.host = msg.host
		m.bg = msg.bg
		return m, launch(m.bg)

	case settingsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.settings = msg.settings
			m.loaded = true
		}
		if m.renderer != nil {
			m.badge = m.renderer.State()
		}
		return m, nil

	case refreshedMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.showPicker {
			return m.updatePicker(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.Close()
			return m, tea.Quit
		case "p":
			m.Close()
			m.host, m.bg, m.loaded = nil, nil, false
			m.picker = NewProfilePicker(m.profiles)
			m.showPicker = true
			return m, nil
		}
		if !m.loaded {
			return m, nil
		}
		switch msg.String() {
		case "m":
			next := string(m.settings.CounterMode.Next())
			return m, m.updateSettings(func(r *settings.Record) { r.CounterMode = &next })
		case "h":
			include := !m.settings.IncludeHiddenTabs
			return m, m.updateSettings(func(r *settings.Record) { r.IncludeHiddenTabs = &include })
		case "r":
			return m, refresh(m.host)
		}
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		p, ok := m.picker.Selected()
		if !ok {
			return m, nil
		}
		m.showPicker = false
		m.loading = true
		m.profile = p
		return m, m.start(p)
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	var b strings.Builder
	state := "watching"
	if m.loading {
		state = "loading..."
	} else if m.host == nil {
		state = "stopped"
	}
	b.WriteString(renderTopBar("Tab Counter", fmt.Sprintf("Profile: %s (%s)", m.profile.Name, state), m.width))
	b.WriteString("\n\n")

	b.WriteString("  " + renderBadge(m.badge))
	if m.badge.Icon != "" {
		dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		b.WriteString("  " + dim.Render(m.badge.Icon))
	}
	b.WriteString("\n\n")

	if m.badge.Title != "" {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			MarginLeft(2)
		b.WriteString(box.Render(m.badge.Title) + "\n")
	}

	if m.loaded {
		hidden := "excluded"
		if m.settings.IncludeHiddenTabs {
			hidden = "included"
		}
		info := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
		b.WriteString(info.Render(fmt.Sprintf("counter: %s · hidden tabs: %s", m.settings.CounterMode, hidden)) + "\n")
	}

	if m.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).PaddingLeft(2)
		b.WriteString("\n" + errStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	help := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	b.WriteString("\n" + help.Render("m mode · h hidden tabs · r reload · p profile · q quit"))
	return b.String()
}
