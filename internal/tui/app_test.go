package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabcounter/internal/background"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/schedule"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/lotas/tabcounter/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTabs = `{"selectedWindow":1,"windows":[{"selected":1,"tabs":[
	{"entries":[{"url":"https://a.example","title":"A"}],"index":1},
	{"entries":[{"url":"https://b.example","title":"B"}],"index":1}
]}]}`

func profileWithSession(t *testing.T, name, content string) types.Profile {
	t.Helper()
	dir := t.TempDir()
	backups := filepath.Join(dir, "sessionstore-backups")
	require.NoError(t, os.MkdirAll(backups, 0o755))
	packed, err := firefox.CompressMozLz4([]byte(content))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(backups, "recovery.jsonlz4"), packed, 0o644))
	return types.Profile{Name: name, Path: dir}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and runs the returned command, feeding its result back.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		if out == nil {
			break
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func testOptions() background.Options {
	return background.Options{
		Version: settings.MustParseVersion("0.6.0"),
		Timing:  schedule.Timing{Settle: 10 * time.Millisecond, PrioritySettle: 10 * time.Millisecond, RemovalDelay: 10 * time.Millisecond},
	}
}

func TestModelPipeline(t *testing.T) {
	p := profileWithSession(t, "work", twoTabs)
	store := settings.NewMemoryStore(&settings.Record{
		Version:     strPtr("0.6.0"),
		CounterMode: strPtr("allWindows"),
	})
	r := NewRenderer()
	m := NewModel([]types.Profile{p}, "", store, testOptions(), r).
		WithWatchOptions(watch.WithDebounce(10 * time.Millisecond))
	defer func() { m.Close() }()

	m = step(t, m, m.Init()())
	require.NoError(t, m.err)
	assert.Equal(t, "2", r.State().Text)
	assert.Contains(t, r.State().Title, "Tabs in all windows: 2")
	assert.Equal(t, settings.ModeAllWindows, m.settings.CounterMode)
	assert.Contains(t, m.View(), "Profile: work (watching)")

	m = step(t, m, key("m"))
	assert.Equal(t, settings.ModeWindowAndAll, m.settings.CounterMode)
	assert.Equal(t, "2/2", r.State().Text)
	raw, _, _ := store.Load(context.Background())
	assert.Equal(t, "windowAndAll", *raw.CounterMode)

	m = step(t, m, key("h"))
	assert.True(t, m.settings.IncludeHiddenTabs)
	assert.Contains(t, m.View(), "hidden tabs: included")
}

func TestModelPickerSelectsProfile(t *testing.T) {
	a := types.Profile{Name: "a", Path: t.TempDir()}
	b := types.Profile{Name: "b", Path: t.TempDir(), IsDefault: true}
	m := NewModel([]types.Profile{a, b}, "", settings.NewMemoryStore(nil), testOptions(), NewRenderer())

	require.True(t, m.showPicker)
	assert.Equal(t, 1, m.picker.Cursor, "default profile preselected")
	assert.Nil(t, m.Init())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	next, cmd := m.Update(key("enter"))
	m = next.(Model)

	assert.False(t, m.showPicker)
	assert.True(t, m.loading)
	assert.Equal(t, "a", m.profile.Name)
	require.NotNil(t, cmd)

	// Profile a has no session file.
	m = step(t, m, cmd())
	assert.Error(t, m.err)
	assert.Contains(t, m.View(), "Error:")
}

func TestModelUnknownProfile(t *testing.T) {
	m := NewModel([]types.Profile{{Name: "a"}}, "missing", settings.NewMemoryStore(nil), testOptions(), NewRenderer())
	assert.Error(t, m.err)
	assert.Nil(t, m.Init())
}

func TestModelIgnoresSettingKeysBeforeLoad(t *testing.T) {
	m := NewModel([]types.Profile{{Name: "a"}}, "", settings.NewMemoryStore(nil), testOptions(), NewRenderer())
	next, cmd := m.Update(key("m"))
	assert.Nil(t, cmd)
	assert.False(t, next.(Model).loaded)
}

func TestRendererDeliversState(t *testing.T) {
	r := NewRenderer()
	var msgs []tea.Msg
	r.Attach(func(msg tea.Msg) { msgs = append(msgs, msg) })
	ctx := context.Background()
	tab := 3

	require.NoError(t, r.SetBadgeBackgroundColor(ctx, "#999"))
	require.NoError(t, r.SetBadgeText(ctx, "12", &tab))
	color := "#ff0000"
	require.NoError(t, r.SetBadgeTextColor(ctx, &color))
	color = "#00ff00"

	st := r.State()
	assert.Equal(t, "12", st.Text)
	assert.Equal(t, "#999", st.Color)
	require.NotNil(t, st.TextColor)
	assert.Equal(t, "#ff0000", *st.TextColor)
	assert.Len(t, msgs, 3)

	require.NoError(t, r.SetBadgeTextColor(ctx, nil))
	assert.Nil(t, r.State().TextColor)

	m := Model{}
	next, _ := m.Update(msgs[1])
	assert.Equal(t, "12", next.(Model).badge.Text)
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		bg, want string
	}{
		{"#000", "#fff"},
		{"#fff", "#000"},
		{"#ffff00", "#000"},
		{"#00008b", "#fff"},
		{"rebeccapurple", "#fff"},
		{"", "#fff"},
	}
	for _, tt := range tests {
		t.Run(tt.bg, func(t *testing.T) {
			assert.Equal(t, tt.want, contrastColor(tt.bg))
		})
	}
}

func TestRenderBadge(t *testing.T) {
	out := renderBadge(BadgeState{Text: "3/9", Color: "#999"})
	assert.Contains(t, out, "3/9")
	assert.Equal(t, 3, lipgloss.Width(renderBadge(BadgeState{Text: ""})), "blank badge keeps its padding")
}

func strPtr(s string) *string { return &s }

func TestProfilePicker(t *testing.T) {
	withSession := profileWithSession(t, "work", twoTabs)
	picker := NewProfilePicker([]types.Profile{
		{Name: "empty", Path: t.TempDir()},
		withSession,
	})

	assert.True(t, picker.Saved[0].IsZero())
	assert.False(t, picker.Saved[1].IsZero())
	assert.Contains(t, picker.View(), "saved just now")

	picker.MoveUp()
	assert.Equal(t, 0, picker.Cursor)
	picker.MoveDown()
	picker.MoveDown()
	p, ok := picker.Selected()
	require.True(t, ok)
	assert.Equal(t, "work", p.Name)

	_, ok = NewProfilePicker(nil).Selected()
	assert.False(t, ok)
}

func TestSessionAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "saved just now"},
		{5 * time.Minute, "saved 5 min ago"},
		{3 * time.Hour, "saved 3 hours ago"},
		{50 * time.Hour, "saved 2 days ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sessionAge(now.Add(-tt.ago), now))
	}
	assert.Empty(t, sessionAge(time.Time{}, now))
}
