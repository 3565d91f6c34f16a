package export

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
)

// sampleSession has a focused window with three tabs (one hidden, one
// pinned) and a popup.
func sampleSession() *types.SessionData {
	w0 := &types.Window{Index: 0}
	for i, tab := range []*types.Tab{
		{ID: 1, Title: "Go docs", URL: "https://go.dev/doc", Pinned: true},
		{ID: 2, Title: "", URL: "https://example.com", Active: true},
		{ID: 3, Title: "Hidden", URL: "https://hidden.example", Hidden: true},
	} {
		tab.TabIndex = i
		w0.Tabs = append(w0.Tabs, tab)
	}
	w0.Active = w0.Tabs[1]

	popupTab := &types.Tab{ID: 4, Title: "Sign in | Example", URL: "https://login.example", WindowIndex: 1, Active: true}
	w1 := &types.Window{Index: 1, Popup: true, Tabs: []*types.Tab{popupTab}, Active: popupTab}

	return &types.SessionData{
		Profile:        types.Profile{Name: "default"},
		Windows:        []*types.Window{w0, w1},
		AllTabs:        append(append([]*types.Tab{}, w0.Tabs...), popupTab),
		SelectedWindow: 0,
	}
}

func sampleReport(mode settings.CounterMode) Report {
	s := settings.Defaults(settings.MustParseVersion("0.6.0"), settings.StaticCapabilities{})
	s.CounterMode = mode
	active := 2
	snap := counter.Snapshot{CurrentWindowTabs: 2, AllWindowsTabs: 3, Windows: 1, ActiveTabID: &active}
	return NewReport(sampleSession(), s, snap)
}

func TestNewReport(t *testing.T) {
	r := sampleReport(settings.ModeWindowAndAll)

	if r.Badge != "2/3" {
		t.Errorf("badge = %q, want 2/3", r.Badge)
	}
	if len(r.Windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(r.Windows))
	}
	w0 := r.Windows[0]
	if w0.Tabs != 3 || w0.Hidden != 1 || w0.Pinned != 1 || !w0.Focused {
		t.Errorf("window 0 = %+v", w0)
	}
	// An untitled tab falls back to its URL.
	if w0.Active != "https://example.com" {
		t.Errorf("window 0 active = %q", w0.Active)
	}
	if !r.Windows[1].Popup || r.Windows[1].Focused {
		t.Errorf("window 1 = %+v", r.Windows[1])
	}
}

func TestJSON(t *testing.T) {
	result, err := JSON(sampleReport(settings.ModeAllWindows))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed jsonExport
	if err := json.Unmarshal([]byte(result), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\noutput:\n%s", err, result)
	}
	if parsed.Profile != "default" {
		t.Errorf("expected profile 'default', got %q", parsed.Profile)
	}
	if parsed.Counter != "allWindows" || parsed.Badge != "3" {
		t.Errorf("counter/badge = %q/%q", parsed.Counter, parsed.Badge)
	}
	if parsed.AllTabs != 3 || parsed.WindowTabs != 2 || parsed.Windows != 1 {
		t.Errorf("counts = %d/%d/%d", parsed.WindowTabs, parsed.AllTabs, parsed.Windows)
	}
	if parsed.ActiveTabID == nil || *parsed.ActiveTabID != 2 {
		t.Errorf("active tab = %v", parsed.ActiveTabID)
	}
	if len(parsed.PerWindow) != 2 {
		t.Errorf("per_window has %d entries", len(parsed.PerWindow))
	}
	if parsed.Tooltip != "Tab Counter\nTabs in this window:  2\nTabs in all windows: 3\nNumber of windows: 1" {
		t.Errorf("tooltip = %q", parsed.Tooltip)
	}
}

func TestJSON_CounterOff(t *testing.T) {
	result, err := JSON(sampleReport(settings.ModeNone))
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	json.Unmarshal([]byte(result), &parsed)
	if parsed["badge"] != "" {
		t.Errorf("badge = %v, want empty", parsed["badge"])
	}
}
