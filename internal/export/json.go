package export

import (
	"time"

	"github.com/goccy/go-json"
)

type jsonExport struct {
	Profile     string       `json:"profile"`
	GeneratedAt time.Time    `json:"generated_at"`
	Counter     string       `json:"counter"`
	Badge       string       `json:"badge"`
	Tooltip     string       `json:"tooltip"`
	WindowTabs  int          `json:"current_window_tabs"`
	AllTabs     int          `json:"all_tabs"`
	Windows     int          `json:"windows"`
	ActiveTabID *int         `json:"active_tab_id,omitempty"`
	PerWindow   []jsonWindow `json:"per_window"`
}

type jsonWindow struct {
	Index   int    `json:"index"`
	Tabs    int    `json:"tabs"`
	Hidden  int    `json:"hidden,omitempty"`
	Pinned  int    `json:"pinned,omitempty"`
	Popup   bool   `json:"popup,omitempty"`
	Focused bool   `json:"focused,omitempty"`
	Active  string `json:"active,omitempty"`
}

// JSON formats a report as a JSON document.
func JSON(r Report) (string, error) {
	out := jsonExport{
		Profile:     r.Profile,
		GeneratedAt: r.GeneratedAt,
		Counter:     string(r.Counter),
		Badge:       r.Badge,
		Tooltip:     tooltip(r),
		WindowTabs:  r.Snapshot.CurrentWindowTabs,
		AllTabs:     r.Snapshot.AllWindowsTabs,
		Windows:     r.Snapshot.Windows,
		ActiveTabID: r.Snapshot.ActiveTabID,
		PerWindow:   make([]jsonWindow, 0, len(r.Windows)),
	}
	for _, w := range r.Windows {
		out.PerWindow = append(out.PerWindow, jsonWindow(w))
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
