package types

import "time"

// Tab represents a single browser tab.
type Tab struct {
	ID          int // live tab ID, or a synthetic one when read from a session file
	URL         string
	Title       string
	WindowIndex int
	TabIndex    int
	Hidden      bool
	Pinned      bool
	Active      bool // selected tab of its window
}

// Window represents a browser window and the tabs it holds.
type Window struct {
	Index  int
	Popup  bool
	Tabs   []*Tab
	Active *Tab // nil if the window has no selected tab
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}

// SessionData holds all parsed data from a Firefox session.
type SessionData struct {
	Windows        []*Window
	AllTabs        []*Tab
	SelectedWindow int // index into Windows, -1 when unknown
	Profile        Profile
	ParsedAt       time.Time
}

// CurrentWindow returns the focused window, or nil.
func (s *SessionData) CurrentWindow() *Window {
	if s.SelectedWindow < 0 || s.SelectedWindow >= len(s.Windows) {
		return nil
	}
	return s.Windows[s.SelectedWindow]
}

// EventClass identifies a browser tab or window event that can trigger a
// badge update.
type EventClass int

const (
	TabActivated EventClass = iota
	TabAttached
	TabCreated
	TabDetached
	TabMoved
	TabReplaced
	TabRemoved
	TabUpdated
	WindowCreated
	WindowRemoved
	WindowFocusChanged
)

// AllEventClasses lists every class in declaration order.
var AllEventClasses = []EventClass{
	TabActivated,
	TabAttached,
	TabCreated,
	TabDetached,
	TabMoved,
	TabReplaced,
	TabRemoved,
	TabUpdated,
	WindowCreated,
	WindowRemoved,
	WindowFocusChanged,
}

var eventNames = map[EventClass]string{
	TabActivated:       "tabs.onActivated",
	TabAttached:        "tabs.onAttached",
	TabCreated:         "tabs.onCreated",
	TabDetached:        "tabs.onDetached",
	TabMoved:           "tabs.onMoved",
	TabReplaced:        "tabs.onReplaced",
	TabRemoved:         "tabs.onRemoved",
	TabUpdated:         "tabs.onUpdated",
	WindowCreated:      "windows.onCreated",
	WindowRemoved:      "windows.onRemoved",
	WindowFocusChanged: "windows.onFocusChanged",
}

// String returns the WebExtension event name, e.g. "tabs.onRemoved".
func (c EventClass) String() string {
	if name, ok := eventNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseEventClass maps a WebExtension event name back to its class.
func ParseEventClass(name string) (EventClass, bool) {
	for c, n := range eventNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}
