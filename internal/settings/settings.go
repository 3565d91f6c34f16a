// Package settings holds the persisted settings record, the version-gated
// migration rules that bring old records up to date, and the defaulting pass
// that completes partial records.
package settings

import (
	"fmt"
	"strconv"
)

// CounterMode selects which count the badge shows.
type CounterMode string

const (
	ModeNone            CounterMode = "none"
	ModeCurrentWindow   CounterMode = "currentWindow"
	ModeAllWindows      CounterMode = "allWindows"
	ModeWindowAndAll    CounterMode = "windowAndAll"
	ModeNumberOfWindows CounterMode = "numberOfWindows"
)

// Modes lists every valid counter mode in the order the options surface cycles them.
var Modes = []CounterMode{
	ModeCurrentWindow,
	ModeAllWindows,
	ModeWindowAndAll,
	ModeNumberOfWindows,
	ModeNone,
}

// Valid reports whether m is one of the five known modes.
func (m CounterMode) Valid() bool {
	for _, v := range Modes {
		if m == v {
			return true
		}
	}
	return false
}

// Next returns the mode after m in Modes, wrapping around.
func (m CounterMode) Next() CounterMode {
	for i, v := range Modes {
		if v == m {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return Modes[0]
}

// ParseCounterMode validates a user-supplied mode name.
func ParseCounterMode(s string) (CounterMode, error) {
	m := CounterMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown counter mode %q", s)
	}
	return m, nil
}

// Record is the persisted, possibly partial settings record. A nil field was
// never written (or was dropped by a migration) and is filled by ApplyDefaults.
type Record struct {
	Version                   *string `json:"version,omitempty"`
	CounterMode               *string `json:"counter,omitempty"`
	BadgeColor                *string `json:"badgeColor,omitempty"`
	BadgeTextColor            *string `json:"badgeTextColor,omitempty"`
	BadgeTextColorAuto        *bool   `json:"badgeTextColorAuto,omitempty"`
	Icon                      *string `json:"icon,omitempty"`
	IncludeHiddenTabs         *bool   `json:"includeHidden,omitempty"`
	ShowHiddenInSecondaryView *bool   `json:"hiddenInPopup,omitempty"`
}

// Settings is a complete settings record.
type Settings struct {
	Version                   string      `json:"version"`
	CounterMode               CounterMode `json:"counter"`
	BadgeColor                string      `json:"badgeColor"`
	BadgeTextColor            string      `json:"badgeTextColor"`
	BadgeTextColorAuto        bool        `json:"badgeTextColorAuto"`
	Icon                      string      `json:"icon"`
	IncludeHiddenTabs         bool        `json:"includeHidden"`
	ShowHiddenInSecondaryView bool        `json:"hiddenInPopup"`
}

// Record converts s back to its persisted form with every field set.
func (s Settings) Record() Record {
	mode := string(s.CounterMode)
	return Record{
		Version:                   ptr(s.Version),
		CounterMode:               &mode,
		BadgeColor:                ptr(s.BadgeColor),
		BadgeTextColor:            ptr(s.BadgeTextColor),
		BadgeTextColorAuto:        ptr(s.BadgeTextColorAuto),
		Icon:                      ptr(s.Icon),
		IncludeHiddenTabs:         ptr(s.IncludeHiddenTabs),
		ShowHiddenInSecondaryView: ptr(s.ShowHiddenInSecondaryView),
	}
}

// Capabilities reports optional features of the rendering host.
type Capabilities interface {
	// BadgeTextColor reports whether the host can set the badge text color,
	// including resetting it to automatic contrast.
	BadgeTextColor() bool
}

// StaticCapabilities is a fixed Capabilities value.
type StaticCapabilities struct {
	TextColor bool
}

func (c StaticCapabilities) BadgeTextColor() bool { return c.TextColor }

// Set assigns one field of r by its persisted key. It backs `settings set`.
func (r *Record) Set(key, value string) error {
	switch key {
	case "counter":
		if _, err := ParseCounterMode(value); err != nil {
			return err
		}
		r.CounterMode = ptr(value)
	case "badgeColor":
		r.BadgeColor = ptr(value)
	case "badgeTextColor":
		r.BadgeTextColor = ptr(value)
	case "icon":
		r.Icon = ptr(value)
	case "badgeTextColorAuto", "includeHidden", "hiddenInPopup":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "badgeTextColorAuto":
			r.BadgeTextColorAuto = &b
		case "includeHidden":
			r.IncludeHiddenTabs = &b
		default:
			r.ShowHiddenInSecondaryView = &b
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
