package settings

import "github.com/lotas/tabcounter/internal/applog"

// DefaultIcon is the theme-adaptive toolbar icon.
const DefaultIcon = "tabcounter.plain.min.svg"

// legacyCounterCodes maps the integer codes stored before 0.5.0 to modes.
var legacyCounterCodes = map[string]CounterMode{
	"0": ModeCurrentWindow,
	"1": ModeAllWindows,
	"2": ModeWindowAndAll,
	"3": ModeNone,
	"4": ModeNumberOfWindows,
}

// rule is one version-gated upgrade step. It applies to records whose stored
// version sorts before Below. Apply must only replace pointers on r, never
// write through them, so the caller's record is left untouched.
type rule struct {
	Below       Version
	Description string
	Apply       func(r *Record, caps Capabilities)
}

var rules = []rule{
	{
		Below:       Version{0, 3, 0},
		Description: "icons adapt to the theme; reset the icon selection",
		Apply: func(r *Record, _ Capabilities) {
			r.Icon = ptr(DefaultIcon)
		},
	},
	{
		Below:       Version{0, 4, 0},
		Description: "enable automatic badge text color where the host supports it",
		Apply: func(r *Record, caps Capabilities) {
			r.BadgeTextColorAuto = ptr(caps.BadgeTextColor())
		},
	},
	{
		Below:       Version{0, 5, 0},
		Description: "translate integer counter codes to mode names",
		Apply: func(r *Record, _ Capabilities) {
			if r.CounterMode == nil {
				return
			}
			if mode, ok := legacyCounterCodes[*r.CounterMode]; ok {
				r.CounterMode = ptr(string(mode))
				return
			}
			if !CounterMode(*r.CounterMode).Valid() && *r.CounterMode != "nbWindows" {
				r.CounterMode = nil
			}
		},
	},
	{
		Below:       Version{0, 6, 0},
		Description: "rename nbWindows to numberOfWindows",
		Apply: func(r *Record, _ Capabilities) {
			if r.CounterMode != nil && *r.CounterMode == "nbWindows" {
				r.CounterMode = ptr(string(ModeNumberOfWindows))
			}
		},
	},
}

// Migrate upgrades raw to the current schema version. When the stored version
// is missing or malformed, raw is returned unchanged so a working install is
// never rewritten on a guess. Migrating an already current record is a no-op
// apart from stamping the version, so Migrate is idempotent.
func Migrate(raw Record, current Version, caps Capabilities) Record {
	if raw.Version == nil {
		return raw
	}
	stored, err := ParseVersion(*raw.Version)
	if err != nil {
		applog.Info("settings.migrate.skipped", "version", *raw.Version)
		return raw
	}

	out := raw
	for _, r := range rules {
		if stored.Less(r.Below) {
			r.Apply(&out, caps)
			applog.Debug("settings.migrate.rule", "below", r.Below, "rule", r.Description)
		}
	}
	out.Version = ptr(current.String())
	return out
}

// Defaults returns the settings a fresh install starts with.
func Defaults(current Version, caps Capabilities) Settings {
	return Settings{
		Version:                   current.String(),
		CounterMode:               ModeCurrentWindow,
		BadgeColor:                "#999",
		BadgeTextColor:            "#000",
		BadgeTextColorAuto:        caps.BadgeTextColor(),
		Icon:                      DefaultIcon,
		IncludeHiddenTabs:         false,
		ShowHiddenInSecondaryView: false,
	}
}

// ApplyDefaults completes raw with Defaults. Fields present in raw win, except
// a counter mode outside the known set, which is treated as missing.
func ApplyDefaults(raw Record, current Version, caps Capabilities) Settings {
	s := Defaults(current, caps)
	if raw.Version != nil {
		s.Version = *raw.Version
	}
	if raw.CounterMode != nil && CounterMode(*raw.CounterMode).Valid() {
		s.CounterMode = CounterMode(*raw.CounterMode)
	}
	if raw.BadgeColor != nil {
		s.BadgeColor = *raw.BadgeColor
	}
	if raw.BadgeTextColor != nil {
		s.BadgeTextColor = *raw.BadgeTextColor
	}
	if raw.BadgeTextColorAuto != nil {
		s.BadgeTextColorAuto = *raw.BadgeTextColorAuto
	}
	if raw.Icon != nil {
		s.Icon = *raw.Icon
	}
	if raw.IncludeHiddenTabs != nil {
		s.IncludeHiddenTabs = *raw.IncludeHiddenTabs
	}
	if raw.ShowHiddenInSecondaryView != nil {
		s.ShowHiddenInSecondaryView = *raw.ShowHiddenInSecondaryView
	}
	return s
}
