// Package export renders a tab count report as JSON or markdown.
package export

import (
	"time"

	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
)

// Report is the result of one count run.
type Report struct {
	Profile     string
	GeneratedAt time.Time
	Counter     settings.CounterMode
	Badge       string // empty when the counter is off
	Snapshot    counter.Snapshot
	Windows     []WindowReport
}

// WindowReport breaks the counts down per window.
type WindowReport struct {
	Index   int
	Tabs    int
	Hidden  int
	Pinned  int
	Popup   bool
	Focused bool
	Active  string // title or URL of the selected tab
}

// NewReport assembles a report from a session and the snapshot taken of it.
func NewReport(data *types.SessionData, s settings.Settings, snap counter.Snapshot) Report {
	badge, _ := counter.Format(s.CounterMode, snap)
	r := Report{
		Profile:     data.Profile.Name,
		GeneratedAt: time.Now(),
		Counter:     s.CounterMode,
		Badge:       badge,
		Snapshot:    snap,
	}
	for i, w := range data.Windows {
		wr := WindowReport{
			Index:   w.Index,
			Tabs:    len(w.Tabs),
			Popup:   w.Popup,
			Focused: i == data.SelectedWindow,
		}
		for _, t := range w.Tabs {
			if t.Hidden {
				wr.Hidden++
			}
			if t.Pinned {
				wr.Pinned++
			}
		}
		if w.Active != nil {
			wr.Active = w.Active.Title
			if wr.Active == "" {
				wr.Active = w.Active.URL
			}
		}
		r.Windows = append(r.Windows, wr)
	}
	return r
}
