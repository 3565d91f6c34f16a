package export

import (
	"fmt"
	"strings"

	"github.com/lotas/tabcounter/internal/counter"
)

// Markdown formats a report as a markdown document.
func Markdown(r Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Tab count: %s\n", r.Profile)
	fmt.Fprintf(&b, "> Generated %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	badge := r.Badge
	if badge == "" {
		badge = "(off)"
	}
	fmt.Fprintf(&b, "Badge: **%s** (%s)\n\n", badge, r.Counter)
	fmt.Fprintf(&b, "- Tabs in this window: %d\n", r.Snapshot.CurrentWindowTabs)
	fmt.Fprintf(&b, "- Tabs in all windows: %d\n", r.Snapshot.AllWindowsTabs)
	fmt.Fprintf(&b, "- Number of windows: %d\n", r.Snapshot.Windows)

	if len(r.Windows) == 0 {
		return b.String()
	}

	b.WriteString("\n## Windows\n\n")
	b.WriteString("| # | tabs | hidden | pinned | selected tab |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, w := range r.Windows {
		label := fmt.Sprintf("%d", w.Index+1)
		if w.Focused {
			label += " *"
		}
		if w.Popup {
			label += " (popup)"
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %s |\n", label, w.Tabs, w.Hidden, w.Pinned, escapeCell(w.Active))
	}
	return b.String()
}

func tooltip(r Report) string {
	return counter.Tooltip(r.Snapshot)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
