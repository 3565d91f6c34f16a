package export

import (
	"strings"
	"testing"

	"github.com/lotas/tabcounter/internal/settings"
)

func TestMarkdown(t *testing.T) {
	result := Markdown(sampleReport(settings.ModeWindowAndAll))

	for _, want := range []string{
		"# Tab count: default",
		"Badge: **2/3** (windowAndAll)",
		"- Tabs in this window: 2",
		"- Tabs in all windows: 3",
		"- Number of windows: 1",
		"| 1 * | 3 | 1 | 1 | https://example.com |",
		`| 2 (popup) | 1 | 0 | 0 | Sign in \| Example |`,
	} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
}

func TestMarkdown_CounterOff(t *testing.T) {
	result := Markdown(sampleReport(settings.ModeNone))
	if !strings.Contains(result, "Badge: **(off)** (none)") {
		t.Errorf("expected off marker, got:\n%s", result)
	}
}

func TestMarkdown_NoWindows(t *testing.T) {
	r := sampleReport(settings.ModeCurrentWindow)
	r.Windows = nil
	result := Markdown(r)
	if strings.Contains(result, "## Windows") {
		t.Errorf("windows table rendered without windows:\n%s", result)
	}
}
