package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/types"
)

// ProfilePicker is an overlay for selecting the Firefox profile whose
// session file drives the badge.
type ProfilePicker struct {
	Profiles []types.Profile
	Cursor   int
	// Saved is when each profile's session file was last written, by index.
	Saved []time.Time
}

func NewProfilePicker(profiles []types.Profile) ProfilePicker {
	cursor := 0
	for i, p := range profiles {
		if p.IsDefault {
			cursor = i
			break
		}
	}
	saved := make([]time.Time, len(profiles))
	for i, p := range profiles {
		if path, err := firefox.SessionPath(p.Path); err == nil {
			if info, err := os.Stat(path); err == nil {
				saved[i] = info.ModTime()
			}
		}
	}
	return ProfilePicker{
		Profiles: profiles,
		Cursor:   cursor,
		Saved:    saved,
	}
}

// sessionAge describes how long ago a session file was saved.
func sessionAge(saved, now time.Time) string {
	if saved.IsZero() {
		return ""
	}
	age := now.Sub(saved)
	switch {
	case age < time.Minute:
		return "saved just now"
	case age < time.Hour:
		return fmt.Sprintf("saved %d min ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("saved %d hours ago", int(age.Hours()))
	}
	return fmt.Sprintf("saved %d days ago", int(age.Hours()/24))
}

func (m *ProfilePicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *ProfilePicker) MoveDown() {
	if m.Cursor < len(m.Profiles)-1 {
		m.Cursor++
	}
}

// Selected returns the profile under the cursor. ok is false when there are
// no profiles.
func (m ProfilePicker) Selected() (types.Profile, bool) {
	if len(m.Profiles) == 0 {
		return types.Profile{}, false
	}
	return m.Profiles[m.Cursor], true
}

func (m ProfilePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	ageStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Count tabs of which profile?") + "\n\n")

	if len(m.Profiles) == 0 {
		b.WriteString(normalStyle.Render("No profiles with a session file.") + "\n")
	}
	now := time.Now()
	for i, p := range m.Profiles {
		label := p.Name
		if p.IsDefault {
			label += " (default)"
		}
		line := fmt.Sprintf("  %s", label)
		if i == m.Cursor {
			line = selectedStyle.Render("> " + label)
		} else {
			line = normalStyle.Render(line)
		}
		if i < len(m.Saved) {
			if age := sessionAge(m.Saved[i], now); age != "" {
				line += " " + ageStyle.Render(age)
			}
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter select · q quit"))

	return boxStyle.Render(b.String())
}
