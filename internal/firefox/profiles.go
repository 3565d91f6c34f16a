package firefox

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lotas/tabcounter/internal/types"
)

// firefoxDirs lists where Firefox keeps profiles.ini on this platform,
// most common first.
func firefoxDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	switch runtime.GOOS {
	case "linux":
		return []string{
			filepath.Join(home, ".mozilla", "firefox"),
			filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox"),
			filepath.Join(home, ".var", "app", "org.mozilla.firefox", ".mozilla", "firefox"),
		}
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Firefox")}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return []string{filepath.Join(appData, "Mozilla", "Firefox")}
		}
	}
	return nil
}

// FindFirefoxDir returns the first Firefox directory holding a
// profiles.ini, or "" when there is none.
func FindFirefoxDir() string {
	for _, dir := range firefoxDirs() {
		if _, err := os.Stat(filepath.Join(dir, "profiles.ini")); err == nil {
			return dir
		}
	}
	return ""
}

type iniSection struct {
	name   string
	values map[string]string
}

func parseINI(r io.Reader) ([]iniSection, error) {
	var sections []iniSection
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, ";"), strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			sections = append(sections, iniSection{name: line[1 : len(line)-1], values: map[string]string{}})
		case len(sections) > 0:
			if key, value, ok := strings.Cut(line, "="); ok {
				sections[len(sections)-1].values[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
	}
	return sections, scanner.Err()
}

// ParseProfilesINI reads profiles.ini and returns the profiles that have a
// session file. Relative paths are resolved against firefoxDir. The default
// is the profile an [Install] section points at, falling back to the
// legacy Default=1 flag.
func ParseProfilesINI(iniPath, firefoxDir string) ([]types.Profile, error) {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil, fmt.Errorf("open profiles.ini: %w", err)
	}
	defer f.Close()

	sections, err := parseINI(f)
	if err != nil {
		return nil, fmt.Errorf("scan profiles.ini: %w", err)
	}

	installDefaults := map[string]bool{}
	for _, sec := range sections {
		if strings.HasPrefix(sec.name, "Install") && sec.values["Default"] != "" {
			installDefaults[sec.values["Default"]] = true
		}
	}

	var profiles []types.Profile
	for _, sec := range sections {
		if !strings.HasPrefix(sec.name, "Profile") {
			continue
		}
		rawPath := sec.values["Path"]
		p := types.Profile{
			Name:       sec.values["Name"],
			Path:       rawPath,
			IsRelative: sec.values["IsRelative"] == "1",
		}
		if p.IsRelative {
			p.Path = filepath.Join(firefoxDir, filepath.FromSlash(rawPath))
		}
		if len(installDefaults) > 0 {
			p.IsDefault = installDefaults[rawPath]
		} else {
			p.IsDefault = sec.values["Default"] == "1"
		}
		// Only profiles with a session file can be counted.
		if _, err := SessionPath(p.Path); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// PickProfile returns the profile called name, or the default profile when
// name is empty. With no default the first profile wins.
func PickProfile(profiles []types.Profile, name string) (types.Profile, error) {
	if len(profiles) == 0 {
		return types.Profile{}, fmt.Errorf("no Firefox profiles with a session file")
	}
	if name != "" {
		for _, p := range profiles {
			if p.Name == name {
				return p, nil
			}
		}
		return types.Profile{}, fmt.Errorf("profile %q not found", name)
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, nil
		}
	}
	return profiles[0], nil
}

// DiscoverProfiles finds and parses Firefox profiles on this system.
func DiscoverProfiles() ([]types.Profile, error) {
	dir := FindFirefoxDir()
	if dir == "" {
		return nil, fmt.Errorf("no Firefox profiles.ini found for %s", runtime.GOOS)
	}
	return ParseProfilesINI(filepath.Join(dir, "profiles.ini"), dir)
}
