package firefox

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/pierrec/lz4/v4"
)

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// SessionFiles are tried in order: the live session, then the last closed one.
var SessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}

	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}

// CompressMozLz4 is the inverse of DecompressMozLz4.
func CompressMozLz4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: compress failed: %w", err)
	}
	out := make([]byte, 0, 12+n)
	out = append(out, mozLz4Magic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, buf[:n]...), nil
}

// Raw JSON types for Firefox session file parsing.
type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries []rawEntry `json:"entries"`
	Index   int        `json:"index"`
	Hidden  bool       `json:"hidden"`
	Pinned  bool       `json:"pinned"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"` // 1-based
	IsPopup  bool     `json:"isPopup"`
}

type rawSession struct {
	Windows        []rawWindow `json:"windows"`
	SelectedWindow int         `json:"selectedWindow"` // 1-based, 0 if unknown
}

// ParseSession parses raw JSON session data into a SessionData structure.
// Tabs get sequential IDs starting at 1 in file order.
func ParseSession(data []byte) (*types.SessionData, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	sd := &types.SessionData{
		SelectedWindow: raw.SelectedWindow - 1,
		ParsedAt:       time.Now(),
	}
	if len(raw.Windows) == 0 || sd.SelectedWindow >= len(raw.Windows) {
		sd.SelectedWindow = -1
	}

	nextID := 1
	for winIdx, rw := range raw.Windows {
		win := &types.Window{Index: winIdx, Popup: rw.IsPopup}

		for tabIdx, rt := range rw.Tabs {
			tab := &types.Tab{
				ID:          nextID,
				WindowIndex: winIdx,
				TabIndex:    tabIdx,
				Hidden:      rt.Hidden,
				Pinned:      rt.Pinned,
				Active:      tabIdx == rw.Selected-1,
			}
			nextID++

			// index is 1-based; current page is entries[index-1].
			if len(rt.Entries) > 0 {
				entryIdx := rt.Index - 1
				if entryIdx < 0 || entryIdx >= len(rt.Entries) {
					entryIdx = len(rt.Entries) - 1
				}
				tab.URL = rt.Entries[entryIdx].URL
				tab.Title = rt.Entries[entryIdx].Title
			}

			if tab.Active {
				win.Active = tab
			}
			win.Tabs = append(win.Tabs, tab)
			sd.AllTabs = append(sd.AllTabs, tab)
		}
		sd.Windows = append(sd.Windows, win)
	}

	return sd, nil
}

// SessionPath returns the session file to read in profileDir.
func SessionPath(profileDir string) (string, error) {
	backupDir := filepath.Join(profileDir, "sessionstore-backups")
	for _, name := range SessionFiles {
		p := filepath.Join(backupDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no session file found in %s", backupDir)
}

// ReadSessionFile reads and parses a Firefox session recovery file from the given profile directory.
func ReadSessionFile(profileDir string) (*types.SessionData, error) {
	path, err := SessionPath(profileDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}

	return ParseSession(decompressed)
}
