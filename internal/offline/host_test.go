package offline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lotas/tabcounter/internal/background"
	"github.com/lotas/tabcounter/internal/badge"
	"github.com/lotas/tabcounter/internal/firefox"
	"github.com/lotas/tabcounter/internal/schedule"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/lotas/tabcounter/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionWith builds a one-window session with n tabs, the first selected.
func sessionWith(n int) string {
	tabs := make([]string, n)
	for i := range tabs {
		tabs[i] = fmt.Sprintf(`{"entries":[{"url":"https://example.com/%d","title":"T%d"}],"index":1}`, i, i)
	}
	return fmt.Sprintf(`{"selectedWindow":1,"windows":[{"selected":1,"tabs":[%s]}]}`, strings.Join(tabs, ","))
}

func writeSession(t *testing.T, profileDir, content string) {
	t.Helper()
	dir := filepath.Join(profileDir, "sessionstore-backups")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	packed, err := firefox.CompressMozLz4([]byte(content))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recovery.jsonlz4"), packed, 0o644))
}

func TestHostFollowsSessionFile(t *testing.T) {
	profileDir := t.TempDir()
	writeSession(t, profileDir, sessionWith(2))

	inv := firefox.NewSessionInventory(types.Profile{Name: "test", Path: profileDir})
	require.NoError(t, inv.Reload())

	rec := badge.NewRecorder()
	host := NewHost(inv, rec)
	require.NoError(t, host.Watch(watch.WithDebounce(20*time.Millisecond)))
	defer host.Close()

	version := settings.MustParseVersion("0.6.0")
	store := settings.NewMemoryStore(&settings.Record{
		Version:     strPtr("0.6.0"),
		CounterMode: strPtr("allWindows"),
	})
	bg := background.New(host, store, background.Options{
		Version: version,
		Timing:  schedule.Timing{Settle: 20 * time.Millisecond, PrioritySettle: 50 * time.Millisecond, RemovalDelay: 20 * time.Millisecond},
	})
	defer bg.Close()

	require.NoError(t, bg.Start(context.Background()))
	assert.Equal(t, "2", rec.Shown(1))

	writeSession(t, profileDir, sessionWith(5))
	assert.Eventually(t, func() bool { return rec.Shown(1) == "5" }, 2*time.Second, 20*time.Millisecond)
}

func TestHostDispatch(t *testing.T) {
	host := NewHost(firefox.NewSessionInventory(types.Profile{}), badge.NewRecorder())

	var got []types.EventClass
	unsub := host.Subscribe(types.TabUpdated, func() { got = append(got, types.TabUpdated) })
	host.Dispatch(types.TabUpdated)
	host.Dispatch(types.TabCreated)
	unsub()
	host.Dispatch(types.TabUpdated)

	assert.Equal(t, []types.EventClass{types.TabUpdated}, got)
}

func TestHostWatchWithoutSessionFile(t *testing.T) {
	host := NewHost(firefox.NewSessionInventory(types.Profile{Path: t.TempDir()}), badge.NewRecorder())
	assert.Error(t, host.Watch())
	host.Close()
}

func strPtr(s string) *string { return &s }
