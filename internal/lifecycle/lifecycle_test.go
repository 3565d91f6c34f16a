package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lotas/tabcounter/internal/badge"
	"github.com/lotas/tabcounter/internal/counter"
	"github.com/lotas/tabcounter/internal/settings"
	"github.com/lotas/tabcounter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu         sync.Mutex
	handlers   map[types.EventClass][]func()
	subscribes int
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: map[types.EventClass][]func(){}}
}

func (f *fakeSource) Subscribe(c types.EventClass, h func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	f.handlers[c] = append(f.handlers[c], h)
	idx := len(f.handlers[c]) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.handlers[c][idx] = nil
	}
}

func (f *fakeSource) fire(c types.EventClass) {
	f.mu.Lock()
	hs := append([]func(){}, f.handlers[c]...)
	f.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h()
		}
	}
}

func (f *fakeSource) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, hs := range f.handlers {
		for _, h := range hs {
			if h != nil {
				n++
			}
		}
	}
	return n
}

type tabList []int

func (l tabList) TabIDs(context.Context) ([]int, error) { return l, nil }

type failingTabs struct{}

func (failingTabs) TabIDs(context.Context) ([]int, error) { return nil, errors.New("no host") }

type recorder struct {
	mu     sync.Mutex
	events []types.EventClass
}

func (r *recorder) notify(c types.EventClass) {
	r.mu.Lock()
	r.events = append(r.events, c)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func withMode(mode settings.CounterMode) settings.Settings {
	s := settings.Defaults(settings.MustParseVersion("0.6.0"), settings.StaticCapabilities{})
	s.CounterMode = mode
	return s
}

func TestEnterActiveSubscribesOncePerClass(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	rec := &recorder{}
	m := NewManager(src, tabList{1}, badge.NewRecorder(), rec.notify, 0)

	require.NoError(t, m.Enter(ctx, withMode(settings.ModeAllWindows), CauseSettingsChange))
	require.NoError(t, m.Enter(ctx, withMode(settings.ModeCurrentWindow), CauseSettingsChange))

	assert.Equal(t, Active, m.State())
	assert.Equal(t, len(types.AllEventClasses), src.subscribes)
	assert.Equal(t, len(types.AllEventClasses), m.Subscriptions())

	src.fire(types.TabCreated)
	src.fire(types.WindowFocusChanged)
	assert.Equal(t, []types.EventClass{types.TabCreated, types.WindowFocusChanged}, rec.events)
}

func TestEnterNoneUnsubscribesAndBlanks(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	rec := &recorder{}
	r := badge.NewRecorder()
	m := NewManager(src, tabList{3, 5, 8}, r, rec.notify, 0)

	require.NoError(t, m.Enter(ctx, withMode(settings.ModeAllWindows), CauseSettingsChange))
	for _, id := range []int{3, 5, 8} {
		r.SetBadgeText(ctx, "9", &id)
	}

	require.NoError(t, m.Enter(ctx, withMode(settings.ModeNone), CauseSettingsChange))
	assert.Equal(t, Inactive, m.State())
	assert.Equal(t, 0, src.live())

	src.fire(types.TabCreated)
	assert.Equal(t, 0, rec.count())

	assert.Equal(t, "", r.Text)
	assert.Equal(t, counter.Title, r.Title)
	for _, id := range []int{3, 5, 8} {
		assert.Equal(t, "", r.TabText[id], "tab %d", id)
		assert.Equal(t, counter.Title, r.TabTitle[id], "tab %d", id)
	}
}

func TestEnterNoneWhileInactiveStillBlanks(t *testing.T) {
	r := badge.NewRecorder()
	m := NewManager(newFakeSource(), tabList{1}, r, func(types.EventClass) {}, 0)

	require.NoError(t, m.Enter(context.Background(), withMode(settings.ModeNone), CauseStartup))
	assert.NotEmpty(t, r.CallsTo("setBadgeText"))
}

func TestEnterNoneClearsGlobalWhenTabsUnavailable(t *testing.T) {
	r := badge.NewRecorder()
	r.Text = "4"
	m := NewManager(newFakeSource(), failingTabs{}, r, func(types.EventClass) {}, 0)

	err := m.Enter(context.Background(), withMode(settings.ModeNone), CauseSettingsChange)
	assert.Error(t, err)
	assert.Equal(t, "", r.Text)
}

func TestStartupWaitsForGrace(t *testing.T) {
	src := newFakeSource()
	m := NewManager(src, tabList{}, badge.NewRecorder(), func(types.EventClass) {}, 80*time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Enter(context.Background(), withMode(settings.ModeCurrentWindow), CauseStartup))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, Active, m.State())
}

func TestSettingsChangeSkipsGrace(t *testing.T) {
	m := NewManager(newFakeSource(), tabList{}, badge.NewRecorder(), func(types.EventClass) {}, time.Hour)

	done := make(chan error, 1)
	go func() {
		done <- m.Enter(context.Background(), withMode(settings.ModeCurrentWindow), CauseSettingsChange)
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("settings change waited for the startup grace")
	}
}

func TestAwaitGraceHonorsContext(t *testing.T) {
	m := NewManager(newFakeSource(), tabList{}, badge.NewRecorder(), func(types.EventClass) {}, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.AwaitGrace(ctx), context.DeadlineExceeded)
}

func TestRelaunch(t *testing.T) {
	src := newFakeSource()
	r := badge.NewRecorder()
	m := NewManager(src, tabList{1}, r, func(types.EventClass) {}, 0)
	require.NoError(t, m.Enter(context.Background(), withMode(settings.ModeAllWindows), CauseSettingsChange))
	r.Reset()

	m.Relaunch()
	assert.Equal(t, Inactive, m.State())
	assert.Equal(t, 0, src.live())
	assert.Empty(t, r.Calls())

	require.NoError(t, m.Enter(context.Background(), withMode(settings.ModeAllWindows), CauseSettingsChange))
	assert.Equal(t, 2*len(types.AllEventClasses), src.subscribes)
}
