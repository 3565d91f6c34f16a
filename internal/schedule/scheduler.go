package schedule

import (
	"sync"
	"time"

	"github.com/lotas/tabcounter/internal/applog"
	"github.com/lotas/tabcounter/internal/types"
)

// Timing holds the windows used by Scheduler.
type Timing struct {
	// Settle is the trailing debounce window for ordinary tab and window
	// events.
	Settle time.Duration
	// PrioritySettle is the window for tab activation, which also fires on
	// the leading edge so focus switches update the badge at once.
	PrioritySettle time.Duration
	// RemovalDelay postpones tab-removal events. The browser reports a
	// removal before the tab disappears from query results.
	RemovalDelay time.Duration
}

// DefaultTiming matches the browser's observed event cadence.
var DefaultTiming = Timing{
	Settle:         250 * time.Millisecond,
	PrioritySettle: 1000 * time.Millisecond,
	RemovalDelay:   150 * time.Millisecond,
}

// Scheduler routes event notifications to the coalescer that matches their
// class. Recompute cycles started by different coalescers may overlap; no
// ordering between them is enforced.
type Scheduler struct {
	timing   Timing
	normal   *Coalescer
	priority *Coalescer

	mu      sync.Mutex
	delayed map[*time.Timer]struct{}
	stopped bool
}

// New returns a Scheduler calling recompute.
func New(t Timing, recompute func()) *Scheduler {
	s := &Scheduler{
		timing:  t,
		delayed: make(map[*time.Timer]struct{}),
	}
	s.normal = NewCoalescer(Policy{Wait: t.Settle, Trailing: true}, func() {
		applog.Debug("schedule.fire", "policy", "normal")
		recompute()
	})
	s.priority = NewCoalescer(Policy{Wait: t.PrioritySettle, Leading: true, Trailing: true}, func() {
		applog.Debug("schedule.fire", "policy", "priority")
		recompute()
	})
	return s
}

// Notify records one event of class c.
func (s *Scheduler) Notify(c types.EventClass) {
	switch c {
	case types.TabActivated:
		s.priority.Trigger()
	case types.TabRemoved:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stopped {
			return
		}
		var t *time.Timer
		t = time.AfterFunc(s.timing.RemovalDelay, func() {
			s.mu.Lock()
			delete(s.delayed, t)
			s.mu.Unlock()
			s.normal.Trigger()
		})
		s.delayed[t] = struct{}{}
	default:
		s.normal.Trigger()
	}
}

// Stop drops scheduled work. Used when the process shuts down.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for t := range s.delayed {
		t.Stop()
	}
	s.delayed = map[*time.Timer]struct{}{}
	s.mu.Unlock()
	s.normal.Stop()
	s.priority.Stop()
}
