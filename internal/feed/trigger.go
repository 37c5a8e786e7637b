package feed

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 5 * time.Second

// Source identifies what fired a trigger.
type Source int

const (
	SourcePeriodic Source = iota
	SourceManual
)

func (s Source) String() string {
	switch s {
	case SourcePeriodic:
		return "periodic"
	case SourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Trigger is one request to re-fetch the feed.
type Trigger struct {
	Seq    uint64
	Source Source
	At     time.Time
}

// RefreshTrigger merges a periodic timer and manual refresh requests into a
// single stream of triggers. It only emits while started.
type RefreshTrigger struct {
	interval time.Duration

	mu     sync.Mutex
	manual chan struct{}
	done   <-chan struct{}
}

func NewRefreshTrigger(interval time.Duration) *RefreshTrigger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &RefreshTrigger{interval: interval}
}

// Start activates the trigger until ctx is done. The returned channel receives a
// periodic trigger immediately, then one every interval, interleaved with one
// trigger per RefreshNow call in arrival order. It is closed once ctx is done.
func (t *RefreshTrigger) Start(ctx context.Context) <-chan Trigger {
	manual := make(chan struct{})

	t.mu.Lock()
	t.manual = manual
	t.done = ctx.Done()
	t.mu.Unlock()

	out := make(chan Trigger)
	go func() {
		defer close(out)
		defer t.deactivate(manual)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		var seq uint64
		emit := func(source Source) bool {
			seq++
			select {
			case out <- Trigger{Seq: seq, Source: source, At: time.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(SourcePeriodic) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !emit(SourcePeriodic) {
					return
				}
			case <-manual:
				if !emit(SourceManual) {
					return
				}
			}
		}
	}()

	return out
}

// RefreshNow fires a manual trigger. It reports false when the trigger is not
// active, in which case the request is dropped.
func (t *RefreshTrigger) RefreshNow() bool {
	t.mu.Lock()
	manual, done := t.manual, t.done
	t.mu.Unlock()

	if manual == nil {
		return false
	}

	select {
	case manual <- struct{}{}:
		return true
	case <-done:
		return false
	}
}

func (t *RefreshTrigger) deactivate(manual chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A restart may already have installed a newer channel.
	if t.manual == manual {
		t.manual = nil
		t.done = nil
	}
}
