package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, triggers <-chan Trigger) Trigger {
	t.Helper()
	select {
	case trigger, ok := <-triggers:
		require.True(t, ok, "trigger stream closed")
		return trigger
	case <-time.After(waitTimeout):
		t.Fatal("expected a trigger")
		return Trigger{}
	}
}

func TestRefreshTrigger_FiresImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := receive(t, NewRefreshTrigger(time.Hour).Start(ctx))

	assert.Equal(t, uint64(1), trigger.Seq)
	assert.Equal(t, SourcePeriodic, trigger.Source)
	assert.False(t, trigger.At.IsZero())
}

func TestRefreshTrigger_Periodic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggers := NewRefreshTrigger(10 * time.Millisecond).Start(ctx)

	for want := uint64(1); want <= 3; want++ {
		trigger := receive(t, triggers)
		assert.Equal(t, want, trigger.Seq)
		assert.Equal(t, SourcePeriodic, trigger.Source)
	}
}

func TestRefreshTrigger_ManualRequestsAreNotCoalesced(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresh := NewRefreshTrigger(time.Hour)
	triggers := refresh.Start(ctx)
	receive(t, triggers)

	accepted := make(chan bool, 3)
	go func() {
		for i := 0; i < 3; i++ {
			accepted <- refresh.RefreshNow()
		}
	}()

	for want := uint64(2); want <= 4; want++ {
		trigger := receive(t, triggers)
		assert.Equal(t, SourceManual, trigger.Source)
		assert.Equal(t, want, trigger.Seq)
		assert.True(t, <-accepted)
	}
}

func TestRefreshTrigger_InactiveDropsManualRequests(t *testing.T) {
	refresh := NewRefreshTrigger(time.Hour)
	assert.False(t, refresh.RefreshNow(), "never started")

	ctx, cancel := context.WithCancel(context.Background())
	triggers := refresh.Start(ctx)
	receive(t, triggers)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-triggers:
			return !ok
		default:
			return false
		}
	}, waitTimeout, 5*time.Millisecond)
	assert.False(t, refresh.RefreshNow(), "stopped")
}

func TestRefreshTrigger_Restart(t *testing.T) {
	refresh := NewRefreshTrigger(time.Hour)

	first, cancelFirst := context.WithCancel(context.Background())
	receive(t, refresh.Start(first))
	cancelFirst()

	second, cancelSecond := context.WithCancel(context.Background())
	defer cancelSecond()
	triggers := refresh.Start(second)

	trigger := receive(t, triggers)
	assert.Equal(t, uint64(1), trigger.Seq, "fresh sequence after restart")
	assert.Equal(t, SourcePeriodic, trigger.Source)

	go refresh.RefreshNow()
	assert.Equal(t, SourceManual, receive(t, triggers).Source)
}

func TestNewRefreshTrigger_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, NewRefreshTrigger(0).interval)
	assert.Equal(t, "manual", SourceManual.String())
	assert.Equal(t, "unknown", Source(9).String())
}
