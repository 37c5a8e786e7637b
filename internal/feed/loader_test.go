package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/txfeed/internal/client"
	"github.com/carson-networks/txfeed/internal/service"
)

var fixedNow = time.Date(2025, 1, 12, 8, 30, 0, 0, time.UTC)

// startLoader runs a loader in the background and returns a stop func that
// cancels it and waits for Run to return.
func startLoader(t *testing.T, lister transactionLister, interval time.Duration) (*RefreshTrigger, *stateRecorder, func()) {
	t.Helper()

	refresh := NewRefreshTrigger(interval)
	loader := NewFeedLoader(lister, refresh, newTestLogger())
	loader.now = func() time.Time { return fixedNow }

	recorder := &stateRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loader.Run(ctx, recorder.publish)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Fatal("loader did not stop")
		}
	}
	return refresh, recorder, stop
}

func TestFeedLoader_Success(t *testing.T) {
	lister := newScriptedLister()
	_, recorder, stop := startLoader(t, lister, time.Hour)
	defer stop()

	call := lister.next(t)
	first := recorder.all()[0]
	assert.True(t, first.Loading)
	assert.False(t, first.HasError())
	assert.Nil(t, first.LastUpdated)

	call.reply <- fetchReply{transactions: []service.Transaction{
		tx(1, "2025-01-09T10:00:00Z"),
		tx(2, "2025-01-11T10:00:00Z"),
		tx(3, "2025-01-10T10:00:00Z"),
	}}

	require.Eventually(t, func() bool { return !recorder.last().Loading }, waitTimeout, 5*time.Millisecond)
	state := recorder.last()
	assert.False(t, state.HasError())
	assert.Equal(t, []int64{2, 3, 1}, ids(state.Snapshot))
	require.NotNil(t, state.LastUpdated)
	assert.Equal(t, fixedNow, *state.LastUpdated)
}

func TestFeedLoader_FailureRecoversToEmptySnapshot(t *testing.T) {
	lister := newScriptedLister()
	refresh, recorder, stop := startLoader(t, lister, time.Hour)
	defer stop()

	lister.next(t).reply <- fetchReply{transactions: []service.Transaction{tx(1, "2025-01-09T10:00:00Z")}}
	require.Eventually(t, func() bool { return recorder.last().Snapshot.Len() == 1 && !recorder.last().Loading }, waitTimeout, 5*time.Millisecond)

	go refresh.RefreshNow()
	call := lister.next(t)
	assert.True(t, recorder.last().Loading)

	call.reply <- fetchReply{err: &service.FetchError{Err: &client.Error{Op: client.OpList, Err: errors.New("dial tcp: connection refused")}}}

	require.Eventually(t, func() bool { return !recorder.last().Loading }, waitTimeout, 5*time.Millisecond)
	state := recorder.last()
	assert.Equal(t, "No fue posible contactar con el servicio de comisiones", state.Error)
	assert.Equal(t, 0, state.Snapshot.Len())
	require.NotNil(t, state.LastUpdated, "last success is kept")
}

func TestFeedLoader_FailureCarriesServerMessage(t *testing.T) {
	lister := listerFunc(func(ctx context.Context) ([]service.Transaction, error) {
		return nil, &service.FetchError{Err: &client.Error{Op: client.OpList, StatusCode: 500, Message: "Se presento un error interno"}}
	})
	_, recorder, stop := startLoader(t, lister, time.Hour)
	defer stop()

	require.Eventually(t, func() bool { return recorder.last().HasError() }, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, "Se presento un error interno", recorder.last().Error)
	assert.False(t, recorder.last().Loading)
}

func TestFeedLoader_FailureDoesNotStopPolling(t *testing.T) {
	var calls int32
	lister := listerFunc(func(ctx context.Context) ([]service.Transaction, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("boom")
		}
		return []service.Transaction{tx(4, "2025-01-09T10:00:00Z")}, nil
	})
	_, recorder, stop := startLoader(t, lister, 20*time.Millisecond)
	defer stop()

	require.Eventually(t, func() bool {
		state := recorder.last()
		return !state.Loading && !state.HasError() && state.Snapshot.Len() == 1
	}, waitTimeout, time.Millisecond)

	sawError := false
	for _, state := range recorder.all() {
		if state.HasError() && !state.Loading {
			sawError = true
			assert.Equal(t, 0, state.Snapshot.Len())
		}
	}
	assert.True(t, sawError, "first tick failed")
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestFeedLoader_LatestTriggerWins(t *testing.T) {
	lister := newScriptedLister()
	refresh, recorder, stop := startLoader(t, lister, time.Hour)
	defer stop()

	first := lister.next(t)
	time.Sleep(50 * time.Millisecond)
	go refresh.RefreshNow()
	second := lister.next(t)

	select {
	case <-first.ctx.Done():
	case <-time.After(waitTimeout):
		t.Fatal("superseded fetch was not cancelled")
	}
	assert.NoError(t, second.ctx.Err())

	second.reply <- fetchReply{transactions: []service.Transaction{tx(20, "2025-01-11T10:00:00Z")}}
	require.Eventually(t, func() bool { return !recorder.last().Loading }, waitTimeout, time.Millisecond)

	// The first fetch answers late, with data.
	first.reply <- fetchReply{transactions: []service.Transaction{tx(10, "2025-01-10T10:00:00Z")}}
	time.Sleep(50 * time.Millisecond)

	states := recorder.all()
	for _, state := range states {
		if state.Snapshot.Len() > 0 {
			assert.Equal(t, []int64{20}, ids(state.Snapshot), "only the latest fetch is ever applied")
		}
	}
	// loading, loading, settled
	require.Len(t, states, 3)
	assert.True(t, states[0].Loading)
	assert.True(t, states[1].Loading)
	assert.False(t, states[2].Loading)
}

func TestFeedLoader_PanicIsContained(t *testing.T) {
	lister := listerFunc(func(ctx context.Context) ([]service.Transaction, error) {
		panic("lister exploded")
	})
	_, recorder, stop := startLoader(t, lister, time.Hour)
	defer stop()

	require.Eventually(t, func() bool { return recorder.count() >= 2 }, waitTimeout, time.Millisecond)
	state := recorder.last()
	assert.False(t, state.Loading)
	assert.Equal(t, service.FallbackMessage, state.Error)
	assert.Equal(t, 0, state.Snapshot.Len())
}

func TestFeedLoader_StopAbandonsInFlightFetch(t *testing.T) {
	lister := newScriptedLister()
	_, recorder, stop := startLoader(t, lister, time.Hour)

	call := lister.next(t)
	go func() {
		<-call.ctx.Done()
		call.reply <- fetchReply{transactions: []service.Transaction{tx(1, "2025-01-09T10:00:00Z")}}
	}()
	stop()

	states := recorder.all()
	require.Len(t, states, 1, "nothing is applied after teardown")
	assert.True(t, states[0].Loading)
}
