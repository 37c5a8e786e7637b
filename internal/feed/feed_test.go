package feed

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/txfeed/internal/logging"
	"github.com/carson-networks/txfeed/internal/service"
)

const waitTimeout = 2 * time.Second

func newTestLogger() *logrus.Logger {
	logger := logging.SetupLogging()
	logger.Out = io.Discard
	return logger
}

// stateRecorder collects every published Feed State.
type stateRecorder struct {
	mu     sync.Mutex
	states []FeedState
}

func (r *stateRecorder) publish(state FeedState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *stateRecorder) all() []FeedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FeedState, len(r.states))
	copy(out, r.states)
	return out
}

func (r *stateRecorder) last() FeedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return FeedState{}
	}
	return r.states[len(r.states)-1]
}

func (r *stateRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

type fetchReply struct {
	transactions []service.Transaction
	err          error
}

type fetchCall struct {
	ctx   context.Context
	reply chan fetchReply
}

// scriptedLister blocks every call until the test replies. It ignores ctx so
// tests can deliver results for fetches that were already superseded.
type scriptedLister struct {
	calls chan fetchCall
}

func newScriptedLister() *scriptedLister {
	return &scriptedLister{calls: make(chan fetchCall, 16)}
}

func (s *scriptedLister) ListTransactions(ctx context.Context) ([]service.Transaction, error) {
	call := fetchCall{ctx: ctx, reply: make(chan fetchReply, 1)}
	s.calls <- call
	reply := <-call.reply
	return reply.transactions, reply.err
}

func (s *scriptedLister) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(waitTimeout):
		t.Fatal("expected a fetch")
		return fetchCall{}
	}
}

type listerFunc func(ctx context.Context) ([]service.Transaction, error)

func (f listerFunc) ListTransactions(ctx context.Context) ([]service.Transaction, error) {
	return f(ctx)
}

func tx(id int64, executedAt string) service.Transaction {
	ts, _ := service.ParseExecutedAt(executedAt)
	return service.Transaction{ID: id, ExecutedAt: ts, RawExecutedAt: executedAt}
}

func ids(snapshot *Snapshot) []int64 {
	out := make([]int64, snapshot.Len())
	for i := range out {
		out[i] = snapshot.At(i).ID
	}
	return out
}

// waitSettled reads updates until a state that is not loading arrives.
func waitSettled(t *testing.T, sub *Subscription) FeedState {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case state, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed")
			if !state.Loading {
				return state
			}
		case <-deadline:
			t.Fatal("feed never settled")
			return FeedState{}
		}
	}
}
