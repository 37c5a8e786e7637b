package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/txfeed/internal/logging"
	"github.com/carson-networks/txfeed/internal/service"
)

// transactionLister is the interface for listing transactions.
type transactionLister interface {
	ListTransactions(ctx context.Context) ([]service.Transaction, error)
}

// FeedLoader turns triggers into fetch cycles. Only the result of the most
// recent trigger is ever applied; older in-flight fetches are cancelled and
// their results dropped.
type FeedLoader struct {
	lister  transactionLister
	trigger *RefreshTrigger
	logger  *logrus.Logger
	now     func() time.Time
}

func NewFeedLoader(lister transactionLister, trigger *RefreshTrigger, logger *logrus.Logger) *FeedLoader {
	return &FeedLoader{
		lister:  lister,
		trigger: trigger,
		logger:  logger,
		now:     time.Now,
	}
}

// Run starts the trigger and runs a fetch cycle per trigger until ctx is done,
// calling publish with every Feed State change. It returns once in-flight
// cycles have exited.
func (l *FeedLoader) Run(ctx context.Context, publish func(FeedState)) {
	run := &loaderRun{
		loader:  l,
		publish: publish,
		state:   initialState(),
	}

	l.logger.Debug("FeedLoader.Run.Start")
	for trigger := range l.trigger.Start(ctx) {
		run.begin(ctx, trigger)
	}
	run.stop()
	l.logger.Debug("FeedLoader.Run.Stopped")
}

// loaderRun holds the Feed State of one activation.
type loaderRun struct {
	loader  *FeedLoader
	publish func(FeedState)
	wg      sync.WaitGroup

	mu         sync.Mutex
	state      FeedState
	generation uint64
	cancel     context.CancelFunc
	stopped    bool
}

func (r *loaderRun) begin(ctx context.Context, trigger Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	fetchCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.state.Loading = true
	r.state.Error = ""
	r.publish(r.state)

	r.wg.Add(1)
	go r.cycle(fetchCtx, r.generation, trigger)
}

func (r *loaderRun) cycle(ctx context.Context, generation uint64, trigger Trigger) {
	defer r.wg.Done()

	logData := logging.NewLogData(r.loader.logger)
	logData.AddData("generation", generation)
	logData.AddData("trigger", trigger.Seq)
	logData.AddData("source", trigger.Source.String())

	var (
		transactions []service.Transaction
		err          error
	)
	defer func() {
		if recovered := recover(); recovered != nil {
			transactions = nil
			err = &service.FetchError{Err: fmt.Errorf("panic: %v", recovered)}
		}
		r.complete(ctx, generation, transactions, err, logData)
	}()

	stopTimer := logData.AddTiming("listTransactionsMs")
	transactions, err = r.loader.lister.ListTransactions(ctx)
	stopTimer()
}

func (r *loaderRun) complete(ctx context.Context, generation uint64, transactions []service.Transaction, err error, logData *logging.LogData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// ctx is cancelled both when a newer trigger arrives and on teardown.
	if r.stopped || generation != r.generation || ctx.Err() != nil {
		logData.Log().Debug("FeedLoader.Cycle.Superseded")
		return
	}
	r.cancel()
	r.cancel = nil

	defer func() {
		r.state.Loading = false
		r.publish(r.state)
	}()

	if err != nil {
		r.state.Error = service.UserMessage(err)
		r.state.Snapshot = emptySnapshot()
		logData.Log().WithError(err).Warn("FeedLoader.Cycle.Error")
		return
	}

	now := r.loader.now()
	r.state.Snapshot = NewSnapshot(transactions)
	r.state.LastUpdated = &now
	r.state.Error = ""

	logData.AddData("transactionCount", r.state.Snapshot.Len())
	logData.Log().Info("FeedLoader.Cycle.Complete")
}

func (r *loaderRun) stop() {
	r.mu.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}
