package operator

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/txfeed/internal/operator/actions"
)

// ErrStopped is returned by Process once the delegator has been stopped.
var ErrStopped = errors.New("operator: stopped")

// OperatorDelegator manages the queue, starts/stops Operators (workers), and enqueues items.
type OperatorDelegator struct {
	creator    actions.Creator
	logger     *logrus.Logger
	queue      chan ActionItem
	numWorkers int
	wg         sync.WaitGroup
	stopOnce   sync.Once

	mu      sync.RWMutex
	stopped bool
}

func NewOperatorDelegator(c actions.Creator, numWorkers int, logger *logrus.Logger) *OperatorDelegator {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &OperatorDelegator{
		creator:    c,
		logger:     logger,
		queue:      make(chan ActionItem, 1000),
		numWorkers: numWorkers,
	}
}

func (d *OperatorDelegator) Start() {
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		op := NewOperator(d.creator, d.queue, d.logger)
		go func() {
			defer d.wg.Done()
			op.Run()
		}()
	}
	d.logger.WithField("workers", d.numWorkers).Info("OperatorDelegator.Started")
}

func (d *OperatorDelegator) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
		d.logger.Info("OperatorDelegator.Stopped")
	})
}

func (d *OperatorDelegator) Process(ctx context.Context, action actions.IAction) error {
	respCh := make(chan ActionItemResponse, 1)
	item := ActionItem{
		ctx:      ctx,
		action:   action,
		response: respCh,
	}

	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		return ErrStopped
	}
	select {
	case d.queue <- item:
	case <-ctx.Done():
		d.mu.RUnlock()
		return ctx.Err()
	}
	d.mu.RUnlock()

	select {
	case resp := <-respCh:
		return resp.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
