package operator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/txfeed/internal/operator/actions"
)

// Operator is the worker that processes items from the queue.
type Operator struct {
	creator actions.Creator
	queue   chan ActionItem
	logger  *logrus.Logger
}

func NewOperator(c actions.Creator, queue chan ActionItem, logger *logrus.Logger) *Operator {
	return &Operator{
		creator: c,
		queue:   queue,
		logger:  logger,
	}
}

// Run listens to the queue and processes items. Exits when the queue is closed.
func (o *Operator) Run() {
	for item := range o.queue {
		o.processItem(item)
	}
}

func (o *Operator) processItem(item ActionItem) {
	// The caller may have given up while the item sat in the queue.
	if err := item.ctx.Err(); err != nil {
		item.response <- ActionItemResponse{err: err}
		return
	}

	err := o.perform(item)
	if err != nil {
		o.logger.WithError(err).WithField("action", fmt.Sprintf("%T", item.action)).Warn("Operator.Perform.Error")
	}
	item.response <- ActionItemResponse{err: err}
}

func (o *Operator) perform(item ActionItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return item.action.Perform(item.ctx, o.creator)
}

type ActionItem struct {
	ctx      context.Context
	action   actions.IAction
	response chan ActionItemResponse
}

type ActionItemResponse struct {
	err error
}
