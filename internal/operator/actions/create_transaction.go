package actions

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/txfeed/internal/service"
)

// CreateTransaction registers Amount with the commission service. Created is
// set once Perform succeeds.
type CreateTransaction struct {
	Amount decimal.Decimal

	Created *service.Transaction
	IAction
}

func (t *CreateTransaction) Perform(ctx context.Context, creator Creator) error {
	created, err := creator.CreateTransaction(ctx, t.Amount)
	if err != nil {
		return err
	}
	if created == nil {
		return &service.CreationError{Err: errors.New("empty response")}
	}

	t.Created = created
	return nil
}
