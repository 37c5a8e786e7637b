package actions

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/txfeed/internal/service"
)

// Creator is the part of the transaction service actions write through.
type Creator interface {
	CreateTransaction(ctx context.Context, amount decimal.Decimal) (*service.Transaction, error)
}

type IAction interface {
	Perform(ctx context.Context, creator Creator) error
}
