package feed

import (
	"time"

	"github.com/carson-networks/txfeed/internal/feed"
)

// Transaction is the API response model for one feed entry.
type Transaction struct {
	ID             int64  `json:"id" doc:"Server-assigned transaction id"`
	Amount         string `json:"amount" doc:"Decimal amount"`
	Commission     string `json:"commission" doc:"Decimal commission computed by the service"`
	CommissionRate string `json:"commissionRate,omitempty" doc:"Decimal commission rate, when the service reports one"`
	Reason         string `json:"reason,omitempty" doc:"Why the commission applies"`
	ExecutedAt     string `json:"executedAt" doc:"Execution timestamp as sent by the service"`
}

// FeedState is the API response model for a Feed State.
type FeedState struct {
	Loading      bool          `json:"loading" doc:"A refresh is in flight"`
	Error        string        `json:"error,omitempty" doc:"Why the last refresh failed"`
	LastUpdated  *time.Time    `json:"lastUpdated,omitempty" doc:"When the last successful refresh finished"`
	Transactions []Transaction `json:"transactions" doc:"Newest first"`
}

func toFeedState(state feed.FeedState) FeedState {
	resp := FeedState{
		Loading:      state.Loading,
		Error:        state.Error,
		LastUpdated:  state.LastUpdated,
		Transactions: make([]Transaction, state.Snapshot.Len()),
	}

	for i := range resp.Transactions {
		tx := state.Snapshot.At(i)
		resp.Transactions[i] = Transaction{
			ID:         tx.ID,
			Amount:     tx.Amount.String(),
			Commission: tx.Commission.String(),
			Reason:     tx.Reason,
			ExecutedAt: tx.RawExecutedAt,
		}
		if tx.CommissionRate != nil {
			resp.Transactions[i].CommissionRate = tx.CommissionRate.String()
		}
	}
	return resp
}

// subscriber is the part of the shared feed the handlers observe.
type subscriber interface {
	Subscribe() *feed.Subscription
}

// refresher requests an out-of-band refresh of the active feed.
type refresher interface {
	RefreshNow() bool
}
