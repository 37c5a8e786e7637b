package feed

import (
	"sort"
	"time"

	"github.com/carson-networks/txfeed/internal/service"
)

// Snapshot is an immutable list of transactions produced by one fetch cycle,
// newest first. Observers of the same cycle share one *Snapshot.
type Snapshot struct {
	transactions []service.Transaction
}

// NewSnapshot sorts a copy of txs by ExecutedAt, newest first. Equal instants keep
// their input order; undated transactions go last.
func NewSnapshot(txs []service.Transaction) *Snapshot {
	sorted := make([]service.Transaction, len(txs))
	copy(sorted, txs)

	sort.SliceStable(sorted, func(i, j int) bool {
		return executedBefore(sorted[j], sorted[i])
	})
	return &Snapshot{transactions: sorted}
}

func emptySnapshot() *Snapshot {
	return &Snapshot{}
}

// executedBefore orders zero instants ahead of every dated transaction.
func executedBefore(a, b service.Transaction) bool {
	switch {
	case b.ExecutedAt.IsZero():
		return false
	case a.ExecutedAt.IsZero():
		return true
	default:
		return a.ExecutedAt.Before(b.ExecutedAt)
	}
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.transactions)
}

func (s *Snapshot) At(i int) service.Transaction {
	return s.transactions[i]
}

// Transactions returns a copy of the snapshot's contents.
func (s *Snapshot) Transactions() []service.Transaction {
	if s == nil {
		return nil
	}
	out := make([]service.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// FeedState is what observers of the feed see.
type FeedState struct {
	Loading     bool
	Error       string
	LastUpdated *time.Time
	Snapshot    *Snapshot
}

func (s FeedState) HasError() bool {
	return s.Error != ""
}

func initialState() FeedState {
	return FeedState{Snapshot: emptySnapshot()}
}
