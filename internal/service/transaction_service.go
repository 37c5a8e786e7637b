package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/txfeed/internal/client"
)

// transactionClient is the subset of the API client the service needs.
type transactionClient interface {
	ListTransactions(ctx context.Context) ([]client.TransactionRecord, error)
	CreateTransaction(ctx context.Context, amount decimal.Decimal) (*client.TransactionRecord, error)
}

// TransactionService maps commission service records into domain transactions.
type TransactionService struct {
	client transactionClient
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(c transactionClient) *TransactionService {
	return &TransactionService{client: c}
}

// ListTransactions returns every transaction in server order.
func (s *TransactionService) ListTransactions(ctx context.Context) ([]Transaction, error) {
	records, err := s.client.ListTransactions(ctx)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	converted := make([]Transaction, len(records))
	for i, record := range records {
		converted[i] = recordToTransaction(record)
	}
	return converted, nil
}

// CreateTransaction registers a transaction for amount and returns what the service stored.
func (s *TransactionService) CreateTransaction(ctx context.Context, amount decimal.Decimal) (*Transaction, error) {
	record, err := s.client.CreateTransaction(ctx, amount)
	if err != nil {
		return nil, &CreationError{Err: err}
	}

	created := recordToTransaction(*record)
	return &created, nil
}

func recordToTransaction(record client.TransactionRecord) Transaction {
	// An unparseable timestamp leaves ExecutedAt zero so the record sorts last.
	executedAt, _ := ParseExecutedAt(record.ExecutedAt)

	return Transaction{
		ID:             record.ID,
		Amount:         record.Amount,
		Commission:     record.Commission,
		CommissionRate: record.CommissionRate,
		Reason:         record.Reason,
		ExecutedAt:     executedAt,
		RawExecutedAt:  record.ExecutedAt,
	}
}
