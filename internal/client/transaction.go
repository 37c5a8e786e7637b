package client

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TransactionRecord is the wire model the commission service returns for a transaction.
type TransactionRecord struct {
	ID             int64            `json:"id"`
	Amount         decimal.Decimal  `json:"amount"`
	Commission     decimal.Decimal  `json:"commission"`
	CommissionRate *decimal.Decimal `json:"commissionRate,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	ExecutedAt     string           `json:"executedAt"`
}

// CreateTransactionRequest is the body of POST /transactions.
// Amount is sent as a bare JSON number.
type CreateTransactionRequest struct {
	Amount json.Number `json:"amount"`
}

// errorResponse is the error payload of the commission service.
// Only Message is surfaced; per-field details are ignored.
type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}
