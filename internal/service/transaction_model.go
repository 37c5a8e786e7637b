package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a transaction in the service layer.
type Transaction struct {
	ID             int64
	Amount         decimal.Decimal
	Commission     decimal.Decimal
	CommissionRate *decimal.Decimal
	Reason         string
	// ExecutedAt is the zero time when RawExecutedAt could not be parsed.
	ExecutedAt    time.Time
	RawExecutedAt string
}

// localDateTimeLayout is what the commission service emits: no zone, no fraction.
const localDateTimeLayout = "2006-01-02T15:04:05.999999999"

// ParseExecutedAt parses an ISO-8601 timestamp. Values without a zone are read in
// the local time zone.
func ParseExecutedAt(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	return time.ParseInLocation(localDateTimeLayout, raw, time.Local)
}
