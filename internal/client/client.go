package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	transactionsPath = "/transactions"

	// maxErrorBody bounds how much of a failed response is read looking for a message.
	maxErrorBody = 64 << 10
)

// Client talks to the commission service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for baseURL. timeout bounds each request end to end;
// zero means no limit beyond the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ListTransactions returns every transaction in the order the service sent them.
func (c *Client) ListTransactions(ctx context.Context) ([]TransactionRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+transactionsPath, nil)
	if err != nil {
		return nil, &Error{Op: OpList, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	var records []TransactionRecord
	if err := c.do(req, OpList, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CreateTransaction registers a new transaction for amount and returns the stored record.
func (c *Client) CreateTransaction(ctx context.Context, amount decimal.Decimal) (*TransactionRecord, error) {
	payload, err := json.Marshal(CreateTransactionRequest{Amount: json.Number(amount.String())})
	if err != nil {
		return nil, &Error{Op: OpCreate, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transactionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: OpCreate, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var record TransactionRecord
	if err := c.do(req, OpCreate, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	apiErr := &Error{Op: op, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}

	var payload errorResponse
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
	}
	if apiErr.Message == "" && len(body) > 0 {
		apiErr.Err = errors.New(strings.TrimSpace(string(body)))
	}
	return apiErr
}
