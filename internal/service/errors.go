package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FallbackMessage is shown when a failure carries no message of its own.
const FallbackMessage = "No fue posible contactar con el servicio de comisiones"

// ValidationError rejects a creation before any request is sent.
// Fields maps each offending input to the message to show next to it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FetchError wraps a failure to retrieve the transaction list.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch transactions: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CreationError wraps a failure to register a transaction.
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create transaction: %v", e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// userMessenger is implemented by errors that carry a message meant for the user.
type userMessenger interface {
	UserMessage() string
}

// UserMessage extracts the user-facing message carried anywhere in err's chain,
// falling back to FallbackMessage.
func UserMessage(err error) string {
	var carrier userMessenger
	if errors.As(err, &carrier) {
		if msg := strings.TrimSpace(carrier.UserMessage()); msg != "" {
			return msg
		}
	}
	return FallbackMessage
}
