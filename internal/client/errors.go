package client

import (
	"fmt"
)

const (
	OpList   = "list"
	OpCreate = "create"
)

// Error is returned for every failed call to the commission service: transport
// failures (StatusCode 0), non-2xx responses and undecodable bodies.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("client.%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("client.%s: status %d", e.Op, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("client.%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("client.%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the message the service put in its error payload, if any.
func (e *Error) UserMessage() string {
	return e.Message
}
