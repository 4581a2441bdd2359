package common

import (
	"errors"
	"fmt"
)

var (
	// ErrSetupFailed is matched by every error raised while opening, binding, listening or connecting a socket
	ErrSetupFailed = errors.New("socket setup failed")

	// ErrListenerClosed is returned when the listening socket was closed underneath the accept loop
	ErrListenerClosed = errors.New("listener closed")

	// ErrEmptyPayload is returned by Send for zero-length payloads; nothing is written
	ErrEmptyPayload = errors.New("empty payload")

	// ErrUnknownClient is returned by Server.Send if no connection is registered for the client id
	ErrUnknownClient = errors.New("unknown client")

	// ErrConnectionClosed is returned by Send once the connection reached its terminal state
	ErrConnectionClosed = errors.New("connection closed")
)

// SetupError describes a failed socket setup step
type SetupError struct {
	// Op is the failed step (listen, dial, ...)
	Op       string
	Endpoint Endpoint
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

// Unwrap exposes both the cause and ErrSetupFailed to errors.Is / errors.As
func (e *SetupError) Unwrap() []error {
	return []error{ErrSetupFailed, e.Err}
}
