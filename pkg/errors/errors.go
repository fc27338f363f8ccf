package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingNodeID indicates that an event payload carried no node identifier
	ErrMissingNodeID = errors.New("event payload has no node id")

	// ErrNodeNotFound indicates that no node could be resolved for an identifier
	ErrNodeNotFound = errors.New("node not found")

	// ErrWidgetNotFound indicates that the named widget is absent on the node
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrInvalidEvent indicates that the event envelope is malformed
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidSubject indicates that the provided subject is invalid
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrNotConnected indicates that the transport is not connected
	ErrNotConnected = errors.New("not connected to event feed")

	// ErrNotActivated indicates that a node has not completed identifier assignment
	ErrNotActivated = errors.New("node not activated")

	// ErrQueueUnavailable indicates that the host queue could not accept a prompt
	ErrQueueUnavailable = errors.New("host queue unavailable")

	// ErrSchedulerStopped indicates that work was posted to a stopped scheduler
	ErrSchedulerStopped = errors.New("scheduler stopped")
)

// Error represents a structured SDK error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new SDK error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNodeNotFound checks if an error indicates a missing node
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsWidgetNotFound checks if an error indicates a missing widget
func IsWidgetNotFound(err error) bool {
	return errors.Is(err, ErrWidgetNotFound)
}
