package corekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error-kind table this runtime recognizes.
// Comparable with errors.Is regardless of wrapping.
var (
	ErrUnknownRequest       = errors.New("unknown request")
	ErrTimeout              = errors.New("operation timed out")
	ErrCancelled            = errors.New("operation cancelled")
	ErrMaintenanceMode      = errors.New("jarvis is in maintenance mode")
	ErrUnrecognizedIntent   = errors.New("unrecognized intent")
	ErrNoProvider           = errors.New("no_provider")
	ErrAgentDisallowed      = errors.New("agent_disallowed")
	ErrQueueFull            = errors.New("queue backpressure drop")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrNotFound             = errors.New("not found")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAlreadyStarted       = errors.New("already started")
	ErrNotStarted           = errors.New("not started")
	ErrProviderPanic        = errors.New("provider handler panicked")
)

// FrameworkError is the structured error type used across every package in
// this module: an operation name, an error kind, an optional entity id, a
// human message, and the wrapped cause.
type FrameworkError struct {
	Op      string
	Kind    string
	ID      string
	Message string
	Err     error
}

func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

func (e *FrameworkError) Unwrap() error { return e.Err }

// NewFrameworkError builds a FrameworkError wrapping err for operation op,
// classified under kind.
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{Op: op, Kind: kind, Err: err}
}

// NewFrameworkErrorWithID is NewFrameworkError plus the entity id involved
// (a message id, protocol id, or provider name).
func NewFrameworkErrorWithID(op, kind, id string, err error) *FrameworkError {
	return &FrameworkError{Op: op, Kind: kind, ID: id, Err: err}
}

// IsRetryable reports whether err represents a transient condition a caller
// may reasonably retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrQueueFull)
}

// IsNotFound reports whether err represents a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnknownRequest) || errors.Is(err, ErrNoProvider)
}

// IsConfigurationError reports whether err stems from invalid configuration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsStateError reports whether err stems from an invalid lifecycle
// transition (double-start, use-before-start, duplicate registration).
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) || errors.Is(err, ErrNotStarted) || errors.Is(err, ErrAlreadyRegistered)
}
