// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataUnavailable    = errors.New("market data unavailable")
	ErrInvalidParameters  = errors.New("invalid trading parameters")
	ErrRunNotFound        = errors.New("run not found")
	ErrRunFinished        = errors.New("run already finished")
	ErrRunNotRunning      = errors.New("run is not running")
	ErrNonPositivePrice   = errors.New("non-positive price")
	ErrInsufficientData   = errors.New("insufficient price history")
	ErrInvariantViolated  = errors.New("portfolio invariant violated")
	ErrStoreClosed        = errors.New("result store is closed")
	ErrStatusTransition   = errors.New("invalid run status transition")
)

// ValidationError represents a validation error on trading parameters.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("validation error: %s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s (%v) %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParameters
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a failure to fetch market or news data for a date.
type DataError struct {
	DataType string
	Ticker   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Ticker, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Ticker, e.Message)
}

func (e *DataError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDataUnavailable
}

// NewDataError creates a new DataError.
func NewDataError(dataType, ticker, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Ticker:   ticker,
		Message:  message,
		Err:      err,
	}
}

// AgentError represents a soft failure of an analyst agent. It is logged and
// recovered as a neutral signal, never fatal to the run.
type AgentError struct {
	AgentName string
	Ticker    string
	Err       error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent error [%s] %s: %v", e.AgentName, e.Ticker, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(agentName, ticker string, err error) *AgentError {
	return &AgentError{
		AgentName: agentName,
		Ticker:    ticker,
		Err:       err,
	}
}

// ExecutionError represents an order that could not be applied to the portfolio.
type ExecutionError struct {
	Ticker string
	Action string
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution error %s %s: %s: %v", e.Action, e.Ticker, e.Reason, e.Err)
	}
	return fmt.Sprintf("execution error %s %s: %s", e.Action, e.Ticker, e.Reason)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(ticker, action, reason string, err error) *ExecutionError {
	return &ExecutionError{
		Ticker: ticker,
		Action: action,
		Reason: reason,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
