package engineerr

import (
	"errors"
	"fmt"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Critical errors that should stop the engine
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Non-critical errors that can be retried or recovered from
	ErrorCategoryValidation  ErrorCategory = "VALIDATION"
	ErrorCategoryCapital     ErrorCategory = "CAPITAL"
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"
	ErrorCategoryMarketData  ErrorCategory = "MARKET_DATA"
	ErrorCategoryStrategy    ErrorCategory = "STRATEGY"
	ErrorCategoryNetwork     ErrorCategory = "NETWORK"
)

// RejectReason is the typed reason attached to a synchronous entry rejection.
// Rejections never mutate portfolio state.
type RejectReason string

const (
	RejectDuplicateSymbol          RejectReason = "DUPLICATE_SYMBOL"
	RejectInsufficientCapital      RejectReason = "INSUFFICIENT_CAPITAL"
	RejectStrategyCapacityExceeded RejectReason = "STRATEGY_CAPACITY_EXCEEDED"
	RejectDailyLossLimit           RejectReason = "DAILY_LOSS_LIMIT"
	RejectDrawdownPause            RejectReason = "DRAWDOWN_PAUSE"
	RejectMarketCrash              RejectReason = "MARKET_CRASH"
	RejectStrategyInactive         RejectReason = "STRATEGY_INACTIVE"
	RejectInvalidOpportunity       RejectReason = "INVALID_OPPORTUNITY"
)

// EngineError represents a categorized error with context
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Reason     RejectReason
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Message, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Message, e.Operation)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the engine
func (e *EngineError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal || e.Category == ErrorCategoryConfiguration
}

// New creates a new categorized engine error
func New(category ErrorCategory, component, operation, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: isRetryableCategory(category),
	}
}

// Wrap wraps an existing error with engine error context
func Wrap(err error, category ErrorCategory, component, operation string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Retryable:  isRetryableCategory(category),
	}
}

// WithRetryable sets the retryable flag
func (e *EngineError) WithRetryable(retryable bool) *EngineError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryPersistence, ErrorCategoryMarketData:
		return true
	default:
		return false
	}
}

// NewRejection creates a typed entry rejection. Rejections are validation or
// capital errors: synchronous, mutation-free, and never fatal.
func NewRejection(reason RejectReason, component, message string) *EngineError {
	category := ErrorCategoryCapital
	switch reason {
	case RejectDuplicateSymbol, RejectInvalidOpportunity:
		category = ErrorCategoryValidation
	}
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: "open_position",
		Message:   message,
		Reason:    reason,
		Retryable: false,
	}
}

// ReasonOf extracts the rejection reason from an error chain, if any.
func ReasonOf(err error) (RejectReason, bool) {
	var ee *EngineError
	if errors.As(err, &ee) && ee.Reason != "" {
		return ee.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a typed entry rejection.
func IsRejection(err error) bool {
	_, ok := ReasonOf(err)
	return ok
}

// NewValidationError creates a non-retryable validation error
func NewValidationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryValidation, component, operation, message)
}

// NewConfigurationError creates a fatal configuration error
func NewConfigurationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

// NewPersistenceError wraps a storage I/O failure
func NewPersistenceError(component, operation, message string, err error) *EngineError {
	e := New(ErrorCategoryPersistence, component, operation, message)
	e.Underlying = err
	return e
}

// NewMarketDataError wraps a missing or failed market data lookup
func NewMarketDataError(component, operation, message string, err error) *EngineError {
	e := New(ErrorCategoryMarketData, component, operation, message)
	e.Underlying = err
	return e
}

// NewStrategyError wraps a strategy callback failure
func NewStrategyError(component, operation, message string, err error) *EngineError {
	e := New(ErrorCategoryStrategy, component, operation, message)
	e.Underlying = err
	return e
}
