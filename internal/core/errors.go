// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors. The first group is fatal: a run that hits one of these
// produces no output. The second group is recovered per-date or per-trade
// and surfaces as Warning records on the result.
var (
	// Fatal errors
	ErrConfigInvalid     = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing     = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
	ErrSequenceViolation = &Error{Code: "SEQUENCE_VIOLATION", Message: "feature snapshot read ahead of lag horizon"}
	ErrNoData            = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrRunFailed         = &Error{Code: "RUN_FAILED", Message: "backtest run failed"}

	// Recovered errors
	ErrDataQuality       = &Error{Code: "DATA_QUALITY", Message: "malformed or missing input data"}
	ErrNoLiquidity       = &Error{Code: "NO_LIQUIDITY", Message: "no daily volume for requested trade"}
	ErrCapitalConstraint = &Error{Code: "CAPITAL_CONSTRAINT", Message: "gross exposure exceeds available capital"}

	// Storage errors
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "record not found"}
)
