package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// Validation indicates a malformed or duplicate input row, recovered locally
	Validation ErrorCode = "VALIDATION_ERROR"
	// OutOfOrderWeek indicates a week append that is not strictly after the last recorded week
	OutOfOrderWeek ErrorCode = "OUT_OF_ORDER_WEEK"
	// AlreadyInitialized indicates an initialize while an active watchlist exists
	AlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	// NoActiveWatchlist indicates an operation that requires an active watchlist
	NoActiveWatchlist ErrorCode = "NO_ACTIVE_WATCHLIST"
	// CycleExhausted indicates the observation window passed its soft week limit
	CycleExhausted ErrorCode = "CYCLE_EXHAUSTED"
	// ImportError indicates an unreadable or unrecognized import file
	ImportError ErrorCode = "IMPORT_ERROR"
	// ConfigError indicates invalid configuration
	ConfigError ErrorCode = "CONFIG_ERROR"
	// SpapiError indicates a Selling Partner API failure
	SpapiError ErrorCode = "SPAPI_ERROR"
	// AuthError indicates missing or unreadable API credentials
	AuthError ErrorCode = "AUTH_ERROR"
	// ProductError indicates a missing or ambiguous product selection
	ProductError ErrorCode = "PRODUCT_ERROR"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// SqpError represents a sqptrack error with code, message, and suggestions
type SqpError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewSqpError creates a new SqpError. When suggestedFixes is nil the
// default actions for the code are attached.
func NewSqpError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *SqpError {
	if suggestedFixes == nil {
		suggestedFixes = GetSuggestedFixes(code)
	}
	return &SqpError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *SqpError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SqpError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SqpError) WithDetails(details interface{}) *SqpError {
	e.Details = details
	return e
}

// CodeOf returns the error code carried by err, or empty when err is
// not a SqpError.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*SqpError); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	AlreadyInitialized: {
		{
			Type:        RunCommand,
			Command:     "sqptrack reset --csv <new-export>",
			Safe:        false,
			Description: "Archive the current cycle and start a new one from a fresh import",
		},
		{
			Type:        RunCommand,
			Command:     "sqptrack track --csv <export>",
			Safe:        true,
			Description: "Append the import to the current cycle instead of starting over",
		},
	},
	NoActiveWatchlist: {
		{
			Type:        RunCommand,
			Command:     "sqptrack track --csv <export>",
			Safe:        true,
			Description: "Start a new tracking cycle from a first import",
		},
	},
	OutOfOrderWeek: {
		{
			Type:        RunCommand,
			Command:     "sqptrack status",
			Safe:        true,
			Description: "Show the last recorded week, then re-run with a later --week",
		},
	},
	CycleExhausted: {
		{
			Type:        RunCommand,
			Command:     "sqptrack reset --csv <new-export>",
			Safe:        false,
			Description: "Archive the finished 12-week cycle and re-select keywords",
		},
	},
	AuthError: {
		{
			Type:        RunCommand,
			Command:     "sqptrack auth set",
			Safe:        true,
			Description: "Store Selling Partner API credentials",
		},
	},
	ProductError: {
		{
			Type:        RunCommand,
			Command:     "sqptrack products list",
			Safe:        true,
			Description: "List declared products, then pass --asin explicitly",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
