package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSqpError(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "sqptrack status"}}

	err := NewSqpError(OutOfOrderWeek, "week 2025-W13 is not after 2025-W14", cause, fixes)

	if err.Code != OutOfOrderWeek {
		t.Errorf("Code = %v, want %v", err.Code, OutOfOrderWeek)
	}
	if err.Message != "week 2025-W13 is not after 2025-W14" {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestNewSqpErrorDefaultFixes(t *testing.T) {
	// nil fixes pull the default actions for the code
	err := NewSqpError(NoActiveWatchlist, "no active watchlist", nil, nil)
	if len(err.SuggestedFixes) == 0 {
		t.Error("expected default suggested fixes for NO_ACTIVE_WATCHLIST")
	}
}

func TestSqpError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      ImportError,
			message:   "cannot read export",
			cause:     errors.New("permission denied"),
			wantParts: []string{"IMPORT_ERROR", "cannot read export", "permission denied"},
		},
		{
			name:      "without cause",
			code:      AlreadyInitialized,
			message:   "an active watchlist exists",
			cause:     nil,
			wantParts: []string{"ALREADY_INITIALIZED", "an active watchlist exists"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSqpError(tt.code, tt.message, tt.cause, nil)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestSqpError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewSqpError(InternalError, "something went wrong", cause, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}

	errNoCause := NewSqpError(Validation, "duplicate row", nil, nil)
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() on error without cause should return nil")
	}
}

func TestSqpError_WithDetails(t *testing.T) {
	err := NewSqpError(Validation, "duplicate keyword rows", nil, nil)
	details := map[string]int{"duplicates": 3}

	result := err.WithDetails(details)

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewSqpError(CycleExhausted, "week 13 of a 12 week cycle", nil, nil)
	if CodeOf(err) != CycleExhausted {
		t.Errorf("CodeOf = %v, want %v", CodeOf(err), CycleExhausted)
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf on plain error should be empty")
	}
	if !IsCode(err, CycleExhausted) {
		t.Error("IsCode should match the carried code")
	}
	if IsCode(err, Validation) {
		t.Error("IsCode should not match a different code")
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
	}{
		{AlreadyInitialized, false},
		{NoActiveWatchlist, false},
		{OutOfOrderWeek, false},
		{CycleExhausted, false},
		{AuthError, false},
		{ProductError, false},
		{Validation, true},     // recovered locally, no operator action
		{InternalError, true},  // nothing actionable
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) == 0 {
				t.Errorf("GetSuggestedFixes(%v) should not be empty", tt.code)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	// Ensure all error codes are unique
	codes := []ErrorCode{
		Validation,
		OutOfOrderWeek,
		AlreadyInitialized,
		NoActiveWatchlist,
		CycleExhausted,
		ImportError,
		ConfigError,
		SpapiError,
		AuthError,
		ProductError,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	// Every entry must carry actionable, typed fixes
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
			if fix.Type == RunCommand && fix.Command == "" {
				t.Errorf("ErrorActions[%v][%d] run-command without a command", code, i)
			}
		}
	}
}
