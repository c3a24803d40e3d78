package holdingsync

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures by how far they are allowed to
// propagate.
type ErrorCode string

// Error codes, from the innermost recovery boundary outwards.
const (
	ErrCodeSkippedRecord  ErrorCode = "SKIPPED_RECORD"
	ErrCodeCellWrite      ErrorCode = "CELL_WRITE_FAILURE"
	ErrCodeFileProcessing ErrorCode = "FILE_PROCESSING_FAILURE"
	ErrCodeSetup          ErrorCode = "SETUP_FAILURE"
	ErrCodeOrchestrator   ErrorCode = "ORCHESTRATOR_FAILURE"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
)

var (
	// ErrMissingSymbol marks an export record without an instrument symbol.
	ErrMissingSymbol = errors.New("record has no symbol")
	// ErrNoTable is returned when a component is built without a table.
	ErrNoTable = errors.New("no destination table")
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode reports whether any error in err's chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// CellFailure is a rejected single-cell write with its destination.
type CellFailure struct {
	Row    int
	Column string
	Err    error
}

func (f CellFailure) Error() string {
	return fmt.Sprintf("%s%d: %v", f.Column, f.Row, f.Err)
}

func (f CellFailure) Unwrap() error {
	return f.Err
}
