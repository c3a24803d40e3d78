package holdingsync

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	assertString(t, NewError(ErrCodeInvalidInput, "bad row").Error(), "INVALID_INPUT: bad row", "plain")
	wrapped := WrapError(ErrCodeSetup, "open sheet", errors.New("denied"))
	assertString(t, wrapped.Error(), "SETUP_FAILURE: open sheet: denied", "wrapped")
}

func TestIsErrorCodeWalksChain(t *testing.T) {
	setup := WrapError(ErrCodeSetup, "table unavailable", errors.New("no credentials"))
	err := WrapError(ErrCodeOrchestrator, "refresh aborted", fmt.Errorf("clear: %w", setup))

	if !IsErrorCode(err, ErrCodeOrchestrator) || !IsErrorCode(err, ErrCodeSetup) {
		t.Fatalf("expected both codes in %v", err)
	}
	if IsErrorCode(err, ErrCodeCellWrite) {
		t.Fatalf("unexpected code")
	}
	if IsErrorCode(errors.New("plain"), ErrCodeSetup) || IsErrorCode(nil, ErrCodeSetup) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestCellFailure(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := WrapError(ErrCodeCellWrite, "write formula F2", CellFailure{Row: 2, Column: "F", Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable")
	}
	var cf CellFailure
	if !errors.As(err, &cf) {
		t.Fatalf("CellFailure not reachable")
	}
	assertString(t, cf.Error(), "F2: quota exceeded", "cell failure")
}
