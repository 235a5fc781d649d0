package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestToCoreError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{ErrAlreadyBound, ErrCodeAlreadyBound},
		{ErrEmptyMessage, ErrCodeEmptyMessage},
		{fmt.Errorf("%w: exceeds 10 bytes", ErrMessageTooLong), ErrCodeMessageTooLong},
		{ErrInvalidMessage, ErrCodeInvalidMessage},
		{&UnavailableError{Err: errors.New("disk full")}, ErrCodeUnavailable},
		{ErrNotBound, ErrCodeNotBound},
		{ErrBadRequest, ErrCodeBadRequest},
		{fmt.Errorf("%w: bad signature", ErrUnauthorized), ErrCodeUnauthorized},
		{ErrConnClosed, ErrCodeConnClosed},
		{coreError(ErrCodeRateLimited, "slow down"), ErrCodeRateLimited},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		if got := ToCoreError(tt.err); got.Code != tt.code {
			t.Errorf("ToCoreError(%v).Code = %q, want %q", tt.err, got.Code, tt.code)
		}
	}
}

func TestUnavailableErrorHidesCause(t *testing.T) {
	ce := ToCoreError(&UnavailableError{Err: errors.New("password authentication failed")})
	if ce.Message != ErrUnavailable.Error() {
		t.Fatalf("unexpected message %q", ce.Message)
	}
}
