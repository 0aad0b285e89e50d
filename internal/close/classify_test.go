package close

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("mystery"), KindUnknown},
		{"explicit carrier", &ClassifiedError{Class: KindPermission, Err: errors.New("denied")}, KindPermission},
		{"wrapped carrier", fmt.Errorf("outer: %w", &ClassifiedError{Class: KindTransient, Err: io.EOF}), KindTransient},
		{"privilege", &PrivilegeError{Actor: "u", Role: "r"}, KindPermission},
		{"conflict", fmt.Errorf("%w: ACME/2024-01", ErrConflict), KindConflict},
		{"overlap", ErrOverlappingPeriod, KindConflict},
		{"duplicate", ErrDuplicatePeriod, KindConflict},
		{"later closed", ErrLaterPeriodClosed, KindConflict},
		{"transition", &TransitionError{From: PeriodStatusOpen, To: PeriodStatusOpen}, KindValidation},
		{"blocked", &ValidationBlockedError{}, KindValidation},
		{"input", &InputError{}, KindValidation},
		{"missing reason", ErrMissingReason, KindValidation},
		{"not found", ErrPeriodNotFound, KindValidation},
		{"retained earnings", ErrRetainedEarnings, KindValidation},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, KindTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindTransient},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, KindTransient},
		{"connection exception", &pgconn.PgError{Code: "08006"}, KindTransient},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindConflict},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, KindConflict},
		{"check violation", &pgconn.PgError{Code: "23514"}, KindValidation},
		{"bad datetime", &pgconn.PgError{Code: "22007"}, KindValidation},
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, KindPermission},
		{"syntax error", &pgconn.PgError{Code: "42601"}, KindUnknown},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}, KindTransient},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), KindTransient},
		{"reset", syscall.ECONNRESET, KindTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestKindStringAndRetryable(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.True(t, KindTransient.Retryable())
	for _, k := range []Kind{KindUnknown, KindValidation, KindPermission, KindConflict} {
		assert.False(t, k.Retryable(), k.String())
	}
}

func TestClassifiedErrorUnwraps(t *testing.T) {
	err := &ClassifiedError{Class: KindUnknown, Op: "submit closing journal", Err: ErrUnbalancedJournal}
	assert.ErrorIs(t, err, ErrUnbalancedJournal)
	assert.Contains(t, err.Error(), "submit closing journal")
	assert.Equal(t, KindUnknown, Classify(err), "explicit kind wins over the wrapped sentinel")
}
