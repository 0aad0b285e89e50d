package close

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the closed taxonomy backend and transition failures are mapped into.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindValidation
	KindPermission
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission"
	case KindConflict:
		return "conflict"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Retryable reports whether the kind may be retried automatically.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// ClassifiedError pins an explicit kind onto an underlying failure.
type ClassifiedError struct {
	Class Kind
	Op    string
	Err   error
}

func (e *ClassifiedError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("close: %s error: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("close: %s: %s error: %v", e.Op, e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// ErrorKind implements the kind carrier contract.
func (e *ClassifiedError) ErrorKind() Kind {
	return e.Class
}

// Classify maps any error into the taxonomy. Explicit carriers win, then
// domain sentinels, then Postgres SQLSTATE codes, then network signatures.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var carrier interface{ ErrorKind() Kind }
	if errors.As(err, &carrier) {
		return carrier.ErrorKind()
	}
	if kind, ok := classifyDomain(err); ok {
		return kind
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindTransient
	}
	if pgconn.SafeToRetry(err) {
		return KindTransient
	}
	return KindUnknown
}

func classifyDomain(err error) (Kind, bool) {
	switch {
	case errors.Is(err, ErrInsufficientPrivilege):
		return KindPermission, true
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrOverlappingPeriod),
		errors.Is(err, ErrDuplicatePeriod),
		errors.Is(err, ErrLaterPeriodClosed):
		return KindConflict, true
	case errors.Is(err, ErrDateRangeInvalid),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrValidationBlocked),
		errors.Is(err, ErrMissingReason),
		errors.Is(err, ErrConfirmationMismatch),
		errors.Is(err, ErrPeriodNotFound),
		errors.Is(err, ErrNoFieldsProvided),
		errors.Is(err, ErrRetainedEarnings),
		errors.Is(err, ErrUnbalancedJournal),
		errors.Is(err, ErrInvalidInput):
		return KindValidation, true
	default:
		return KindUnknown, false
	}
}

func classifySQLState(code string) Kind {
	switch code {
	case "40001", "40P01", "55P03", "57014", "53300", "57P01":
		return KindTransient
	case "23505", "23P01":
		return KindConflict
	case "42501":
		return KindPermission
	}
	switch {
	case strings.HasPrefix(code, "08"):
		return KindTransient
	case strings.HasPrefix(code, "22"), strings.HasPrefix(code, "23"):
		return KindValidation
	default:
		return KindUnknown
	}
}
