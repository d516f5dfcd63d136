package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error kinds returned by the payment and invoice services. Every failure
// wraps exactly one of these so callers can switch with errors.Is.
var (
	// ErrNotFound means the invoice does not exist or is soft-deleted.
	ErrNotFound = errors.New("invoice not found")

	// ErrInvalidAmount means the tendered amount is not a positive decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrConflictingState means a concurrent writer was detected; safe to retry with a fresh read.
	ErrConflictingState = errors.New("conflicting concurrent modification")

	// ErrPersistenceFailure means storage failed for reasons outside the engine.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrInvalidRequest covers malformed input to the administrative operations.
	ErrInvalidRequest = errors.New("invalid request")
)

// PostgreSQL SQLSTATEs that signal lock contention rather than a broken store.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// PaymentError carries the failed operation next to its error kind.
type PaymentError struct {
	// Op is the operation that failed (e.g. "ApplyPayment").
	Op string

	// Kind is one of the sentinel errors above.
	Kind error

	// Err is the underlying cause, may be nil.
	Err error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// Is matches on the kind as well as on the wrapped cause.
func (e *PaymentError) Is(target error) bool {
	return e.Kind == target
}

func newPaymentError(op string, kind, err error) *PaymentError {
	return &PaymentError{Op: op, Kind: kind, Err: err}
}

// classifyError maps a storage error onto an error kind.
// Errors that were already classified pass through untouched.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *PaymentError
	if errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newPaymentError(op, ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return newPaymentError(op, ErrConflictingState, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newPaymentError(op, ErrConflictingState, err)
	}

	return newPaymentError(op, ErrPersistenceFailure, err)
}
