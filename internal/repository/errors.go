// Package repository implements the persistence layer for orders,
// invoices and hotels. This file defines the closed error taxonomy
// shared by every repository. Store operations return a *StoreError
// carrying a Kind; handlers match the kind exhaustively to choose an
// HTTP status and a user-safe message, never by inspecting error
// strings. The underlying driver error stays wrapped for server-side
// logging only.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

// Kind enumerates the operational failure classes of the store layer.
type Kind int

const (
	// KindConflict signals a version mismatch on update or a uniqueness
	// violation on create (another OPEN order already holds the table).
	// Never retried automatically; the caller must refresh and resubmit.
	KindConflict Kind = iota
	// KindInvalidOperation signals an attempted mutation of a terminal
	// (BILLED) order or an illegal status transition.
	KindInvalidOperation
	// KindNotFound covers both a genuinely absent entity and one owned
	// by a different tenant. The two are deliberately indistinguishable
	// so existence never leaks across tenants.
	KindNotFound
	// KindTransient marks infrastructure faults (timeouts, dropped
	// connections) that are expected to self-correct; the only class
	// eligible for automatic retry.
	KindTransient
	// KindValidation marks malformed input. Always a 4xx, never retried.
	KindValidation
)

// String returns a stable label for logging and metrics.
func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// StoreError is the single error type raised by the store layer. Msg is
// safe to echo to callers; Err holds the technical cause and is only
// ever logged server-side.
type StoreError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *StoreError) Unwrap() error { return e.Err }

// Conflict builds a caller-correctable conflict error.
func Conflict(msg string) *StoreError { return &StoreError{Kind: KindConflict, Msg: msg} }

// InvalidOperation builds an illegal-transition error.
func InvalidOperation(msg string) *StoreError {
	return &StoreError{Kind: KindInvalidOperation, Msg: msg}
}

// NotFound builds a merged not-found/unauthorized error.
func NotFound(msg string) *StoreError { return &StoreError{Kind: KindNotFound, Msg: msg} }

// Transient wraps an infrastructure fault eligible for retry.
func Transient(msg string, err error) *StoreError {
	return &StoreError{Kind: KindTransient, Msg: msg, Err: err}
}

// Validation builds a malformed-input error.
func Validation(msg string) *StoreError { return &StoreError{Kind: KindValidation, Msg: msg} }

// KindOf extracts the taxonomy kind from err. Errors that did not
// originate in the store layer are treated as transient so that the
// boundary surfaces them as a generic 5xx.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }

// IsTransient is the retry predicate used by the services: only
// infrastructure faults are ever re-attempted, so a genuine conflict is
// never mistaken for a transient failure.
func IsTransient(err error) bool { return err != nil && IsKind(err, KindTransient) }

// MySQL server error numbers the classifier cares about.
const (
	mysqlErrDupEntry    = 1062 // ER_DUP_ENTRY
	mysqlErrLockWait    = 1205 // ER_LOCK_WAIT_TIMEOUT
	mysqlErrDeadlock    = 1213 // ER_LOCK_DEADLOCK
	mysqlErrTooManyConn = 1040 // ER_CON_COUNT_ERROR
)

// classify converts a raw driver error into a *StoreError. Duplicate
// keys become conflicts (the unique index on open orders backstops the
// one-open-order-per-table rule), lock timeouts, deadlocks and
// connection failures become transient, and anything unrecognized is
// wrapped transient as well so its text is never echoed to a caller.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDupEntry:
			return &StoreError{Kind: KindConflict, Msg: "conflicting record already exists", Err: err}
		case mysqlErrLockWait, mysqlErrDeadlock, mysqlErrTooManyConn:
			return Transient(op+" failed", err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return Transient(op+" failed", err)
	}
	return Transient(op+" failed", err)
}
