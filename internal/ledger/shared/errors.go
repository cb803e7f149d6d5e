// Package shared defines the error taxonomy used across the ledger core.
package shared

import (
	"errors"
	"fmt"
)

// Kind sentinels. Callers classify failures with errors.Is against these.
var (
	// ErrValidation indicates a malformed posting request.
	ErrValidation = errors.New("ledger: validation failed")
	// ErrReference indicates an account unknown to the catalog.
	ErrReference = errors.New("ledger: unknown reference")
	// ErrState indicates a posting into a closed fiscal period.
	ErrState = errors.New("ledger: period not open")
	// ErrConsistency indicates stored data violating a ledger invariant.
	ErrConsistency = errors.New("ledger: inconsistent data")
)

// Error carries the violated-invariant kind together with the identifiers
// reporting screens surface to the user. It unwraps to its kind sentinel.
type Error struct {
	Kind      error
	Msg       string
	AccountID int64
	PeriodID  int64
}

func (e *Error) Error() string {
	switch {
	case e.AccountID != 0 && e.PeriodID != 0:
		return fmt.Sprintf("%s: %s (account=%d period=%d)", e.Kind, e.Msg, e.AccountID, e.PeriodID)
	case e.AccountID != 0:
		return fmt.Sprintf("%s: %s (account=%d)", e.Kind, e.Msg, e.AccountID)
	case e.PeriodID != 0:
		return fmt.Sprintf("%s: %s (period=%d)", e.Kind, e.Msg, e.PeriodID)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// ReferenceError builds an unknown-account error.
func ReferenceError(accountID int64, msg string) error {
	return &Error{Kind: ErrReference, Msg: msg, AccountID: accountID}
}

// StateError builds a closed-period error.
func StateError(periodID int64, msg string) error {
	return &Error{Kind: ErrState, Msg: msg, PeriodID: periodID}
}

// ConsistencyError builds an invariant-violation error.
func ConsistencyError(accountID int64, msg string) error {
	return &Error{Kind: ErrConsistency, Msg: msg, AccountID: accountID}
}
