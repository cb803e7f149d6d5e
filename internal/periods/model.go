// Package periods holds the fiscal period reference data. The ledger core
// only reads period status; open/close transitions belong to the period
// administration screens.
package periods

import (
	"errors"
	"time"
)

// Status enumerates valid period states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// ErrNotFound indicates no period covers the requested date or id.
var ErrNotFound = errors.New("periods: fiscal period not found")

// Period represents a fiscal period window.
type Period struct {
	ID        int64
	OrgID     int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether the date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// Validate checks the window invariant at construction.
func (p Period) Validate() error {
	if !p.StartDate.Before(p.EndDate) {
		return errors.New("periods: start date must precede end date")
	}
	return nil
}
