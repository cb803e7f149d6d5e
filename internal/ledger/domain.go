// Package ledger owns the double-entry posting store: balanced entries with
// provenance, posted all-or-nothing and regenerated atomically per source.
package ledger

import (
	"time"

	"github.com/choubo-app/choubo/internal/ledger/shared"
)

// SourceType identifies the external record a posting derives from.
type SourceType string

const (
	// SourceManualJournal marks postings keyed in on the journal screen.
	SourceManualJournal SourceType = "journal_entry"
	// SourceCashBookBatch marks the tax-inclusive single posting of a
	// cash-book line.
	SourceCashBookBatch SourceType = "batch_entry"
	// SourceCashBookNet marks the net-amount half of a tax-split cash-book
	// line.
	SourceCashBookNet SourceType = "batch_entry_net"
	// SourceCashBookTax marks the consumption-tax half of a tax-split
	// cash-book line.
	SourceCashBookTax SourceType = "batch_entry_tax"
	// SourceImported marks rows created by the CSV/Excel import screens.
	SourceImported SourceType = "imported_transaction"
)

// Known reports whether the source type is one the store accepts.
func (s SourceType) Known() bool {
	switch s {
	case SourceManualJournal, SourceCashBookBatch, SourceCashBookNet, SourceCashBookTax, SourceImported:
		return true
	}
	return false
}

// Family returns the set of source types replaced together. A cash-book
// line may have produced a plain entry, or a net entry plus a tax entry;
// editing the line must replace whichever shape exists.
func (s SourceType) Family() []SourceType {
	switch s {
	case SourceCashBookBatch, SourceCashBookNet, SourceCashBookTax:
		return []SourceType{SourceCashBookBatch, SourceCashBookNet, SourceCashBookTax}
	default:
		return []SourceType{s}
	}
}

// Entry is one stored balanced posting. Amounts are integer minor currency
// units; the debit and credit legs always carry the same amount.
type Entry struct {
	ID              int64
	OrgID           int64
	FiscalDate      time.Time
	DebitAccountID  int64
	CreditAccountID int64
	Amount          int64
	SourceType      SourceType
	SourceID        *int64
	Memo            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OpeningBalance is the per-period carried-in balance of one account. Both
// sides are stored to mirror manual entry; aggregation signs them by the
// account's normal side.
type OpeningBalance struct {
	OrgID        int64
	PeriodID     int64
	AccountID    int64
	DebitAmount  int64
	CreditAmount int64
}

// EntryInput describes one posting to be stored.
type EntryInput struct {
	FiscalDate      time.Time
	DebitAccountID  int64
	CreditAccountID int64
	Amount          int64
	SourceType      SourceType
	SourceID        *int64
	Memo            string
}

// Validate checks the submission invariants for a single entry.
func (in EntryInput) Validate() error {
	if in.FiscalDate.IsZero() {
		return shared.Validationf("fiscal date required")
	}
	if in.DebitAccountID == 0 {
		return shared.Validationf("debit account required")
	}
	if in.CreditAccountID == 0 {
		return shared.Validationf("credit account required")
	}
	if in.Amount <= 0 {
		return shared.Validationf("amount must be positive, got %d", in.Amount)
	}
	if !in.SourceType.Known() {
		return shared.Validationf("unknown source type %q", in.SourceType)
	}
	return nil
}
