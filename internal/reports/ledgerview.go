package reports

import (
	"context"
	"fmt"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger/shared"
)

// LedgerLine is one dated row of the per-account ledger view. Balance is
// the running balance after the row, signed by the account's normal side
// so a revenue account grows as it is credited.
type LedgerLine struct {
	EntryID         int64  `json:"entryId"`
	Date            string `json:"date"`
	CounterpartID   int64  `json:"counterpartId"`
	CounterpartName string `json:"counterpartName"`
	Memo            string `json:"memo"`
	Debit           int64  `json:"debit"`
	Credit          int64  `json:"credit"`
	Balance         int64  `json:"balance"`
}

// MonthlyTotal is one month's debit/credit subtotal line.
type MonthlyTotal struct {
	Month  string `json:"month"`
	Debit  int64  `json:"debit"`
	Credit int64  `json:"credit"`
}

// AccountLedger is the per-account ledger view for one fiscal period.
type AccountLedger struct {
	AccountID   int64          `json:"accountId"`
	AccountName string         `json:"accountName"`
	Opening     int64          `json:"opening"`
	Closing     int64          `json:"closing"`
	Lines       []LedgerLine   `json:"lines"`
	Monthly     []MonthlyTotal `json:"monthly"`
}

// LedgerViewer builds per-account ledger views.
type LedgerViewer struct {
	periods PeriodSource
	entries EntrySource
	catalog CatalogSource
	agg     *Aggregator
}

// NewLedgerViewer constructs LedgerViewer.
func NewLedgerViewer(periodSrc PeriodSource, entries EntrySource, cat CatalogSource, agg *Aggregator) *LedgerViewer {
	return &LedgerViewer{periods: periodSrc, entries: entries, catalog: cat, agg: agg}
}

// BuildAccountLedger returns the dated lines of one account over the
// period with a running balance and monthly subtotals.
func (v *LedgerViewer) BuildAccountLedger(ctx context.Context, orgID, accountID, periodID int64) (AccountLedger, error) {
	period, err := v.periods.Get(ctx, orgID, periodID)
	if err != nil {
		return AccountLedger{}, err
	}
	cat, err := v.catalog.Classify(ctx, orgID, accountID)
	if err != nil {
		return AccountLedger{}, err
	}
	side, ok := catalog.NormalSideFor(cat)
	if !ok {
		return AccountLedger{}, shared.ConsistencyError(accountID, "account has no resolvable normal side")
	}

	balances, err := v.agg.Aggregate(ctx, orgID, period, []int64{accountID})
	if err != nil {
		return AccountLedger{}, err
	}
	view := AccountLedger{
		AccountID:   accountID,
		AccountName: cat.AccountName,
		Opening:     balances[0].Opening,
		Closing:     balances[0].Closing,
	}

	entries, err := v.entries.EntriesInRange(ctx, orgID, []int64{accountID}, period.StartDate, period.EndDate)
	if err != nil {
		return AccountLedger{}, err
	}
	running := view.Opening
	monthly := make(map[string]*MonthlyTotal)
	var months []string
	for _, e := range entries {
		var line LedgerLine
		line.EntryID = e.ID
		line.Date = e.FiscalDate.Format("2006-01-02")
		line.Memo = e.Memo
		// Both legs may reference the account; count each side it touches,
		// matching the aggregator.
		counterpartID := e.CreditAccountID
		if e.DebitAccountID == accountID {
			line.Debit = e.Amount
		}
		if e.CreditAccountID == accountID {
			line.Credit = e.Amount
			counterpartID = e.DebitAccountID
		}
		counterpart, err := v.catalog.Classify(ctx, orgID, counterpartID)
		if err != nil {
			return AccountLedger{}, shared.ConsistencyError(counterpartID, fmt.Sprintf("entry %d references unresolvable counterpart", e.ID))
		}
		line.CounterpartID = counterpartID
		line.CounterpartName = counterpart.AccountName
		running += signed(side, line.Debit, line.Credit)
		line.Balance = running
		view.Lines = append(view.Lines, line)

		month := e.FiscalDate.Format("2006-01")
		mt, ok := monthly[month]
		if !ok {
			mt = &MonthlyTotal{Month: month}
			monthly[month] = mt
			months = append(months, month)
		}
		mt.Debit += line.Debit
		mt.Credit += line.Credit
	}
	// Entries arrive ordered by (fiscal_date, id), so months are already in
	// chronological order.
	for _, m := range months {
		view.Monthly = append(view.Monthly, *monthly[m])
	}
	return view, nil
}
