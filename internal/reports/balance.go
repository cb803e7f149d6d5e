// Package reports computes the period report artifacts: flat account
// balances, the balance-sheet tree and the profit-and-loss waterfall. All
// computation is pure after the initial reads, so report builds may run
// concurrently.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger"
	"github.com/choubo-app/choubo/internal/ledger/shared"
	"github.com/choubo-app/choubo/internal/periods"
)

// AccountBalance is one account's aggregate over a fiscal period. Amounts
// are integer minor currency units. Values are computed fresh per report
// request and never mutated afterwards.
type AccountBalance struct {
	AccountID int64                   `json:"accountId"`
	Category  catalog.AccountCategory `json:"-"`
	Name      string                  `json:"name"`
	Opening   int64                   `json:"opening"`
	Debit     int64                   `json:"debit"`
	Credit    int64                   `json:"credit"`
	Closing   int64                   `json:"closing"`
}

// EntrySource supplies stored entries for aggregation.
type EntrySource interface {
	EntriesInRange(ctx context.Context, orgID int64, accountIDs []int64, start, end time.Time) ([]ledger.Entry, error)
	EntriesBefore(ctx context.Context, orgID int64, accountIDs []int64, before time.Time) ([]ledger.Entry, error)
}

// OpeningSource supplies the stored opening rows of a period.
type OpeningSource interface {
	OpeningBalances(ctx context.Context, orgID, periodID int64) (map[int64]ledger.OpeningBalance, error)
}

// CatalogSource resolves account classifications.
type CatalogSource interface {
	Classify(ctx context.Context, orgID, accountID int64) (catalog.AccountCategory, error)
}

// Aggregator computes per-account balances for one fiscal period.
type Aggregator struct {
	entries  EntrySource
	openings OpeningSource
	catalog  CatalogSource
}

// NewAggregator constructs Aggregator.
func NewAggregator(entries EntrySource, openings OpeningSource, cat CatalogSource) *Aggregator {
	return &Aggregator{entries: entries, openings: openings, catalog: cat}
}

// Aggregate returns one AccountBalance per requested account, including
// accounts with zero activity. Opening balances come from the stored row
// when one exists, otherwise from all entries dated before the period
// start. An account whose category or normal side cannot be resolved
// aborts the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, orgID int64, period periods.Period, accountIDs []int64) ([]AccountBalance, error) {
	cats := make(map[int64]catalog.AccountCategory, len(accountIDs))
	sides := make(map[int64]catalog.NormalSide, len(accountIDs))
	for _, id := range accountIDs {
		cat, err := a.catalog.Classify(ctx, orgID, id)
		if err != nil {
			return nil, shared.ConsistencyError(id, fmt.Sprintf("account is unresolvable: %v", err))
		}
		side, ok := catalog.NormalSideFor(cat)
		if !ok {
			return nil, shared.ConsistencyError(id, "account has no resolvable normal side")
		}
		cats[id] = cat
		sides[id] = side
	}

	stored, err := a.openings.OpeningBalances(ctx, orgID, period.ID)
	if err != nil {
		return nil, err
	}
	for id := range stored {
		if _, ok := cats[id]; ok {
			continue
		}
		if _, err := a.catalog.Classify(ctx, orgID, id); err != nil {
			return nil, shared.ConsistencyError(id, "opening balance stored for unknown account")
		}
	}

	opening := make(map[int64]int64, len(accountIDs))
	var derive []int64
	for _, id := range accountIDs {
		if row, ok := stored[id]; ok {
			opening[id] = signed(sides[id], row.DebitAmount, row.CreditAmount)
		} else {
			derive = append(derive, id)
		}
	}
	if len(derive) > 0 {
		prior, err := a.entries.EntriesBefore(ctx, orgID, derive, period.StartDate)
		if err != nil {
			return nil, err
		}
		wanted := make(map[int64]bool, len(derive))
		for _, id := range derive {
			wanted[id] = true
		}
		for _, e := range prior {
			if wanted[e.DebitAccountID] {
				opening[e.DebitAccountID] += signed(sides[e.DebitAccountID], e.Amount, 0)
			}
			if wanted[e.CreditAccountID] {
				opening[e.CreditAccountID] += signed(sides[e.CreditAccountID], 0, e.Amount)
			}
		}
	}

	inRange, err := a.entries.EntriesInRange(ctx, orgID, accountIDs, period.StartDate, period.EndDate)
	if err != nil {
		return nil, err
	}
	debit := make(map[int64]int64, len(accountIDs))
	credit := make(map[int64]int64, len(accountIDs))
	for _, e := range inRange {
		if _, ok := cats[e.DebitAccountID]; ok {
			debit[e.DebitAccountID] += e.Amount
		}
		if _, ok := cats[e.CreditAccountID]; ok {
			credit[e.CreditAccountID] += e.Amount
		}
	}

	out := make([]AccountBalance, 0, len(accountIDs))
	for _, id := range accountIDs {
		cat := cats[id]
		bal := AccountBalance{
			AccountID: id,
			Category:  cat,
			Name:      cat.AccountName,
			Opening:   opening[id],
			Debit:     debit[id],
			Credit:    credit[id],
		}
		bal.Closing = bal.Opening + signed(sides[id], bal.Debit, bal.Credit)
		out = append(out, bal)
	}
	sort.Slice(out, func(i, j int) bool {
		return catalog.OrderKeyFor(out[i].Category).Less(catalog.OrderKeyFor(out[j].Category))
	})
	return out, nil
}

// signed folds a debit/credit pair onto the account's natural side.
func signed(side catalog.NormalSide, debit, credit int64) int64 {
	if side == catalog.NormalSideCredit {
		return credit - debit
	}
	return debit - credit
}
