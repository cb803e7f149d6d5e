package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger"
	"github.com/choubo-app/choubo/internal/periods"
)

type fakePeriods struct {
	period periods.Period
}

func (f fakePeriods) Get(ctx context.Context, orgID, periodID int64) (periods.Period, error) {
	if f.period.ID != periodID {
		return periods.Period{}, periods.ErrNotFound
	}
	return f.period, nil
}

func newTestAssembler(entries fakeEntries, openings fakeOpenings) *Assembler {
	accounts := testAccounts()
	agg := NewAggregator(entries, openings, accounts)
	asm := NewAssembler(fakePeriods{period: fy2025()}, accounts, agg, nil)
	asm.now = func() time.Time { return time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC) }
	return asm
}

func TestBuildReportScenarioA(t *testing.T) {
	entries := fakeEntries{entries: []ledger.Entry{
		entry(1, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), accCash, accSales, 1000),
	}}
	openings := fakeOpenings{
		accCash: {OrgID: 10, PeriodID: 1, AccountID: accCash, DebitAmount: 100},
	}
	asm := newTestAssembler(entries, openings)

	report, err := asm.BuildReport(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	byID := indexBalances(report.FlatBalances)
	if byID[accCash].Closing != 1100 {
		t.Fatalf("cash closing: expected 1100 got %d", byID[accCash].Closing)
	}
	if byID[accSales].Closing != 1000 {
		t.Fatalf("sales closing: expected 1000 got %d", byID[accSales].Closing)
	}
	if report.Waterfall.Sales != 1000 || report.Waterfall.GrossProfit != 1000 {
		t.Fatalf("waterfall: expected sales 1000 / gross profit 1000, got %d / %d",
			report.Waterfall.Sales, report.Waterfall.GrossProfit)
	}
	if report.BSTree.Majors[0].Label != "資産" {
		t.Fatalf("expected assets first in tree, got %s", report.BSTree.Majors[0].Label)
	}
}

func TestBuildReportTrialBalanceIdentity(t *testing.T) {
	// Total debits equal total credits across the whole ledger for the
	// period, so the per-account debit and credit sums must agree.
	entries := fakeEntries{entries: []ledger.Entry{
		entry(1, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), accCash, accSales, 5000),
		entry(2, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), accPurchase, accPayable, 2000),
		entry(3, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), accSGA, accCash, 800),
		entry(4, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), accPayable, accCash, 1500),
	}}
	asm := newTestAssembler(entries, fakeOpenings{})

	report, err := asm.BuildReport(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var totalDebit, totalCredit int64
	for _, b := range report.FlatBalances {
		totalDebit += b.Debit
		totalCredit += b.Credit
	}
	if totalDebit != totalCredit {
		t.Fatalf("trial balance identity violated: debits %d credits %d", totalDebit, totalCredit)
	}
	// BS closing spread equals retained P&L income with signs applied by
	// normal side.
	var bsNet, plNet int64
	for _, b := range report.FlatBalances {
		if b.Category.IsBalanceSheet() {
			side, _ := catalog.NormalSideFor(b.Category)
			if side == catalog.NormalSideDebit {
				bsNet += b.Closing - b.Opening
			} else {
				bsNet -= b.Closing - b.Opening
			}
		}
	}
	plNet = report.Waterfall.NetIncome
	if bsNet != plNet {
		t.Fatalf("BS movement %d does not equal P&L net income %d", bsNet, plNet)
	}
}

func TestBuildReportIsDeterministic(t *testing.T) {
	entries := fakeEntries{entries: []ledger.Entry{
		entry(1, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), accCash, accSales, 5000),
		entry(2, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), accPurchase, accPayable, 2000),
	}}
	asm := newTestAssembler(entries, fakeOpenings{})

	first, err := asm.BuildReport(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, err := asm.BuildReport(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two builds over the same ledger produced different output")
	}
}
