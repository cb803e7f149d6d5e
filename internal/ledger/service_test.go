package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger/shared"
	"github.com/choubo-app/choubo/internal/periods"
)

type fakeRepo struct {
	periods []periods.Period
	entries []Entry
	nextID  int64
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make([]Entry, len(r.entries))
	copy(snapshot, r.entries)
	nextID := r.nextID
	if err := fn(ctx, (*fakeTx)(r)); err != nil {
		r.entries = snapshot
		r.nextID = nextID
		return err
	}
	return nil
}

type fakeTx fakeRepo

func (tx *fakeTx) InsertEntry(ctx context.Context, orgID int64, in EntryInput) (Entry, error) {
	tx.nextID++
	e := Entry{
		ID:              tx.nextID,
		OrgID:           orgID,
		FiscalDate:      in.FiscalDate,
		DebitAccountID:  in.DebitAccountID,
		CreditAccountID: in.CreditAccountID,
		Amount:          in.Amount,
		SourceType:      in.SourceType,
		SourceID:        in.SourceID,
		Memo:            in.Memo,
	}
	tx.entries = append(tx.entries, e)
	return e, nil
}

func (tx *fakeTx) DeleteBySource(ctx context.Context, orgID int64, types []SourceType, sourceID int64) (int64, error) {
	kept := tx.entries[:0]
	var removed int64
	for _, e := range tx.entries {
		match := e.OrgID == orgID && e.SourceID != nil && *e.SourceID == sourceID && inFamily(types, e.SourceType)
		if match {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	tx.entries = kept
	return removed, nil
}

func (tx *fakeTx) FindPeriodByDateForUpdate(ctx context.Context, orgID int64, date time.Time) (periods.Period, error) {
	for _, p := range tx.periods {
		if p.OrgID == orgID && p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, periods.ErrNotFound
}

type fakeCatalog struct {
	accounts map[int64]catalog.AccountCategory
}

func (c fakeCatalog) Classify(ctx context.Context, orgID, accountID int64) (catalog.AccountCategory, error) {
	if cat, ok := c.accounts[accountID]; ok {
		return cat, nil
	}
	return catalog.AccountCategory{}, shared.ReferenceError(accountID, "unknown account")
}

func testCatalog() fakeCatalog {
	return fakeCatalog{accounts: map[int64]catalog.AccountCategory{
		1: {AccountID: 1, AccountName: "現金", MajorCategory: "資産"},
		2: {AccountID: 2, AccountName: "売上高", MajorCategory: "損益", PLCategory: "売上高"},
		3: {AccountID: 3, AccountName: "仕入高", MajorCategory: "損益", PLCategory: "売上原価"},
	}}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openPeriod(id, orgID int64) periods.Period {
	return periods.Period{
		ID: id, OrgID: orgID, Code: "FY2025",
		StartDate: date(2025, 1, 1), EndDate: date(2025, 12, 31),
		Status: periods.StatusOpen,
	}
}

func TestPostRejectsClosedPeriodAndPersistsNothing(t *testing.T) {
	closed := openPeriod(1, 10)
	closed.Status = periods.StatusClosed
	repo := &fakeRepo{periods: []periods.Period{closed}}
	svc := NewService(repo, testCatalog(), nil, nil)

	inputs := []EntryInput{
		{FiscalDate: date(2025, 3, 1), DebitAccountID: 1, CreditAccountID: 2, Amount: 1000, SourceType: SourceManualJournal},
		{FiscalDate: date(2025, 3, 2), DebitAccountID: 3, CreditAccountID: 1, Amount: 400, SourceType: SourceManualJournal},
	}
	_, err := svc.Post(context.Background(), 10, inputs)
	if !errors.Is(err, shared.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("expected no persisted entries, got %d", len(repo.entries))
	}
}

func TestPostRejectsUnknownAccountWithoutPartialWrite(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)

	inputs := []EntryInput{
		{FiscalDate: date(2025, 3, 1), DebitAccountID: 1, CreditAccountID: 2, Amount: 1000, SourceType: SourceManualJournal},
		{FiscalDate: date(2025, 3, 2), DebitAccountID: 99, CreditAccountID: 1, Amount: 500, SourceType: SourceManualJournal},
	}
	_, err := svc.Post(context.Background(), 10, inputs)
	if !errors.Is(err, shared.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("expected no persisted entries, got %d", len(repo.entries))
	}
}

func TestPostAllowsDateOutsideAnyPeriod(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)

	inputs := []EntryInput{
		{FiscalDate: date(2019, 6, 1), DebitAccountID: 1, CreditAccountID: 2, Amount: 300, SourceType: SourceImported},
	}
	ids, err := svc.Post(context.Background(), 10, inputs)
	if err != nil {
		t.Fatalf("expected success for historical import, got %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 id, got %d", len(ids))
	}
}

func TestReplaceDerivedSetRegeneratesAcrossFamily(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)
	sourceID := int64(7)

	// Cash-book line first stored as one tax-inclusive entry.
	first := []EntryInput{
		{FiscalDate: date(2025, 4, 1), DebitAccountID: 3, CreditAccountID: 1, Amount: 1100, SourceType: SourceCashBookBatch, SourceID: &sourceID},
	}
	if _, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceCashBookBatch, sourceID, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}

	// Edit splits the line into net and tax. Both the plain entry and any
	// previous split must disappear.
	second := []EntryInput{
		{FiscalDate: date(2025, 4, 1), DebitAccountID: 3, CreditAccountID: 1, Amount: 1000, SourceType: SourceCashBookNet, SourceID: &sourceID},
		{FiscalDate: date(2025, 4, 1), DebitAccountID: 3, CreditAccountID: 1, Amount: 100, SourceType: SourceCashBookTax, SourceID: &sourceID},
	}
	if _, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceCashBookNet, sourceID, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if len(repo.entries) != 2 {
		t.Fatalf("expected 2 entries after regeneration, got %d", len(repo.entries))
	}
	for _, e := range repo.entries {
		if e.SourceType == SourceCashBookBatch {
			t.Fatalf("stale tax-inclusive entry survived regeneration")
		}
	}
}

func TestReplaceDerivedSetIsIdempotent(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)
	sourceID := int64(3)

	set := []EntryInput{
		{FiscalDate: date(2025, 5, 10), DebitAccountID: 1, CreditAccountID: 2, Amount: 2500, SourceType: SourceImported, SourceID: &sourceID},
		{FiscalDate: date(2025, 5, 11), DebitAccountID: 3, CreditAccountID: 1, Amount: 900, SourceType: SourceImported, SourceID: &sourceID},
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceImported, sourceID, set); err != nil {
			t.Fatalf("replace %d: %v", i, err)
		}
	}
	if len(repo.entries) != 2 {
		t.Fatalf("expected 2 entries after repeated replace, got %d", len(repo.entries))
	}
}

func TestReplaceDerivedSetDeletesWithEmptySet(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)
	sourceID := int64(5)

	set := []EntryInput{
		{FiscalDate: date(2025, 6, 1), DebitAccountID: 1, CreditAccountID: 2, Amount: 700, SourceType: SourceManualJournal, SourceID: &sourceID},
	}
	if _, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceManualJournal, sourceID, set); err != nil {
		t.Fatalf("seed replace: %v", err)
	}
	if _, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceManualJournal, sourceID, nil); err != nil {
		t.Fatalf("empty replace: %v", err)
	}
	if len(repo.entries) != 0 {
		t.Fatalf("expected source deletion to remove its entries, got %d", len(repo.entries))
	}
}

func TestReplaceDerivedSetRejectsForeignSource(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	svc := NewService(repo, testCatalog(), nil, nil)
	sourceID := int64(4)
	other := int64(9)

	set := []EntryInput{
		{FiscalDate: date(2025, 6, 1), DebitAccountID: 1, CreditAccountID: 2, Amount: 700, SourceType: SourceManualJournal, SourceID: &other},
	}
	_, err := svc.ReplaceDerivedSet(context.Background(), 10, SourceManualJournal, sourceID, set)
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
