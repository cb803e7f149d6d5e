package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/choubo-app/choubo/internal/ledger/shared"
)

type mockRepo struct {
	accounts map[int64]AccountCategory
	getCalls int
}

func (m *mockRepo) GetAccount(ctx context.Context, orgID, accountID int64) (AccountCategory, error) {
	m.getCalls++
	if cat, ok := m.accounts[accountID]; ok {
		return cat, nil
	}
	return AccountCategory{}, shared.ReferenceError(accountID, "unknown account")
}

func (m *mockRepo) ListAccounts(ctx context.Context, orgID int64) ([]AccountCategory, error) {
	out := make([]AccountCategory, 0, len(m.accounts))
	for _, cat := range m.accounts {
		out = append(out, cat)
	}
	return out, nil
}

func (m *mockRepo) ListAccountIDs(ctx context.Context, orgID int64) ([]int64, error) {
	ids := make([]int64, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	return ids, nil
}

func newTestService(t *testing.T, repo *mockRepo) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, nil)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestClassifyCachesUntilInvalidated(t *testing.T) {
	repo := &mockRepo{accounts: map[int64]AccountCategory{
		1: {AccountID: 1, OrgID: 10, AccountName: "現金", MajorCategory: "資産", MidCategory: "流動資産", SubCategory: "現金及び預金"},
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	cat, err := svc.Classify(ctx, 10, 1)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if cat.AccountName != "現金" {
		t.Fatalf("unexpected classification: %+v", cat)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.getCalls)
	}

	// Second lookup hits the cache.
	if _, err := svc.Classify(ctx, 10, 1); err != nil {
		t.Fatalf("cached classify: %v", err)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.getCalls)
	}

	// Master-data edit invalidates; next lookup reloads.
	repo.accounts[1] = AccountCategory{AccountID: 1, OrgID: 10, AccountName: "現金", MajorCategory: "資産", MidCategory: "固定資産", SubCategory: "有形固定資産"}
	if err := svc.Invalidate(ctx, 10); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	cat, err = svc.Classify(ctx, 10, 1)
	if err != nil {
		t.Fatalf("classify after invalidate: %v", err)
	}
	if cat.MidCategory != "固定資産" {
		t.Fatalf("expected refreshed classification, got %+v", cat)
	}
	if repo.getCalls != 2 {
		t.Fatalf("expected repo reload, calls %d", repo.getCalls)
	}
}

func TestClassifyUnknownAccountFailsHard(t *testing.T) {
	repo := &mockRepo{accounts: map[int64]AccountCategory{}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.Classify(context.Background(), 10, 42)
	if !errors.Is(err, shared.ErrReference) {
		t.Fatalf("expected reference error, got %v", err)
	}
}

func TestWarmPreloadsEveryAccount(t *testing.T) {
	repo := &mockRepo{accounts: map[int64]AccountCategory{
		1: {AccountID: 1, OrgID: 10, AccountName: "現金", MajorCategory: "資産"},
		2: {AccountID: 2, OrgID: 10, AccountName: "売上高", MajorCategory: "損益", SubCategory: "売上高"},
	}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	n, err := svc.Warm(ctx, 10)
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 warmed accounts, got %d", n)
	}
	if _, err := svc.Classify(ctx, 10, 2); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if repo.getCalls != 0 {
		t.Fatalf("expected warm cache hit, repo called %d times", repo.getCalls)
	}
}
