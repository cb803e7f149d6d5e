package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choubo-app/choubo/internal/periods"
	internalShared "github.com/choubo-app/choubo/internal/shared"
)

type memIdempotency struct {
	seen map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{seen: make(map[string]bool)}
}

func (m *memIdempotency) CheckAndInsert(ctx context.Context, orgID int64, key, scope string) error {
	if m.seen[key] {
		return internalShared.ErrIdempotencyConflict
	}
	m.seen[key] = true
	return nil
}

func (m *memIdempotency) Delete(ctx context.Context, orgID int64, key string) error {
	delete(m.seen, key)
	return nil
}

func newTestRouter(repo *fakeRepo, store IdempotencyPort) http.Handler {
	svc := NewService(repo, testCatalog(), nil, nil)
	h := NewHandler(nil, svc, store)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postEntries(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ledger/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

const validBatch = `{"entries":[
	{"fiscalDate":"2025-03-01","debitAccountId":1,"creditAccountId":2,"amount":1000,"sourceType":"journal_entry","memo":"3月売上"}
]}`

func TestHandlerPostCreatesEntries(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	router := newTestRouter(repo, nil)

	rr := postEntries(t, router, validBatch, map[string]string{orgHeader: "10"})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var resp postResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.IDs, 1)
	assert.Len(t, repo.entries, 1)
}

func TestHandlerPostRequiresOrganizationHeader(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, nil)

	rr := postEntries(t, router, validBatch, nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestHandlerPostRejectsNonPositiveAmount(t *testing.T) {
	router := newTestRouter(&fakeRepo{}, nil)

	body := `{"entries":[{"fiscalDate":"2025-03-01","debitAccountId":1,"creditAccountId":2,"amount":0,"sourceType":"journal_entry"}]}`
	rr := postEntries(t, router, body, map[string]string{orgHeader: "10"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerPostMapsClosedPeriodToConflict(t *testing.T) {
	closed := openPeriod(1, 10)
	closed.Status = periods.StatusClosed
	repo := &fakeRepo{periods: []periods.Period{closed}}
	router := newTestRouter(repo, nil)

	rr := postEntries(t, router, validBatch, map[string]string{orgHeader: "10"})

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, repo.entries)
}

func TestHandlerPostHonoursIdempotencyKey(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	router := newTestRouter(repo, newMemIdempotency())
	headers := map[string]string{
		orgHeader:           "10",
		"X-Idempotency-Key": "4fa0a240-33d1-4a28-9c9f-1b7a36f9f001",
	}

	first := postEntries(t, router, validBatch, headers)
	second := postEntries(t, router, validBatch, headers)

	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Len(t, repo.entries, 1)
}

func TestHandlerPostReleasesKeyOnRejectedBatch(t *testing.T) {
	closed := openPeriod(1, 10)
	closed.Status = periods.StatusClosed
	repo := &fakeRepo{periods: []periods.Period{closed}}
	store := newMemIdempotency()
	router := newTestRouter(repo, store)
	headers := map[string]string{
		orgHeader:           "10",
		"X-Idempotency-Key": "4fa0a240-33d1-4a28-9c9f-1b7a36f9f002",
	}

	rr := postEntries(t, router, validBatch, headers)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, store.seen, "rejected batch must stay retryable")
}

func TestHandlerReplaceSourceRegenerates(t *testing.T) {
	repo := &fakeRepo{periods: []periods.Period{openPeriod(1, 10)}}
	router := newTestRouter(repo, nil)

	body := `{"entries":[
		{"fiscalDate":"2025-04-01","debitAccountId":3,"creditAccountId":1,"amount":1000,"sourceType":"batch_entry_net","sourceId":7},
		{"fiscalDate":"2025-04-01","debitAccountId":3,"creditAccountId":1,"amount":100,"sourceType":"batch_entry_tax","sourceId":7}
	]}`
	req := httptest.NewRequest(http.MethodPut, "/api/ledger/sources/batch_entry_net/7", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(orgHeader, "10")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, repo.entries, 2)
}
