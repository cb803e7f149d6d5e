package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/observability"
	"github.com/choubo-app/choubo/internal/periods"
	"github.com/choubo-app/choubo/internal/reports"

	_ "github.com/choubo-app/choubo/testing"
)

type stubPeriods struct {
	orgs []int64
	open map[int64][]periods.Period
}

func (s stubPeriods) ListOrgIDs(ctx context.Context) ([]int64, error) {
	return s.orgs, nil
}

func (s stubPeriods) ListOpen(ctx context.Context, orgID int64) ([]periods.Period, error) {
	return s.open[orgID], nil
}

type stubBuilder struct {
	report reports.Report
	calls  int
}

func (s *stubBuilder) BuildReport(ctx context.Context, orgID, periodID int64) (reports.Report, error) {
	s.calls++
	return s.report, nil
}

func openPeriod(id, orgID int64) periods.Period {
	return periods.Period{
		ID: id, OrgID: orgID, Code: "FY2025",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    periods.StatusOpen,
	}
}

func cashBalance(opening, closing int64) reports.AccountBalance {
	return reports.AccountBalance{
		AccountID: 1,
		Category:  catalog.AccountCategory{AccountID: 1, AccountName: "現金", MajorCategory: "資産", MidCategory: "流動資産", SubCategory: "現金及び預金"},
		Opening:   opening,
		Closing:   closing,
	}
}

func TestLedgerIntegrityPublishesImbalance(t *testing.T) {
	// Cash moved 1300 but the waterfall only explains 1000: imbalance 300.
	builder := &stubBuilder{report: reports.Report{
		FlatBalances: []reports.AccountBalance{cashBalance(100, 1400)},
		Waterfall:    reports.Waterfall{NetIncome: 1000},
	}}
	metrics := observability.NewMetrics()
	job := NewLedgerIntegrityJob(stubPeriods{
		orgs: []int64{10},
		open: map[int64][]periods.Period{10: {openPeriod(1, 10)}},
	}, builder, nil, metrics, nil)

	task, err := NewLedgerIntegrityTask(LedgerIntegrityPayload{})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if builder.calls != 1 {
		t.Fatalf("expected 1 report build, got %d", builder.calls)
	}

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "choubo_ledger_imbalance_minor_units{fiscal_period_id=\"1\",organization_id=\"10\"} 300") {
		t.Fatalf("expected imbalance gauge 300, got: %s", rr.Body.String())
	}
}

func TestLedgerIntegrityScopedToOneOrganization(t *testing.T) {
	builder := &stubBuilder{report: reports.Report{
		FlatBalances: []reports.AccountBalance{cashBalance(0, 500)},
		Waterfall:    reports.Waterfall{NetIncome: 500},
	}}
	job := NewLedgerIntegrityJob(stubPeriods{
		orgs: []int64{10, 11},
		open: map[int64][]periods.Period{
			10: {openPeriod(1, 10)},
			11: {openPeriod(2, 11)},
		},
	}, builder, nil, observability.NewMetrics(), nil)

	task, err := NewLedgerIntegrityTask(LedgerIntegrityPayload{OrganizationID: 11})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := job.Handle(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if builder.calls != 1 {
		t.Fatalf("expected only the requested organization scanned, got %d builds", builder.calls)
	}
}

func TestLedgerIntegritySkipsMalformedPayload(t *testing.T) {
	job := NewLedgerIntegrityJob(stubPeriods{}, &stubBuilder{}, nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskLedgerIntegrity, []byte("{broken")))
	if err != asynq.SkipRetry {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
