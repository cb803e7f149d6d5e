package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/choubo-app/choubo/internal/catalog"
	jobmetrics "github.com/choubo-app/choubo/internal/jobs"
	"github.com/choubo-app/choubo/internal/observability"
	"github.com/choubo-app/choubo/internal/periods"
	"github.com/choubo-app/choubo/internal/reports"
)

// PeriodSource lists the organizations and open periods to scan.
type PeriodSource interface {
	ListOrgIDs(ctx context.Context) ([]int64, error)
	ListOpen(ctx context.Context, orgID int64) ([]periods.Period, error)
}

// ReportBuilder assembles the report the identity is checked against.
type ReportBuilder interface {
	BuildReport(ctx context.Context, orgID, periodID int64) (reports.Report, error)
}

// LedgerIntegrityJob verifies, per open period, that the balance-sheet
// movement equals the profit-and-loss net income. A mismatch means a
// stored entry or opening row violates the double-entry invariant.
type LedgerIntegrityJob struct {
	periods PeriodSource
	builder ReportBuilder
	logger  *slog.Logger
	metrics *observability.Metrics
	runs    *jobmetrics.Metrics
}

// NewLedgerIntegrityJob constructs the job.
func NewLedgerIntegrityJob(periodSrc PeriodSource, builder ReportBuilder, logger *slog.Logger, metrics *observability.Metrics, runs *jobmetrics.Metrics) *LedgerIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerIntegrityJob{periods: periodSrc, builder: builder, logger: logger, metrics: metrics, runs: runs}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	return j.runs.Track(TaskLedgerIntegrity).End(j.handle(ctx, t))
}

func (j *LedgerIntegrityJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload LedgerIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	orgIDs := []int64{payload.OrganizationID}
	if payload.OrganizationID == 0 {
		var err error
		orgIDs, err = j.periods.ListOrgIDs(ctx)
		if err != nil {
			return err
		}
	}
	for _, orgID := range orgIDs {
		if err := j.scanOrg(ctx, orgID); err != nil {
			return err
		}
	}
	return nil
}

func (j *LedgerIntegrityJob) scanOrg(ctx context.Context, orgID int64) error {
	open, err := j.periods.ListOpen(ctx, orgID)
	if err != nil {
		return err
	}
	for _, period := range open {
		diff, err := j.checkPeriod(ctx, orgID, period)
		if err != nil {
			j.logger.Error("integrity scan failed",
				slog.Int64("organization_id", orgID),
				slog.Int64("fiscal_period_id", period.ID),
				slog.Any("error", err))
			continue
		}
		j.metrics.SetLedgerImbalance(orgID, period.ID, diff)
		if diff != 0 {
			j.logger.Error("trial balance identity violated",
				slog.Int64("organization_id", orgID),
				slog.Int64("fiscal_period_id", period.ID),
				slog.Int64("imbalance", diff))
		} else {
			j.logger.Info("ledger integrity verified",
				slog.Int64("organization_id", orgID),
				slog.Int64("fiscal_period_id", period.ID))
		}
	}
	return nil
}

// checkPeriod returns the gap between the balance-sheet movement and the
// profit-and-loss net income; zero means the period balances.
func (j *LedgerIntegrityJob) checkPeriod(ctx context.Context, orgID int64, period periods.Period) (int64, error) {
	report, err := j.builder.BuildReport(ctx, orgID, period.ID)
	if err != nil {
		return 0, err
	}
	var bsNet int64
	for _, b := range report.FlatBalances {
		if !b.Category.IsBalanceSheet() {
			continue
		}
		side, ok := catalog.NormalSideFor(b.Category)
		if !ok {
			continue
		}
		movement := b.Closing - b.Opening
		if side == catalog.NormalSideDebit {
			bsNet += movement
		} else {
			bsNet -= movement
		}
	}
	return bsNet - report.Waterfall.NetIncome, nil
}
