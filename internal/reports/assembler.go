package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/choubo-app/choubo/internal/periods"
)

// PeriodSource resolves fiscal periods.
type PeriodSource interface {
	Get(ctx context.Context, orgID, periodID int64) (periods.Period, error)
}

// AccountSource lists the organization's account id set.
type AccountSource interface {
	ListAccountIDs(ctx context.Context, orgID int64) ([]int64, error)
}

// Report bundles the artifacts of one aggregation pass. The tree, the
// waterfall and the flat balances come from the same pass, so they are
// consistent with one another by construction.
type Report struct {
	PeriodID     int64            `json:"fiscalPeriodId"`
	PeriodCode   string           `json:"fiscalPeriodCode"`
	GeneratedAt  time.Time        `json:"generatedAt"`
	BSTree       Tree             `json:"bsTree"`
	Waterfall    Waterfall        `json:"waterfall"`
	FlatBalances []AccountBalance `json:"flatBalances"`
}

// Assembler is the top-level report entry point.
type Assembler struct {
	periods  PeriodSource
	accounts AccountSource
	agg      *Aggregator
	logger   *slog.Logger
	now      func() time.Time
}

// NewAssembler constructs Assembler.
func NewAssembler(periodSrc PeriodSource, accounts AccountSource, agg *Aggregator, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{periods: periodSrc, accounts: accounts, agg: agg, logger: logger, now: time.Now}
}

// BuildReport resolves the period and account set, aggregates once, and
// runs both builders over the same balance slice.
func (a *Assembler) BuildReport(ctx context.Context, orgID, periodID int64) (Report, error) {
	started := a.now()
	period, err := a.periods.Get(ctx, orgID, periodID)
	if err != nil {
		return Report{}, err
	}
	accountIDs, err := a.accounts.ListAccountIDs(ctx, orgID)
	if err != nil {
		return Report{}, err
	}
	balances, err := a.agg.Aggregate(ctx, orgID, period, accountIDs)
	if err != nil {
		return Report{}, err
	}
	waterfall, err := BuildWaterfall(balances)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		PeriodID:     period.ID,
		PeriodCode:   period.Code,
		GeneratedAt:  a.now(),
		BSTree:       BuildTree(balances),
		Waterfall:    waterfall,
		FlatBalances: balances,
	}
	a.logger.Debug("report assembled",
		slog.Int64("organization_id", orgID),
		slog.Int64("fiscal_period_id", periodID),
		slog.Int("accounts", len(balances)),
		slog.Duration("took", a.now().Sub(started)))
	return report, nil
}
