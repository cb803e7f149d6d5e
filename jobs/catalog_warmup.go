package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/choubo-app/choubo/internal/jobs"
)

// CatalogWarmer preloads an organization's classifications into the cache.
type CatalogWarmer interface {
	Warm(ctx context.Context, orgID int64) (int, error)
}

// CatalogWarmupJob refreshes the classification cache so the first report
// of the day does not pay the cold-start penalty.
type CatalogWarmupJob struct {
	catalog CatalogWarmer
	periods PeriodSource
	logger  *slog.Logger
	runs    *jobmetrics.Metrics
}

// NewCatalogWarmupJob constructs the job.
func NewCatalogWarmupJob(cat CatalogWarmer, periodSrc PeriodSource, logger *slog.Logger, runs *jobmetrics.Metrics) *CatalogWarmupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogWarmupJob{catalog: cat, periods: periodSrc, logger: logger, runs: runs}
}

// Handle processes TaskCatalogWarmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	return j.runs.Track(TaskCatalogWarmup).End(j.handle(ctx, t))
}

func (j *CatalogWarmupJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload CatalogWarmupPayload
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
		n, err := j.catalog.Warm(ctx, orgID)
		if err != nil {
			j.logger.Warn("catalog warmup failed",
				slog.Int64("organization_id", orgID),
				slog.Any("error", err))
			continue
		}
		j.logger.Info("catalog cache warmed",
			slog.Int64("organization_id", orgID),
			slog.Int("accounts", n))
	}
	return nil
}
