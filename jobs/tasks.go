// Package jobs holds the asynq background tasks: the nightly ledger
// integrity scan and the catalog cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity verifies the trial balance identity per open period.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskCatalogWarmup preloads account classifications into the cache.
	TaskCatalogWarmup = "catalog:warmup"
)

// LedgerIntegrityPayload scopes an integrity scan. A zero organization id
// scans every organization.
type LedgerIntegrityPayload struct {
	OrganizationID int64 `json:"organizationId"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// CatalogWarmupPayload scopes a cache warmup. A zero organization id warms
// every organization.
type CatalogWarmupPayload struct {
	OrganizationID int64 `json:"organizationId"`
}

// NewCatalogWarmupTask constructs the warmup task.
func NewCatalogWarmupTask(payload CatalogWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}
