package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger/shared"
	"github.com/choubo-app/choubo/internal/periods"
	internalShared "github.com/choubo-app/choubo/internal/shared"
)

// CatalogPort resolves account classifications during validation.
type CatalogPort interface {
	Classify(ctx context.Context, orgID, accountID int64) (catalog.AccountCategory, error)
}

// AuditPort records ledger mutations for compliance.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service coordinates posting and derived-set regeneration.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, cat CatalogPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, catalog: cat, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Post validates and persists a batch of entries all-or-nothing. Entries
// dated outside any known period are accepted (historical import); entries
// landing in a closed period reject the whole batch.
func (s *Service) Post(ctx context.Context, orgID int64, inputs []EntryInput) ([]int64, error) {
	if len(inputs) == 0 {
		return nil, shared.Validationf("empty posting batch")
	}
	if err := s.validateBatch(ctx, orgID, inputs); err != nil {
		return nil, err
	}

	var ids []int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range inputs {
			if err := s.guardPeriod(ctx, tx, orgID, in.FiscalDate); err != nil {
				return err
			}
			entry, err := tx.InsertEntry(ctx, orgID, in)
			if err != nil {
				return err
			}
			ids = append(ids, entry.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, orgID, "ledger.post", fmt.Sprintf("%d", ids[0]), map[string]any{
		"count": len(ids),
	})
	return ids, nil
}

// ReplaceDerivedSet atomically swaps the stored derived set of one source
// record for newEntries. An empty newEntries deletes the set, which is how
// source deletion propagates. Calling twice with the same entries leaves
// the same stored set.
func (s *Service) ReplaceDerivedSet(ctx context.Context, orgID int64, sourceType SourceType, sourceID int64, newEntries []EntryInput) ([]int64, error) {
	if !sourceType.Known() {
		return nil, shared.Validationf("unknown source type %q", sourceType)
	}
	if sourceID == 0 {
		return nil, shared.Validationf("source id required")
	}
	family := sourceType.Family()
	for i, in := range newEntries {
		if !inFamily(family, in.SourceType) {
			return nil, shared.Validationf("entry %d source type %q outside family of %q", i, in.SourceType, sourceType)
		}
		if in.SourceID == nil || *in.SourceID != sourceID {
			return nil, shared.Validationf("entry %d source id must be %d", i, sourceID)
		}
	}
	if err := s.validateBatch(ctx, orgID, newEntries); err != nil {
		return nil, err
	}

	var ids []int64
	var removed int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		removed, err = tx.DeleteBySource(ctx, orgID, family, sourceID)
		if err != nil {
			return err
		}
		for _, in := range newEntries {
			if err := s.guardPeriod(ctx, tx, orgID, in.FiscalDate); err != nil {
				return err
			}
			entry, err := tx.InsertEntry(ctx, orgID, in)
			if err != nil {
				return err
			}
			ids = append(ids, entry.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, orgID, "ledger.replace_derived_set", fmt.Sprintf("%s:%d", sourceType, sourceID), map[string]any{
		"removed":  removed,
		"inserted": len(ids),
	})
	return ids, nil
}

// validateBatch applies per-entry validation and account resolution before
// anything touches storage, so a failing batch persists nothing.
func (s *Service) validateBatch(ctx context.Context, orgID int64, inputs []EntryInput) error {
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if _, err := s.catalog.Classify(ctx, orgID, in.DebitAccountID); err != nil {
			return err
		}
		if _, err := s.catalog.Classify(ctx, orgID, in.CreditAccountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) guardPeriod(ctx context.Context, tx TxRepository, orgID int64, date time.Time) error {
	period, err := tx.FindPeriodByDateForUpdate(ctx, orgID, date)
	if err != nil {
		if errors.Is(err, periods.ErrNotFound) {
			return nil
		}
		return err
	}
	if period.Status == periods.StatusClosed {
		return shared.StateError(period.ID, fmt.Sprintf("period %s is closed", period.Code))
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, orgID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		OrgID:    orgID,
		Action:   action,
		Entity:   "ledger_entry",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func inFamily(family []SourceType, t SourceType) bool {
	for _, f := range family {
		if f == t {
			return true
		}
	}
	return false
}
