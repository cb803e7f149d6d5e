package catalog

import (
	"context"
	"log/slog"
)

// RepositoryPort abstracts the account_items reads so reports and tests can
// substitute in-memory catalogs.
type RepositoryPort interface {
	GetAccount(ctx context.Context, orgID, accountID int64) (AccountCategory, error)
	ListAccounts(ctx context.Context, orgID int64) ([]AccountCategory, error)
	ListAccountIDs(ctx context.Context, orgID int64) ([]int64, error)
}

// Service answers classification lookups, caching results until the
// master-data screens invalidate them.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs the catalog service.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Classify resolves one account's category. Unknown accounts fail with a
// reference error; there is no fallback bucket.
func (s *Service) Classify(ctx context.Context, orgID, accountID int64) (AccountCategory, error) {
	if cat, ok := s.cache.Get(ctx, orgID, accountID); ok {
		return cat, nil
	}
	cat, err := s.repo.GetAccount(ctx, orgID, accountID)
	if err != nil {
		return AccountCategory{}, err
	}
	if canonical, aliased := CanonicalMajor(cat.MajorCategory); aliased {
		s.logger.Debug("legacy major-category alias resolved",
			slog.Int64("account_id", cat.AccountID),
			slog.String("stored", cat.MajorCategory),
			slog.String("canonical", canonical))
	}
	s.cache.Set(ctx, cat)
	return cat, nil
}

// ListAccounts returns every account category of the organization.
func (s *Service) ListAccounts(ctx context.Context, orgID int64) ([]AccountCategory, error) {
	return s.repo.ListAccounts(ctx, orgID)
}

// ListAccountIDs returns the account id set of the organization.
func (s *Service) ListAccountIDs(ctx context.Context, orgID int64) ([]int64, error) {
	return s.repo.ListAccountIDs(ctx, orgID)
}

// Invalidate drops cached classifications after master-data edits.
func (s *Service) Invalidate(ctx context.Context, orgID int64) error {
	return s.cache.Invalidate(ctx, orgID)
}

// Warm preloads every classification of the organization into the cache.
func (s *Service) Warm(ctx context.Context, orgID int64) (int, error) {
	cats, err := s.repo.ListAccounts(ctx, orgID)
	if err != nil {
		return 0, err
	}
	for _, cat := range cats {
		s.cache.Set(ctx, cat)
	}
	return len(cats), nil
}
