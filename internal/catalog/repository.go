package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/choubo-app/choubo/internal/ledger/shared"
)

// Repository reads account classification rows from account_items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, organization_id, account_name, major_category, mid_category, sub_category, pl_category, display_rank`

// GetAccount fetches one account's category. Unknown ids are a hard
// reference error, never a default bucket.
func (r *Repository) GetAccount(ctx context.Context, orgID, accountID int64) (AccountCategory, error) {
	var cat AccountCategory
	err := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM account_items WHERE organization_id=$1 AND id=$2`, orgID, accountID).
		Scan(&cat.AccountID, &cat.OrgID, &cat.AccountName, &cat.MajorCategory, &cat.MidCategory, &cat.SubCategory, &cat.PLCategory, &cat.DisplayRank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountCategory{}, shared.ReferenceError(accountID, "account not in catalog")
		}
		return AccountCategory{}, fmt.Errorf("catalog: get account: %w", err)
	}
	return cat, nil
}

// ListAccounts returns every account of the organization.
func (r *Repository) ListAccounts(ctx context.Context, orgID int64) ([]AccountCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM account_items WHERE organization_id=$1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list accounts: %w", err)
	}
	defer rows.Close()
	var cats []AccountCategory
	for rows.Next() {
		var cat AccountCategory
		if err := rows.Scan(&cat.AccountID, &cat.OrgID, &cat.AccountName, &cat.MajorCategory, &cat.MidCategory, &cat.SubCategory, &cat.PLCategory, &cat.DisplayRank); err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

// ListAccountIDs returns the id set the report assembler aggregates over.
func (r *Repository) ListAccountIDs(ctx context.Context, orgID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM account_items WHERE organization_id=$1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list account ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
