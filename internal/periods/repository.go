package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const periodColumns = `id, organization_id, code, start_date, end_date, status, created_at, updated_at`

// Repository reads fiscal_periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches one period by id.
func (r *Repository) Get(ctx context.Context, orgID, periodID int64) (Period, error) {
	var p Period
	err := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE organization_id=$1 AND id=$2`, orgID, periodID).
		Scan(&p.ID, &p.OrgID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNotFound
		}
		return Period{}, fmt.Errorf("periods: get: %w", err)
	}
	return p, nil
}

// FindByDate returns the period covering the supplied date.
func (r *Repository) FindByDate(ctx context.Context, orgID int64, date time.Time) (Period, error) {
	var p Period
	err := r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE organization_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, orgID, date).
		Scan(&p.ID, &p.OrgID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNotFound
		}
		return Period{}, fmt.Errorf("periods: find by date: %w", err)
	}
	return p, nil
}

// ListOpen returns the open periods of the organization, oldest first.
func (r *Repository) ListOpen(ctx context.Context, orgID int64) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE organization_id=$1 AND status='OPEN' ORDER BY start_date`, orgID)
	if err != nil {
		return nil, fmt.Errorf("periods: list open: %w", err)
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListOrgIDs returns every organization owning at least one period. The
// integrity job iterates this set.
func (r *Repository) ListOrgIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT organization_id FROM fiscal_periods ORDER BY organization_id`)
	if err != nil {
		return nil, fmt.Errorf("periods: list orgs: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
