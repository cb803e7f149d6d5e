package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/choubo-app/choubo/internal/periods"
	"github.com/choubo-app/choubo/internal/platform/db"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available inside a posting
// transaction. Period lookups live here so the period row can be locked for
// the duration of the batch.
type TxRepository interface {
	InsertEntry(ctx context.Context, orgID int64, in EntryInput) (Entry, error)
	DeleteBySource(ctx context.Context, orgID int64, types []SourceType, sourceID int64) (int64, error)
	FindPeriodByDateForUpdate(ctx context.Context, orgID int64, date time.Time) (periods.Period, error)
}

const entryColumns = `id, organization_id, fiscal_date, debit_account_id, credit_account_id, amount, source_type, source_id, memo, created_at, updated_at`

// Repository persists ledger entries and opening balances.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, orgID int64, in EntryInput) (Entry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (organization_id, fiscal_date, debit_account_id, credit_account_id, amount, source_type, source_id, memo)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		orgID, in.FiscalDate, in.DebitAccountID, in.CreditAccountID, in.Amount, in.SourceType, in.SourceID, in.Memo)
	entry := Entry{
		OrgID:           orgID,
		FiscalDate:      in.FiscalDate,
		DebitAccountID:  in.DebitAccountID,
		CreditAccountID: in.CreditAccountID,
		Amount:          in.Amount,
		SourceType:      in.SourceType,
		SourceID:        in.SourceID,
		Memo:            in.Memo,
	}
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return Entry{}, fmt.Errorf("ledger: insert entry (%s): %w", pgErr.Code, err)
		}
		return Entry{}, fmt.Errorf("ledger: insert entry: %w", err)
	}
	return entry, nil
}

func (r *txRepository) DeleteBySource(ctx context.Context, orgID int64, types []SourceType, sourceID int64) (int64, error) {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM ledger_entries
WHERE organization_id=$1 AND source_type = ANY($2) AND source_id=$3`, orgID, sourceTypeStrings(types), sourceID)
	if err != nil {
		return 0, fmt.Errorf("ledger: delete by source: %w", err)
	}
	return cmd.RowsAffected(), nil
}

func (r *txRepository) FindPeriodByDateForUpdate(ctx context.Context, orgID int64, date time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.tx.QueryRow(ctx, `SELECT id, organization_id, code, start_date, end_date, status, created_at, updated_at
FROM fiscal_periods WHERE organization_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, orgID, date).
		Scan(&p.ID, &p.OrgID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, periods.ErrNotFound
		}
		return periods.Period{}, fmt.Errorf("ledger: find period: %w", err)
	}
	return p, nil
}

// EntriesInRange returns entries touching any of the accounts inside the
// window, ordered by (fiscal_date, id). A nil account set means no filter.
func (r *Repository) EntriesInRange(ctx context.Context, orgID int64, accountIDs []int64, start, end time.Time) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
WHERE organization_id=$1 AND fiscal_date >= $2 AND fiscal_date <= $3`
	args := []any{orgID, start, end}
	if accountIDs != nil {
		query += ` AND (debit_account_id = ANY($4) OR credit_account_id = ANY($4))`
		args = append(args, accountIDs)
	}
	query += ` ORDER BY fiscal_date, id`
	return r.queryEntries(ctx, query, args...)
}

// EntriesBefore returns entries dated strictly before the given date,
// ordered by (fiscal_date, id). Used to derive opening balances.
func (r *Repository) EntriesBefore(ctx context.Context, orgID int64, accountIDs []int64, before time.Time) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
WHERE organization_id=$1 AND fiscal_date < $2`
	args := []any{orgID, before}
	if accountIDs != nil {
		query += ` AND (debit_account_id = ANY($3) OR credit_account_id = ANY($3))`
		args = append(args, accountIDs)
	}
	query += ` ORDER BY fiscal_date, id`
	return r.queryEntries(ctx, query, args...)
}

// EntriesBySource returns the stored derived set of one source family.
func (r *Repository) EntriesBySource(ctx context.Context, orgID int64, types []SourceType, sourceID int64) ([]Entry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE organization_id=$1 AND source_type = ANY($2) AND source_id=$3 ORDER BY fiscal_date, id`,
		orgID, sourceTypeStrings(types), sourceID)
}

func (r *Repository) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OrgID, &e.FiscalDate, &e.DebitAccountID, &e.CreditAccountID, &e.Amount, &e.SourceType, &e.SourceID, &e.Memo, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OpeningBalances returns the stored opening rows of a period keyed by
// account id.
func (r *Repository) OpeningBalances(ctx context.Context, orgID, periodID int64) (map[int64]OpeningBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT organization_id, fiscal_period_id, account_id, debit_amount, credit_amount
FROM opening_balances WHERE organization_id=$1 AND fiscal_period_id=$2`, orgID, periodID)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening balances: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]OpeningBalance)
	for rows.Next() {
		var ob OpeningBalance
		if err := rows.Scan(&ob.OrgID, &ob.PeriodID, &ob.AccountID, &ob.DebitAmount, &ob.CreditAmount); err != nil {
			return nil, err
		}
		out[ob.AccountID] = ob
	}
	return out, rows.Err()
}

// UpsertOpeningBalance stores one opening row; the period setup screen
// calls this per account.
func (r *Repository) UpsertOpeningBalance(ctx context.Context, ob OpeningBalance) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO opening_balances (organization_id, fiscal_period_id, account_id, debit_amount, credit_amount)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (organization_id, fiscal_period_id, account_id)
DO UPDATE SET debit_amount=EXCLUDED.debit_amount, credit_amount=EXCLUDED.credit_amount, updated_at=NOW()`,
		ob.OrgID, ob.PeriodID, ob.AccountID, ob.DebitAmount, ob.CreditAmount)
	if err != nil {
		return fmt.Errorf("ledger: upsert opening balance: %w", err)
	}
	return nil
}

func sourceTypeStrings(types []SourceType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
