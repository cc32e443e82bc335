package postgres

import (
	"context"
	"fmt"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are append-only;
// the only permitted mutation is flipping status to REVERSED.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends a ledger entry within a transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, user_id, entry_type, amount, status, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, e.EntryType, e.Amount, e.Status, e.ExternalID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ReverseByExternalID marks the entries of an originating record REVERSED.
func (r *LedgerRepo) ReverseByExternalID(ctx context.Context, tx pgx.Tx, externalID uuid.UUID) error {
	query := `UPDATE ledger_entries SET status = $1 WHERE external_id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, domain.EntryStatusReversed, externalID, domain.EntryStatusCompleted)
	if err != nil {
		return fmt.Errorf("reverse ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no completed ledger entry for external id: %s", externalID)
	}
	return nil
}

// ListByUser returns the user's ledger entries, newest first, optionally
// filtered by entry type.
func (r *LedgerRepo) ListByUser(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	where := `WHERE user_id = $1`
	args := []any{params.UserID}
	if params.EntryType != nil {
		where += ` AND entry_type = $2`
		args = append(args, *params.EntryType)
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM ledger_entries %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	argIdx := len(args) + 1
	query := fmt.Sprintf(`SELECT id, user_id, entry_type, amount, status, external_id, created_at
		FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.Status, &e.ExternalID, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, total, nil
}
