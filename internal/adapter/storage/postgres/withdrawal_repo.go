package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-sale-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, user_id, amount, fee, address, status, rejection_reason, processed_by, requested_at, processed_at`

// Create inserts a new withdrawal within a transaction; it shares the
// transaction of the balance debit so the reservation is atomic.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	query := `INSERT INTO withdrawals (id, user_id, amount, fee, address, status, rejection_reason, processed_by, requested_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.Amount, w.Fee, w.Address, w.Status,
		w.RejectionReason, w.ProcessedBy, w.RequestedAt, w.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal by UUID (non-locking read).
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := fmt.Sprintf(`SELECT %s FROM withdrawals WHERE id = $1`, withdrawalColumns)
	return r.scanWithdrawal(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a withdrawal by UUID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WithdrawalRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	query := fmt.Sprintf(`SELECT %s FROM withdrawals WHERE id = $1 FOR UPDATE`, withdrawalColumns)
	return r.scanWithdrawal(tx.QueryRow(ctx, query, id))
}

// UpdateDecision records the terminal admin decision within a transaction.
func (r *WithdrawalRepo) UpdateDecision(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	query := `UPDATE withdrawals SET status = $1, rejection_reason = $2, processed_by = $3, processed_at = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query, w.Status, w.RejectionReason, w.ProcessedBy, w.ProcessedAt, w.ID)
	if err != nil {
		return fmt.Errorf("update withdrawal decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("withdrawal not found: %s", w.ID)
	}
	return nil
}

// ListByUser returns the user's withdrawals, newest first, with a total count.
func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count withdrawals: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM withdrawals WHERE user_id = $1
		ORDER BY requested_at DESC LIMIT $2 OFFSET $3`, withdrawalColumns)

	return r.listWithTotal(ctx, query, total, userID, pageSize, (page-1)*pageSize)
}

// ListPending returns all withdrawals awaiting a decision, oldest first so
// admins work the queue in arrival order.
func (r *WithdrawalRepo) ListPending(ctx context.Context, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawals WHERE status = $1`, domain.WithdrawalStatusPending).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending withdrawals: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM withdrawals WHERE status = $1
		ORDER BY requested_at ASC LIMIT $2 OFFSET $3`, withdrawalColumns)

	return r.listWithTotal(ctx, query, total, domain.WithdrawalStatusPending, pageSize, (page-1)*pageSize)
}

func (r *WithdrawalRepo) listWithTotal(ctx context.Context, query string, total int64, args ...any) ([]domain.Withdrawal, int64, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var ws []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.Fee, &w.Address, &w.Status,
			&w.RejectionReason, &w.ProcessedBy, &w.RequestedAt, &w.ProcessedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan withdrawal: %w", err)
		}
		ws = append(ws, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate withdrawals: %w", err)
	}
	return ws, total, nil
}

func (r *WithdrawalRepo) scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	w := &domain.Withdrawal{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.Fee, &w.Address, &w.Status,
		&w.RejectionReason, &w.ProcessedBy, &w.RequestedAt, &w.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	return w, nil
}
