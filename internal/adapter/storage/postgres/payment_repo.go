package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, txn_id, user_id, amount_usd, currency, crypto_amount, received_amount,
		status, referral_commission_usd, referral_paid, created_at, updated_at`

// Create inserts a new payment. The unique index on txn_id turns a
// duplicate gateway transaction into ErrDuplicatePayment.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (id, txn_id, user_id, amount_usd, currency, crypto_amount, received_amount,
		status, referral_commission_usd, referral_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.TxnID, p.UserID, p.AmountUSD, p.Currency,
		p.CryptoAmount, p.ReceivedAmount, p.Status,
		p.ReferralCommissionUSD, p.ReferralPaid, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.ErrDuplicatePayment()
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByTxnID fetches a payment by gateway transaction id (non-locking read).
func (r *PaymentRepo) GetByTxnID(ctx context.Context, txnID string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE txn_id = $1`, paymentColumns)
	return r.scanPayment(r.pool.QueryRow(ctx, query, txnID))
}

// GetByTxnIDForUpdate fetches a payment by txn_id with pessimistic locking.
// This MUST be called within a transaction.
func (r *PaymentRepo) GetByTxnIDForUpdate(ctx context.Context, tx pgx.Tx, txnID string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE txn_id = $1 FOR UPDATE`, paymentColumns)
	return r.scanPayment(tx.QueryRow(ctx, query, txnID))
}

// UpdateSettlement records a settlement transition within a transaction.
func (r *PaymentRepo) UpdateSettlement(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, receivedAmount int64, referralPaid bool) error {
	query := `UPDATE payments SET status = $1, received_amount = $2, referral_paid = $3, updated_at = NOW()
		WHERE id = $4`

	tag, err := tx.Exec(ctx, query, status, receivedAmount, referralPaid, id)
	if err != nil {
		return fmt.Errorf("update payment settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// ListByUser returns the user's payments, newest first, with a total count.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, paymentColumns)

	rows, err := r.pool.Query(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID, &p.TxnID, &p.UserID, &p.AmountUSD, &p.Currency,
			&p.CryptoAmount, &p.ReceivedAmount, &p.Status,
			&p.ReferralCommissionUSD, &p.ReferralPaid, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, total, nil
}

func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.TxnID, &p.UserID, &p.AmountUSD, &p.Currency,
		&p.CryptoAmount, &p.ReceivedAmount, &p.Status,
		&p.ReferralCommissionUSD, &p.ReferralPaid, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
