package ports

import (
	"context"

	"token-sale-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for users.
// Balance mutations take a pgx.Tx and run as single conditional statements so
// the check and the write are one atomic step.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	// CreditBalance adds amount (micro-tokens) to the user's balance.
	CreditBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error
	// DebitBalance subtracts amount only if balance >= amount.
	// Returns false without mutation when funds are insufficient.
	DebitBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) (bool, error)
}

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByTxnID(ctx context.Context, txnID string) (*domain.Payment, error)
	// GetByTxnIDForUpdate locks the payment row; concurrent settlement
	// attempts for the same txn_id serialize here.
	GetByTxnIDForUpdate(ctx context.Context, tx pgx.Tx, txnID string) (*domain.Payment, error)
	// UpdateSettlement records the outcome of a settlement transition.
	UpdateSettlement(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus, receivedAmount int64, referralPaid bool) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error)
}

// LedgerRepository defines persistence for the append-only ledger.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// ReverseByExternalID flips the entry for an originating record to
	// REVERSED (used when a withdrawal is rejected).
	ReverseByExternalID(ctx context.Context, tx pgx.Tx, externalID uuid.UUID) error
	ListByUser(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	UserID    uuid.UUID
	EntryType *domain.EntryType
	Page      int
	PageSize  int
}

// WithdrawalRepository defines persistence operations for withdrawals.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	// GetByIDForUpdate locks the withdrawal row so concurrent admin
	// decisions serialize.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error)
	// UpdateDecision records the terminal admin decision.
	UpdateDecision(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Withdrawal, int64, error)
	ListPending(ctx context.Context, page, pageSize int) ([]domain.Withdrawal, int64, error)
}

// SettingsRepository manages the single global settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SystemSettings, error)
	// BumpSupply adds delta to current_supply only if the cap holds.
	// Returns false without mutation when the bump would exceed max_supply.
	// The settings row write-lock serializes concurrent issuance globally.
	BumpSupply(ctx context.Context, tx pgx.Tx, delta int64) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
