package ports

import (
	"context"
	"net/url"
	"time"

	"token-sale-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// IPNVerifier validates and normalizes inbound gateway notifications.
// Verify recomputes the MAC over the raw body and compares in constant time;
// Parse maps the form fields into a SettlementEvent. Both are side-effect
// free.
type IPNVerifier interface {
	Verify(rawBody []byte, signature string) error
	Parse(values url.Values) (*domain.SettlementEvent, error)
}

// PaymentService owns payment initiation and the settlement state machine.
type PaymentService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*domain.Payment, error)
	// Settle applies a verified settlement event. Replayed events on a
	// terminal payment return a successful no-op result.
	Settle(ctx context.Context, event *domain.SettlementEvent) (*SettlementResult, error)
	List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error)
}

// InitiateRequest holds validated input for payment initiation.
type InitiateRequest struct {
	UserID    uuid.UUID
	AmountUSD int64 // cents
	Currency  string
}

// SettlementResult reports what a settlement application did.
type SettlementResult struct {
	Payment        *domain.Payment
	Replay         bool  // terminal-state no-op
	TokensCredited int64 // micro-tokens credited to the payer
	CommissionPaid int64 // micro-tokens credited to the referrer
}

// WithdrawalService owns the withdrawal request/approve/reject lifecycle.
type WithdrawalService interface {
	Request(ctx context.Context, req WithdrawRequest) (*domain.Withdrawal, error)
	Approve(ctx context.Context, withdrawalID, adminID uuid.UUID) (*domain.Withdrawal, error)
	Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, reason string) (*domain.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Withdrawal, int64, error)
	ListPending(ctx context.Context, page, pageSize int) ([]domain.Withdrawal, int64, error)
}

// WithdrawRequest holds validated input for a withdrawal request.
type WithdrawRequest struct {
	UserID  uuid.UUID
	Amount  int64 // micro-tokens
	Address string
}

// WalletService exposes balance and ledger history reads.
type WalletService interface {
	Balance(ctx context.Context, userID uuid.UUID) (*BalanceInfo, error)
	History(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// BalanceInfo is the balance read model, including global supply stats.
type BalanceInfo struct {
	Balance         int64
	CurrentSupply   int64
	MaxSupply       int64
	TokenPriceCents int64
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Username     string
	Password     string
	ReferralCode *string // code of the referring user, if any
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// GatewayClient is the narrow interface to the external payment gateway's
// transaction API. The raw protocol client (request signing, rate lookup)
// lives behind it.
type GatewayClient interface {
	CreateTransaction(ctx context.Context, req GatewayTxRequest) (*GatewayTxResponse, error)
}

// GatewayTxRequest asks the gateway to open a crypto payment.
type GatewayTxRequest struct {
	AmountUSD int64 // cents
	Currency  string
	BuyerID   string
}

// GatewayTxResponse is the gateway's reply to a transaction request.
type GatewayTxResponse struct {
	TxnID        string
	Address      string
	CryptoAmount int64 // 1e-8 units
	Timeout      time.Duration
}

// ReplayCache is a best-effort fast path for deduplicating repeated IPN
// deliveries. The payment row's terminal state remains the authoritative
// idempotency guard; a cache miss or error just falls through to the DB.
type ReplayCache interface {
	// Seen marks (txnID, status) and reports whether it was already marked.
	Seen(ctx context.Context, txnID string, gatewayStatus int, ttl time.Duration) (bool, error)
}
