package dto

import (
	"time"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username     string  `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password     string  `json:"password" binding:"required,min=8,max=128"`
	ReferralCode *string `json:"referral_code,omitempty" binding:"omitempty,referral_code"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// InitiatePaymentRequest is the request body for opening a token purchase.
// AmountUSD is in cents; Currency is the crypto the buyer will pay with.
type InitiatePaymentRequest struct {
	AmountUSD int64  `json:"amount_usd" binding:"required,gt=0"`
	Currency  string `json:"currency" binding:"required,min=3,max=5,uppercase"`
}

// PaymentResponse is the response body for a payment record.
type PaymentResponse struct {
	ID             string `json:"id"`
	TxnID          string `json:"txn_id"`
	AmountUSD      int64  `json:"amount_usd"`
	Currency       string `json:"currency"`
	CryptoAmount   int64  `json:"crypto_amount"`
	ReceivedAmount int64  `json:"received_amount"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// PaymentListResponse wraps a paginated payment list.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// BalanceResponse is the response for a balance query. Token amounts are in
// micro-tokens, the price in cents per whole token.
type BalanceResponse struct {
	Balance         int64 `json:"balance"`
	CurrentSupply   int64 `json:"current_supply"`
	MaxSupply       int64 `json:"max_supply"`
	TokenPriceCents int64 `json:"token_price_cents"`
}

// LedgerEntryResponse is one ledger line in history output.
type LedgerEntryResponse struct {
	ID         string `json:"id"`
	EntryType  string `json:"entry_type"`
	Amount     int64  `json:"amount"`
	Status     string `json:"status"`
	ExternalID string `json:"external_id"`
	CreatedAt  string `json:"created_at"`
}

// LedgerListResponse wraps a paginated ledger history.
type LedgerListResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// WithdrawRequest is the request body for a withdrawal. Amount is in
// micro-tokens; the fee on top comes from system settings.
type WithdrawRequest struct {
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	Address string `json:"address" binding:"required,crypto_address"`
}

// RejectWithdrawalRequest is the admin request body for rejecting a
// withdrawal.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// WithdrawalResponse is the response body for a withdrawal record.
type WithdrawalResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Amount          int64   `json:"amount"`
	Fee             int64   `json:"fee"`
	Address         string  `json:"address"`
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	RequestedAt     string  `json:"requested_at"`
	ProcessedAt     *string `json:"processed_at,omitempty"`
}

// WithdrawalListResponse wraps a paginated withdrawal list.
type WithdrawalListResponse struct {
	Items      []WithdrawalResponse `json:"items"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// FromPayment maps a domain payment to its response shape.
func FromPayment(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID.String(),
		TxnID:          p.TxnID,
		AmountUSD:      p.AmountUSD,
		Currency:       p.Currency,
		CryptoAmount:   p.CryptoAmount,
		ReceivedAmount: p.ReceivedAmount,
		Status:         string(p.Status),
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromBalance maps the balance read model to its response shape.
func FromBalance(b *ports.BalanceInfo) BalanceResponse {
	return BalanceResponse{
		Balance:         b.Balance,
		CurrentSupply:   b.CurrentSupply,
		MaxSupply:       b.MaxSupply,
		TokenPriceCents: b.TokenPriceCents,
	}
}

// FromLedgerEntry maps a domain ledger entry to its response shape.
func FromLedgerEntry(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:         e.ID.String(),
		EntryType:  string(e.EntryType),
		Amount:     e.Amount,
		Status:     string(e.Status),
		ExternalID: e.ExternalID.String(),
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromWithdrawal maps a domain withdrawal to its response shape.
func FromWithdrawal(w *domain.Withdrawal) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:              w.ID.String(),
		UserID:          w.UserID.String(),
		Amount:          w.Amount,
		Fee:             w.Fee,
		Address:         w.Address,
		Status:          string(w.Status),
		RejectionReason: w.RejectionReason,
		RequestedAt:     w.RequestedAt.UTC().Format(time.RFC3339),
	}
	if w.ProcessedAt != nil {
		s := w.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}

// TotalPages computes the page count for a paginated response.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}
