package domain

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus represents the lifecycle state of a withdrawal.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "PENDING"
	WithdrawalStatusApproved WithdrawalStatus = "APPROVED"
	WithdrawalStatusRejected WithdrawalStatus = "REJECTED"
)

// Withdrawal is a user-initiated payout request. Amount and Fee are in
// micro-tokens; amount+fee is debited from the user's balance at request
// time and refunded bit-for-bit on rejection. Terminal on approve or reject.
type Withdrawal struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Amount          int64            `json:"amount"`
	Fee             int64            `json:"fee"`
	Address         string           `json:"address"`
	Status          WithdrawalStatus `json:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	ProcessedBy     *uuid.UUID       `json:"processed_by,omitempty"`
	RequestedAt     time.Time        `json:"requested_at"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
}

// IsPending returns true while the withdrawal awaits an admin decision.
func (w *Withdrawal) IsPending() bool {
	return w.Status == WithdrawalStatusPending
}

// TotalDeducted is the amount reserved from the user's balance at request
// time: the requested amount plus the fee computed from the settings in
// effect at that moment.
func (w *Withdrawal) TotalDeducted() int64 {
	return w.Amount + w.Fee
}
