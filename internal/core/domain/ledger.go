package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType represents the kind of balance movement.
type EntryType string

const (
	EntryTypeDeposit            EntryType = "DEPOSIT"
	EntryTypeReferralCommission EntryType = "REFERRAL_COMMISSION"
	EntryTypeWithdrawal         EntryType = "WITHDRAWAL"
)

// EntryStatus represents the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusReversed  EntryStatus = "REVERSED"
)

// LedgerEntry is an append-only record of a single balance change.
// Amount is signed, in micro-tokens: credits positive, debits negative.
// ExternalID links back to the originating Payment or Withdrawal.
// Invariant: the sum of COMPLETED entry amounts for a user equals that
// user's current balance.
type LedgerEntry struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	EntryType  EntryType   `json:"entry_type"`
	Amount     int64       `json:"amount"`
	Status     EntryStatus `json:"status"`
	ExternalID uuid.UUID   `json:"external_id"`
	CreatedAt  time.Time   `json:"created_at"`
}
