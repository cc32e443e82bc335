package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPartial   PaymentStatus = "PARTIAL"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// IsTerminal returns true if no further transition out of the status is
// permitted. A settlement event arriving in a terminal state is a no-op.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from s
// to target. Valid: PENDING->PARTIAL, PENDING->COMPLETED, PENDING->FAILED,
// PARTIAL->COMPLETED, PARTIAL->FAILED.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch target {
	case PaymentStatusCompleted, PaymentStatusFailed:
		return true
	case PaymentStatusPartial:
		return s == PaymentStatusPending
	default:
		return false
	}
}

// Gateway status sentinels, in addition to the numeric ranges below.
// New sentinels are added here without touching the settlement engine.
var gatewayStatusSentinels = map[int]PaymentStatus{
	1: PaymentStatusPartial,   // partially confirmed
	2: PaymentStatusCompleted, // confirmed
}

// MapGatewayStatus maps the gateway's numeric status code to a settlement
// state. Pure function: sentinel table first, then status >= 100 is
// completed, status < 0 is failed, 0 and everything else is pending.
func MapGatewayStatus(code int) PaymentStatus {
	if s, ok := gatewayStatusSentinels[code]; ok {
		return s
	}
	switch {
	case code >= 100:
		return PaymentStatusCompleted
	case code < 0:
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}

// Payment is one record per gateway-issued transaction id. AmountUSD and
// ReferralCommissionUSD are in cents; CryptoAmount and ReceivedAmount are in
// 1e-8 units of the crypto currency. Immutable once terminal, except the
// ReferralPaid flag which is set exactly once.
type Payment struct {
	ID                    uuid.UUID     `json:"id"`
	TxnID                 string        `json:"txn_id"`
	UserID                uuid.UUID     `json:"user_id"`
	AmountUSD             int64         `json:"amount_usd"`
	Currency              string        `json:"currency"`
	CryptoAmount          int64         `json:"crypto_amount"`
	ReceivedAmount        int64         `json:"received_amount"`
	Status                PaymentStatus `json:"status"`
	ReferralCommissionUSD int64         `json:"referral_commission_usd"`
	ReferralPaid          bool          `json:"referral_paid"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// SettlementEvent is a verified, normalized IPN notification.
// Status is the mapped settlement state; GatewayStatus keeps the raw code
// for logging. ReceivedAmount is in 1e-8 crypto units.
type SettlementEvent struct {
	TxnID          string
	GatewayStatus  int
	Status         PaymentStatus
	ReceivedAmount int64
	Currency       string
	Custom         string
}
