package domain

import "time"

// MicroTokens is the number of micro-token units per whole token. All token
// balances, supply counters and withdrawal amounts are held in micro-tokens.
const MicroTokens int64 = 1_000_000

// SystemSettings is the single global configuration record. CurrentSupply and
// MaxSupply are in micro-tokens; TokenPriceCents is USD cents per whole
// token; fee and commission percentages are in basis points. CurrentSupply is
// mutated only through the ledger's conditional supply bump; everything else
// is operator-managed. Invariant: CurrentSupply <= MaxSupply at all times.
type SystemSettings struct {
	CurrentSupply         int64     `json:"current_supply"`
	MaxSupply             int64     `json:"max_supply"`
	TokenPriceCents       int64     `json:"token_price_cents"`
	WithdrawFeeBps        int64     `json:"withdraw_fee_bps"`
	ReferralCommissionBps int64     `json:"referral_commission_bps"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ConvertUSDToTokens converts a USD amount in cents to micro-tokens at the
// configured token price. Pure; callers snapshot the settings before
// entering any transactional critical section.
func (s *SystemSettings) ConvertUSDToTokens(usdCents int64) int64 {
	if s.TokenPriceCents <= 0 {
		return 0
	}
	return usdCents * MicroTokens / s.TokenPriceCents
}

// WithdrawFee computes the fee for a withdrawal amount in micro-tokens.
func (s *SystemSettings) WithdrawFee(amount int64) int64 {
	return amount * s.WithdrawFeeBps / 10_000
}

// ReferralCommission computes the referrer's commission in USD cents for a
// payment of the given USD amount.
func (s *SystemSettings) ReferralCommission(usdCents int64) int64 {
	return usdCents * s.ReferralCommissionBps / 10_000
}

// Remaining returns the unissued supply in micro-tokens.
func (s *SystemSettings) Remaining() int64 {
	return s.MaxSupply - s.CurrentSupply
}
