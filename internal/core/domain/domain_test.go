package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status PaymentStatus
		want   bool
	}{
		{"pending", PaymentStatusPending, false},
		{"partial", PaymentStatusPartial, false},
		{"completed", PaymentStatusCompleted, true},
		{"failed", PaymentStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   PaymentStatus
		to     PaymentStatus
		want   bool
	}{
		{"pending to partial", PaymentStatusPending, PaymentStatusPartial, true},
		{"pending to completed", PaymentStatusPending, PaymentStatusCompleted, true},
		{"pending to failed", PaymentStatusPending, PaymentStatusFailed, true},
		{"partial to completed", PaymentStatusPartial, PaymentStatusCompleted, true},
		{"partial to failed", PaymentStatusPartial, PaymentStatusFailed, true},
		{"partial to partial", PaymentStatusPartial, PaymentStatusPartial, false},
		{"completed to anything", PaymentStatusCompleted, PaymentStatusFailed, false},
		{"failed to completed", PaymentStatusFailed, PaymentStatusCompleted, false},
		{"pending to pending", PaymentStatusPending, PaymentStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		want PaymentStatus
	}{
		{"waiting", 0, PaymentStatusPending},
		{"partially confirmed sentinel", 1, PaymentStatusPartial},
		{"confirmed sentinel", 2, PaymentStatusCompleted},
		{"complete", 100, PaymentStatusCompleted},
		{"above complete", 101, PaymentStatusCompleted},
		{"error", -1, PaymentStatusFailed},
		{"timeout", -2, PaymentStatusFailed},
		{"unknown intermediate", 5, PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapGatewayStatus(tt.code))
		})
	}
}

func TestSystemSettings_ConvertUSDToTokens(t *testing.T) {
	s := &SystemSettings{TokenPriceCents: 100} // 1 USD per token

	// 20 USD at 1.00/token = 20 tokens
	assert.Equal(t, 20*MicroTokens, s.ConvertUSDToTokens(2000))
	// 2 USD commission = 2 tokens
	assert.Equal(t, 2*MicroTokens, s.ConvertUSDToTokens(200))

	// 0.05 USD per token: 20 USD = 400 tokens
	s.TokenPriceCents = 5
	assert.Equal(t, 400*MicroTokens, s.ConvertUSDToTokens(2000))

	// Unset price converts to nothing rather than dividing by zero.
	s.TokenPriceCents = 0
	assert.Zero(t, s.ConvertUSDToTokens(2000))
}

func TestSystemSettings_WithdrawFee(t *testing.T) {
	s := &SystemSettings{WithdrawFeeBps: 200} // 2%

	// 50 tokens -> 1 token fee
	assert.Equal(t, 1*MicroTokens, s.WithdrawFee(50*MicroTokens))
	assert.Zero(t, s.WithdrawFee(0))
}

func TestSystemSettings_ReferralCommission(t *testing.T) {
	s := &SystemSettings{ReferralCommissionBps: 1000} // 10%

	// 20 USD -> 2 USD commission
	assert.Equal(t, int64(200), s.ReferralCommission(2000))
}

func TestWithdrawal_TotalDeducted(t *testing.T) {
	w := &Withdrawal{Amount: 50 * MicroTokens, Fee: 1 * MicroTokens}
	assert.Equal(t, 51*MicroTokens, w.TotalDeducted())
	assert.True(t, (&Withdrawal{Status: WithdrawalStatusPending}).IsPending())
	assert.False(t, (&Withdrawal{Status: WithdrawalStatusRejected}).IsPending())
}
