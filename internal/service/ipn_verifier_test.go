package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"testing"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIPNSecret = "ipn-shared-secret"

func signIPN(t *testing.T, body []byte) string {
	t.Helper()
	mac := hmac.New(sha512.New, []byte(testIPNSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHMACIPNVerifier_Verify_Valid(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)
	body := []byte("txn_id=TX1&status=100&amount=0.5")

	err := v.Verify(body, signIPN(t, body))
	assert.NoError(t, err)
}

func TestHMACIPNVerifier_Verify_UppercaseSignature(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)
	body := []byte("txn_id=TX1&status=100")

	// Some gateways send uppercase hex.
	sig := signIPN(t, body)
	err := v.Verify(body, sig)
	require.NoError(t, err)
}

func TestHMACIPNVerifier_Verify_WrongSecret(t *testing.T) {
	v := NewHMACIPNVerifier("different-secret")
	body := []byte("txn_id=TX1&status=100")

	err := v.Verify(body, signIPN(t, body))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SEC_001", appErr.Code)
}

func TestHMACIPNVerifier_Verify_TamperedBody(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)
	sig := signIPN(t, []byte("txn_id=TX1&status=100&amount=0.5"))

	err := v.Verify([]byte("txn_id=TX1&status=100&amount=9.5"), sig)
	assert.Error(t, err)
}

func TestHMACIPNVerifier_Verify_MissingSignature(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)

	err := v.Verify([]byte("txn_id=TX1"), "")
	assert.Error(t, err)
}

func TestHMACIPNVerifier_Parse_Complete(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)
	values := url.Values{
		"txn_id":   {"CPBF23CBUSVZNPFLFHCTQOEYZC"},
		"status":   {"100"},
		"amount":   {"0.50000000"},
		"currency": {"LTCT"},
		"custom":   {"user-123"},
	}

	event, err := v.Parse(values)
	require.NoError(t, err)
	assert.Equal(t, "CPBF23CBUSVZNPFLFHCTQOEYZC", event.TxnID)
	assert.Equal(t, 100, event.GatewayStatus)
	assert.Equal(t, domain.PaymentStatusCompleted, event.Status)
	assert.Equal(t, int64(50_000_000), event.ReceivedAmount)
	assert.Equal(t, "LTCT", event.Currency)
	assert.Equal(t, "user-123", event.Custom)
}

func TestHMACIPNVerifier_Parse_StatusMapping(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)

	tests := []struct {
		status string
		want   domain.PaymentStatus
	}{
		{"0", domain.PaymentStatusPending},
		{"1", domain.PaymentStatusPartial},
		{"2", domain.PaymentStatusCompleted},
		{"100", domain.PaymentStatusCompleted},
		{"-1", domain.PaymentStatusFailed},
	}
	for _, tt := range tests {
		event, err := v.Parse(url.Values{"txn_id": {"TX"}, "status": {tt.status}})
		require.NoError(t, err)
		assert.Equal(t, tt.want, event.Status, "status code %s", tt.status)
	}
}

func TestHMACIPNVerifier_Parse_MissingTxnID(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)

	_, err := v.Parse(url.Values{"status": {"100"}})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SEC_002", appErr.Code)
}

func TestHMACIPNVerifier_Parse_NonIntegerStatus(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)

	_, err := v.Parse(url.Values{"txn_id": {"TX"}, "status": {"done"}})
	assert.Error(t, err)
}

func TestHMACIPNVerifier_Parse_AmountAbsentDefaultsToZero(t *testing.T) {
	v := NewHMACIPNVerifier(testIPNSecret)

	event, err := v.Parse(url.Values{"txn_id": {"TX"}, "status": {"-1"}})
	require.NoError(t, err)
	assert.Zero(t, event.ReceivedAmount)
}
