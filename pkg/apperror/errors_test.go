package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("PAY_001", "Payment not found", http.StatusNotFound)
	assert.Equal(t, "[PAY_001] Payment not found", e.Error())
}

func TestAppError_Error_Wrapped(t *testing.T) {
	inner := errors.New("connection refused")
	e := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, inner)
	assert.Equal(t, "[SYS_001] Internal database error: connection refused", e.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	e := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, inner)
	assert.ErrorIs(t, e, inner)
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("handler: %w", ErrSupplyExceeded())

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LEDGER_002", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestErrorCatalog(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{ErrInvalidIPNSignature(), "SEC_001", http.StatusUnauthorized},
		{ErrPaymentNotFound(), "PAY_001", http.StatusNotFound},
		{ErrInvalidAmount(), "PAY_002", http.StatusBadRequest},
		{ErrDuplicatePayment(), "PAY_004", http.StatusConflict},
		{ErrInsufficientBalance(), "LEDGER_001", http.StatusPaymentRequired},
		{ErrSupplyExceeded(), "LEDGER_002", http.StatusConflict},
		{ErrWithdrawalNotFound(), "WDR_001", http.StatusNotFound},
		{ErrAlreadyProcessed(), "WDR_002", http.StatusConflict},
		{ErrInvalidReason(), "WDR_003", http.StatusBadRequest},
		{ErrInvalidAddress(), "WDR_004", http.StatusBadRequest},
		{ErrInvalidCredentials(), "AUTH_001", http.StatusUnauthorized},
		{ErrUsernameExists(), "AUTH_002", http.StatusConflict},
		{ErrInvalidToken(), "AUTH_003", http.StatusUnauthorized},
		{ErrAdminRequired(), "AUTH_004", http.StatusForbidden},
		{ErrInvalidReferralCode(), "AUTH_005", http.StatusBadRequest},
		{ErrRateLimitExceeded(), "RATE_001", http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.Code)
		assert.Equal(t, tc.status, tc.err.HTTPStatus)
	}
}
