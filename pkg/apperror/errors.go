package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- IPN Security (SEC) ----

func ErrInvalidIPNSignature() *AppError {
	return New("SEC_001", "Invalid IPN signature", http.StatusUnauthorized)
}

func ErrMalformedIPN(reason string) *AppError {
	return New("SEC_002", fmt.Sprintf("Malformed IPN payload: %s", reason), http.StatusBadRequest)
}

// ---- Payment & Settlement (PAY) ----

func ErrPaymentNotFound() *AppError {
	return New("PAY_001", "Payment not found", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap("PAY_003", "Payment gateway unavailable, retry is safe", http.StatusBadGateway, err)
}

func ErrDuplicatePayment() *AppError {
	return New("PAY_004", "Payment already exists for this transaction", http.StatusConflict)
}

// ---- Ledger (LEDGER) ----

func ErrInsufficientBalance() *AppError {
	return New("LEDGER_001", "Insufficient balance", http.StatusPaymentRequired)
}

// ErrSupplyExceeded is a hard stop: crediting would push the issued supply
// past the cap. Surfaced to operators — it means the token is sold out.
func ErrSupplyExceeded() *AppError {
	return New("LEDGER_002", "Token supply cap exceeded", http.StatusConflict)
}

// ---- Withdrawal Lifecycle (WDR) ----

func ErrWithdrawalNotFound() *AppError {
	return New("WDR_001", "Withdrawal not found", http.StatusNotFound)
}

func ErrAlreadyProcessed() *AppError {
	return New("WDR_002", "Withdrawal has already been processed", http.StatusConflict)
}

func ErrInvalidReason() *AppError {
	return New("WDR_003", "Rejection reason must be at least 3 characters", http.StatusBadRequest)
}

func ErrInvalidAddress() *AppError {
	return New("WDR_004", "Invalid withdrawal address", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_004", "Admin privileges required", http.StatusForbidden)
}

func ErrInvalidReferralCode() *AppError {
	return New("AUTH_005", "Unknown referral code", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error. SYS codes are
// transient from the caller's point of view: resubmitting is safe.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
