package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/pkg/apperror"
)

// HMACIPNVerifier implements ports.IPNVerifier using HMAC-SHA512 over the
// raw request body, the scheme the gateway uses for its IPN callbacks.
type HMACIPNVerifier struct {
	secret []byte
}

// NewHMACIPNVerifier creates an IPN verifier bound to the shared IPN secret.
func NewHMACIPNVerifier(secret string) *HMACIPNVerifier {
	return &HMACIPNVerifier{secret: []byte(secret)}
}

// Verify recomputes HMAC-SHA512(secret, rawBody) and compares it against the
// hex signature from the HMAC header in constant time. The body must be the
// exact bytes the gateway signed; any re-encoding breaks the MAC.
func (v *HMACIPNVerifier) Verify(rawBody []byte, signature string) error {
	if signature == "" {
		return apperror.ErrInvalidIPNSignature()
	}
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return apperror.ErrInvalidIPNSignature()
	}
	return nil
}

// Parse maps the gateway's form fields into a SettlementEvent. txn_id and
// status are mandatory; amount defaults to zero when absent (the gateway
// omits it on failure notifications).
func (v *HMACIPNVerifier) Parse(values url.Values) (*domain.SettlementEvent, error) {
	txnID := values.Get("txn_id")
	if txnID == "" {
		return nil, apperror.ErrMalformedIPN("missing txn_id")
	}

	rawStatus := values.Get("status")
	if rawStatus == "" {
		return nil, apperror.ErrMalformedIPN("missing status")
	}
	code, err := strconv.Atoi(rawStatus)
	if err != nil {
		return nil, apperror.ErrMalformedIPN(fmt.Sprintf("status %q is not an integer", rawStatus))
	}

	received, err := domain.ParseCryptoAmount(values.Get("amount"))
	if err != nil {
		return nil, apperror.ErrMalformedIPN(fmt.Sprintf("amount %q: %v", values.Get("amount"), err))
	}

	return &domain.SettlementEvent{
		TxnID:          txnID,
		GatewayStatus:  code,
		Status:         domain.MapGatewayStatus(code),
		ReceivedAmount: received,
		Currency:       values.Get("currency"),
		Custom:         values.Get("custom"),
	}, nil
}
