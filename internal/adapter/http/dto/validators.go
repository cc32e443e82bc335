package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeIDRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

	// Referral codes are generated from an unambiguous uppercase alphabet
	// (no 0/O, 1/I/L).
	referralCodeRe = regexp.MustCompile(`^[A-HJKMNP-Z2-9]{8}$`)

	// cryptoAddressRe is a broad shape check only: base58 / bech32 / hex
	// characters within plausible length bounds. Real validity is decided
	// by the payout operator at approval time.
	cryptoAddressRe = regexp.MustCompile(`^[a-zA-Z0-9]{20,100}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("referral_code", validateReferralCode)
		_ = v.RegisterValidation("crypto_address", validateCryptoAddress)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeIDRe.MatchString(fl.Field().String())
}

func validateReferralCode(fl validator.FieldLevel) bool {
	return referralCodeRe.MatchString(fl.Field().String())
}

func validateCryptoAddress(fl validator.FieldLevel) bool {
	return cryptoAddressRe.MatchString(fl.Field().String())
}
