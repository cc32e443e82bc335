package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CryptoUnit is the number of 1e-8 sub-units per whole crypto coin.
const CryptoUnit int64 = 100_000_000

// ParseCryptoAmount converts a decimal coin amount string (e.g. "0.50000000")
// to 1e-8 units. Decimal string arithmetic avoids float rounding on money;
// precision beyond 8 places is truncated.
func ParseCryptoAmount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid whole part in amount %q", s)
	}
	f := int64(0)
	if frac != "" {
		if len(frac) > 8 {
			frac = frac[:8]
		}
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional part in amount %q", s)
		}
	}
	return w*CryptoUnit + f, nil
}

// FormatUSDCents renders cents as a dollar string ("2050" -> "20.50"), the
// form the gateway API expects.
func FormatUSDCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
