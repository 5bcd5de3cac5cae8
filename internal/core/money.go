package core

import (
	"strings"

	"github.com/shopspring/decimal"

	"homesplit/internal/settle"
)

// ParseAmount reads a positive amount written with either a dot (12.34) or a
// comma (12,34) as decimal separator. It is rounded half up to two places.
// Zero, negative and malformed values return ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	v = v.Round(settle.Places)
	if !v.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}

// ValidateAmount rejects non-positive amounts and amounts with sub-cent
// precision.
func ValidateAmount(v decimal.Decimal) error {
	if !v.IsPositive() || !v.Equal(v.Round(settle.Places)) {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders v with exactly two decimals.
func FormatAmount(v decimal.Decimal) string {
	return v.StringFixed(settle.Places)
}
