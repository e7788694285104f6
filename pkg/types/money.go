package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CentsFromDecimal converts a major-unit amount to minor units, rounding half away from zero.
func CentsFromDecimal(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// ParseCents parses a major-unit string such as "7.58" into cents.
func ParseCents(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("money: empty amount")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", trimmed, err)
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("money: negative amount %q", trimmed)
	}
	return CentsFromDecimal(amount), nil
}
