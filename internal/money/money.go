// Package money formats and parses amounts held in integer cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Format renders cents as a dollar string, e.g. 1250 -> "$12.50".
func Format(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Parse reads a user-entered amount ("12", "12.5", "$12.50") into cents.
// More than two fractional digits is rejected rather than rounded.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, fmt.Errorf("%w: more than two decimal places", ErrInvalidAmount)
	}

	cents := d.Shift(2).IntPart()
	if neg {
		cents = -cents
	}
	return cents, nil
}
