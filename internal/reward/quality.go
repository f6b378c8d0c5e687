package reward

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quality is a parent's rating of a finished chore.
type Quality string

const (
	Failed    Quality = "failed"
	Bad       Quality = "bad"
	Good      Quality = "good"
	Excellent Quality = "excellent"
)

// Qualities lists every rating from worst to best.
var Qualities = []Quality{Failed, Bad, Good, Excellent}

var coefficients = map[Quality]decimal.Decimal{
	Failed:    decimal.Zero,
	Bad:       decimal.RequireFromString("0.5"),
	Good:      decimal.NewFromInt(1),
	Excellent: decimal.RequireFromString("1.25"),
}

// Valid reports whether q is one of the known ratings.
func (q Quality) Valid() bool {
	_, ok := coefficients[q]
	return ok
}

func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if !q.Valid() {
		return "", fmt.Errorf("unknown quality: %q", s)
	}
	return q, nil
}

// Coefficient returns the reward multiplier for q. Unknown ratings pay nothing.
func Coefficient(q Quality) decimal.Decimal {
	c, ok := coefficients[q]
	if !ok {
		return decimal.Zero
	}
	return c
}
