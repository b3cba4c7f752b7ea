package utils

import (
	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the smallest money difference treated as a real change.
var DefaultEpsilon = decimal.New(1, -2)

// MaxZero clamps negative amounts to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// RoundMoney rounds to 2 decimal places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Differs reports whether a and b are more than epsilon apart.
func Differs(a, b, epsilon decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(epsilon)
}
