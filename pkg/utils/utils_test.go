package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMaxZero(t *testing.T) {
	tests := []struct {
		name     string
		input    decimal.Decimal
		expected decimal.Decimal
	}{
		{name: "positive stays", input: decimal.NewFromInt(2000), expected: decimal.NewFromInt(2000)},
		{name: "zero stays", input: decimal.Zero, expected: decimal.Zero},
		{name: "overpayment clamps", input: decimal.NewFromInt(-150), expected: decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaxZero(tt.input)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestDiffers(t *testing.T) {
	tests := []struct {
		name     string
		a        decimal.Decimal
		b        decimal.Decimal
		expected bool
	}{
		{name: "equal", a: decimal.NewFromInt(5000), b: decimal.NewFromInt(5000), expected: false},
		{name: "within epsilon", a: decimal.RequireFromString("5000.005"), b: decimal.NewFromInt(5000), expected: false},
		{name: "exactly epsilon", a: decimal.RequireFromString("5000.01"), b: decimal.NewFromInt(5000), expected: false},
		{name: "beyond epsilon", a: decimal.RequireFromString("5000.02"), b: decimal.NewFromInt(5000), expected: true},
		{name: "negative direction", a: decimal.NewFromInt(0), b: decimal.NewFromInt(2000), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Differs(tt.a, tt.b, DefaultEpsilon))
		})
	}
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "33.33", RoundMoney(decimal.NewFromInt(100).Div(decimal.NewFromInt(3))).StringFixed(2))
	assert.True(t, RoundMoney(decimal.RequireFromString("0.004")).IsZero())
}
