package domain

import (
	"testing"
	"time"

	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		paid     int64
		balance  int64
		expected FeeStatus
	}{
		{name: "nothing paid", paid: 0, balance: 5000, expected: FeeStatusPending},
		{name: "part paid", paid: 3000, balance: 2000, expected: FeeStatusPartiallyPaid},
		{name: "settled", paid: 5000, balance: 0, expected: FeeStatusFullyPaid},
		{name: "zero due", paid: 0, balance: 0, expected: FeeStatusFullyPaid},
		{name: "net negative paid", paid: -100, balance: 5100, expected: FeeStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveStatus(decimal.NewFromInt(tt.paid), decimal.NewFromInt(tt.balance)))
		})
	}
}

func TestNewMonthlyFee(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	due := MustParsePeriod("2025-01").DueDate(15)

	fee := NewMonthlyFee(7, 1, MustParsePeriod("2025-01"), decimal.NewFromInt(5000), decimal.NewFromInt(2000), due, now)

	assert.True(t, fee.TotalDue.Equal(decimal.NewFromInt(7000)))
	assert.True(t, fee.Balance.Equal(decimal.NewFromInt(7000)))
	assert.True(t, fee.PaidAmount.IsZero())
	assert.Equal(t, FeeStatusPending, fee.Status)

	free := NewMonthlyFee(8, 1, MustParsePeriod("2025-01"), decimal.Zero, decimal.Zero, due, now)
	assert.Equal(t, FeeStatusFullyPaid, free.Status)
}

func TestMonthlyFee_SetPaidAmount(t *testing.T) {
	fee := NewMonthlyFee(7, 1, MustParsePeriod("2025-01"), decimal.NewFromInt(5000), decimal.Zero, time.Now(), time.Now())

	fee.SetPaidAmount(decimal.NewFromInt(3000))
	assert.True(t, fee.Balance.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, FeeStatusPartiallyPaid, fee.Status)

	fee.SetPaidAmount(decimal.NewFromInt(6000))
	assert.True(t, fee.Balance.IsZero(), "overpayment is absorbed")
	assert.Equal(t, FeeStatusFullyPaid, fee.Status)
}

func TestMonthlyFee_SetCarryForward(t *testing.T) {
	fee := NewMonthlyFee(7, 1, MustParsePeriod("2025-02"), decimal.NewFromInt(5000), decimal.NewFromInt(2000), time.Now(), time.Now())
	fee.SetPaidAmount(decimal.NewFromInt(5000))
	assert.Equal(t, FeeStatusPartiallyPaid, fee.Status)

	fee.SetCarryForward(decimal.Zero)
	assert.True(t, fee.TotalDue.Equal(decimal.NewFromInt(5000)))
	assert.True(t, fee.Balance.IsZero())
	assert.Equal(t, FeeStatusFullyPaid, fee.Status)

	fee.SetCarryForward(decimal.NewFromInt(-10))
	assert.True(t, fee.CarryForward.IsZero())
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name     string
		kind     TransactionKind
		amount   int64
		expected int64
		wantErr  error
	}{
		{name: "payment positive", kind: TransactionKindPayment, amount: 3000, expected: 3000},
		{name: "payment zero", kind: TransactionKindPayment, amount: 0, wantErr: customError.ErrInvalidAmount},
		{name: "payment negative", kind: TransactionKindPayment, amount: -5, wantErr: customError.ErrInvalidAmount},
		{name: "refund positive becomes negative", kind: TransactionKindRefund, amount: 1000, expected: -1000},
		{name: "refund negative stays negative", kind: TransactionKindRefund, amount: -1000, expected: -1000},
		{name: "refund zero", kind: TransactionKindRefund, amount: 0, wantErr: customError.ErrInvalidAmount},
		{name: "adjustment keeps positive", kind: TransactionKindAdjustment, amount: 200, expected: 200},
		{name: "adjustment keeps negative", kind: TransactionKindAdjustment, amount: -200, expected: -200},
		{name: "adjustment zero", kind: TransactionKindAdjustment, amount: 0, wantErr: customError.ErrInvalidAmount},
		{name: "unknown kind", kind: "bonus", amount: 10, wantErr: customError.ErrInvalidTransactionKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAmount(tt.kind, decimal.NewFromInt(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.expected)), "got %s", got)
		})
	}
}

func TestNormalizeAmount_RoundsToCents(t *testing.T) {
	got, err := NormalizeAmount(TransactionKindPayment, decimal.RequireFromString("10.005"))
	assert.NoError(t, err)
	assert.Equal(t, "10.01", got.StringFixed(2))

	_, err = NormalizeAmount(TransactionKindPayment, decimal.RequireFromString("0.004"))
	assert.ErrorIs(t, err, customError.ErrInvalidAmount)
}

func TestParseTransactionKind(t *testing.T) {
	k, err := ParseTransactionKind("REFUND")
	assert.NoError(t, err)
	assert.Equal(t, TransactionKindRefund, k)
	assert.True(t, k.RequiresReason())
	assert.False(t, TransactionKindPayment.RequiresReason())

	_, err = ParseTransactionKind("gift")
	assert.ErrorIs(t, err, customError.ErrInvalidTransactionKind)
}

func TestStudent_CheckEligible(t *testing.T) {
	room := int64(12)
	rent := decimal.NewNullDecimal(decimal.NewFromInt(5000))

	tests := []struct {
		name    string
		student Student
		wantErr bool
	}{
		{name: "eligible", student: Student{ID: 1, IsActive: true, RoomID: &room, MonthlyRent: rent}},
		{name: "inactive", student: Student{ID: 2, IsActive: false, RoomID: &room, MonthlyRent: rent}, wantErr: true},
		{name: "no room", student: Student{ID: 3, IsActive: true, MonthlyRent: rent}, wantErr: true},
		{name: "no rent", student: Student{ID: 4, IsActive: true, RoomID: &room}, wantErr: true},
		{name: "negative rent", student: Student{ID: 5, IsActive: true, RoomID: &room, MonthlyRent: decimal.NewNullDecimal(decimal.NewFromInt(-1))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.student.CheckEligible()
			if tt.wantErr {
				assert.ErrorIs(t, err, customError.ErrStudentNotEligible)
				assert.Equal(t, customError.ErrCodeStudentNotEligible, customError.Code(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
