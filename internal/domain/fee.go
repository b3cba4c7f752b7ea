package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/pkg/utils"
	"github.com/shopspring/decimal"
)

type FeeStatus string

const (
	FeeStatusPending       FeeStatus = "pending"
	FeeStatusPartiallyPaid FeeStatus = "partially_paid"
	FeeStatusFullyPaid     FeeStatus = "fully_paid"
)

// MonthlyFee is the ledger line for one student in one billing period.
type MonthlyFee struct {
	ID           uuid.UUID       `json:"fee_id" db:"id"`
	StudentID    int64           `json:"student_id" db:"student_id"`
	HostelID     int64           `json:"hostel_id" db:"hostel_id"`
	Period       Period          `json:"period" db:"period"`
	BaseRent     decimal.Decimal `json:"base_rent" db:"base_rent"`
	CarryForward decimal.Decimal `json:"carry_forward" db:"carry_forward"`
	TotalDue     decimal.Decimal `json:"total_due" db:"total_due"`
	PaidAmount   decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	Status       FeeStatus       `json:"status" db:"status"`
	DueDate      time.Time       `json:"due_date" db:"due_date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// NewMonthlyFee builds an unpaid fee for a period. base_rent is a snapshot and never follows later rent changes.
func NewMonthlyFee(studentID, hostelID int64, period Period, baseRent, carryForward decimal.Decimal, dueDate time.Time, now time.Time) *MonthlyFee {
	fee := &MonthlyFee{
		ID:         uuid.New(),
		StudentID:  studentID,
		HostelID:   hostelID,
		Period:     period,
		BaseRent:   baseRent,
		PaidAmount: decimal.Zero,
		DueDate:    dueDate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	fee.SetCarryForward(carryForward)
	return fee
}

// DeriveStatus applies the status rule: fully paid iff nothing is owed,
// partially paid iff something was paid and something is still owed.
func DeriveStatus(paid, balance decimal.Decimal) FeeStatus {
	switch {
	case balance.IsZero():
		return FeeStatusFullyPaid
	case paid.IsPositive():
		return FeeStatusPartiallyPaid
	default:
		return FeeStatusPending
	}
}

// SetCarryForward replaces the carried balance and recomputes total_due, balance and status.
func (f *MonthlyFee) SetCarryForward(carryForward decimal.Decimal) {
	f.CarryForward = utils.MaxZero(carryForward)
	f.TotalDue = f.BaseRent.Add(f.CarryForward)
	f.refresh()
}

// SetPaidAmount replaces the paid total and recomputes balance and status.
func (f *MonthlyFee) SetPaidAmount(paid decimal.Decimal) {
	f.PaidAmount = paid
	f.refresh()
}

func (f *MonthlyFee) refresh() {
	f.Balance = utils.MaxZero(f.TotalDue.Sub(f.PaidAmount))
	f.Status = DeriveStatus(f.PaidAmount, f.Balance)
}

// Clone returns a copy safe to mutate.
func (f *MonthlyFee) Clone() *MonthlyFee {
	c := *f
	return &c
}
