package domain

import (
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/shopspring/decimal"
)

// Student is the slice of a hostel resident the ledger reads. It is owned elsewhere.
type Student struct {
	ID          int64               `json:"student_id" db:"id"`
	HostelID    int64               `json:"hostel_id" db:"hostel_id"`
	RoomID      *int64              `json:"room_id,omitempty" db:"room_id"`
	MonthlyRent decimal.NullDecimal `json:"monthly_rent" db:"monthly_rent"`
	IsActive    bool                `json:"is_active" db:"is_active"`
}

// CheckEligible returns a StudentNotEligible error when no fee may be generated for s.
func (s *Student) CheckEligible() error {
	switch {
	case !s.IsActive:
		return customError.WrapStudentNotEligible(s.ID, "student is inactive")
	case s.RoomID == nil:
		return customError.WrapStudentNotEligible(s.ID, "no room assigned")
	case !s.MonthlyRent.Valid:
		return customError.WrapStudentNotEligible(s.ID, "no monthly rent assigned")
	case s.MonthlyRent.Decimal.IsNegative():
		return customError.WrapStudentNotEligible(s.ID, "monthly rent is negative: "+s.MonthlyRent.Decimal.String())
	}
	return nil
}
