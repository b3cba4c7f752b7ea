package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for requests and responses

type RecordPaymentRequest struct {
	StudentID     int64           `json:"student_id" validate:"required,gt=0"`
	HostelID      int64           `json:"hostel_id" validate:"required,gt=0"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate   time.Time       `json:"payment_date"`
	Period        *Period         `json:"period,omitempty"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=50"`
	Reference     string          `json:"reference" validate:"omitempty,max=255"`
}

type RecordAdjustmentRequest struct {
	FeeID           uuid.UUID       `json:"-"`
	Amount          decimal.Decimal `json:"amount" validate:"ne=0"`
	Kind            string          `json:"kind" validate:"required"`
	Reason          string          `json:"reason" validate:"required,max=500"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reference       string          `json:"reference" validate:"omitempty,max=255"`
}

// UpdateTransactionRequest carries only the fields to change.
type UpdateTransactionRequest struct {
	TransactionID   uuid.UUID        `json:"-"`
	Amount          *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,ne=0"`
	TransactionDate *time.Time       `json:"transaction_date,omitempty"`
	Reason          *string          `json:"reason,omitempty" validate:"omitempty,max=500"`
	PaymentMethod   *string          `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	Reference       *string          `json:"reference,omitempty" validate:"omitempty,max=255"`
}

type TransactionResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	FeeID         uuid.UUID       `json:"fee_id"`
	StudentID     int64           `json:"student_id"`
	Period        Period          `json:"period"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Balance       decimal.Decimal `json:"balance"`
	Status        FeeStatus       `json:"status"`
}

func NewTransactionResult(txn *Transaction, fee *MonthlyFee) *TransactionResult {
	return &TransactionResult{
		TransactionID: txn.ID,
		FeeID:         fee.ID,
		StudentID:     fee.StudentID,
		Period:        fee.Period,
		PaidAmount:    fee.PaidAmount,
		Balance:       fee.Balance,
		Status:        fee.Status,
	}
}

type GenerationFailure struct {
	StudentID int64  `json:"student_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type GenerationResult struct {
	HostelID          int64               `json:"hostel_id"`
	Period            Period              `json:"period"`
	AlreadyGenerated  bool                `json:"already_generated"`
	StudentsProcessed int                 `json:"students_processed"`
	FeesCreated       int                 `json:"fees_created"`
	WithCarryForward  int                 `json:"with_carry_forward"`
	Failures          []GenerationFailure `json:"failures,omitempty"`
	Error             string              `json:"error,omitempty"`
}

type CarryForwardDiagnosis struct {
	StudentID            int64            `json:"student_id"`
	Period               Period           `json:"period"`
	PreviousPeriod       Period           `json:"previous_period"`
	PreviousFeeID        *uuid.UUID       `json:"previous_fee_id,omitempty"`
	PreviousTotalDue     decimal.Decimal  `json:"previous_total_due"`
	TransactionSum       decimal.Decimal  `json:"transaction_sum"`
	StoredPaidAmount     decimal.Decimal  `json:"stored_paid_amount"`
	ActualPaid           decimal.Decimal  `json:"actual_paid"`
	UsedLegacyFallback   bool             `json:"used_legacy_fallback"`
	ExpectedCarryForward decimal.Decimal  `json:"expected_carry_forward"`
	ActualStored         *decimal.Decimal `json:"actual_stored,omitempty"`
	Discrepancy          decimal.Decimal  `json:"discrepancy"`
	HasDiscrepancy       bool             `json:"has_discrepancy"`
}

type FeeVerification struct {
	FeeID            uuid.UUID       `json:"fee_id"`
	StoredPaidAmount decimal.Decimal `json:"stored_paid_amount"`
	TransactionSum   decimal.Decimal `json:"transaction_sum"`
	Drift            decimal.Decimal `json:"drift"`
	Consistent       bool            `json:"consistent"`
}

type CascadeResult struct {
	StudentID      int64    `json:"student_id"`
	ChangedPeriod  Period   `json:"changed_period"`
	Examined       int      `json:"examined"`
	Updated        int      `json:"updated"`
	UpdatedPeriods []Period `json:"updated_periods,omitempty"`
}

type RepairResult struct {
	Checked      int         `json:"checked"`
	Repaired     int         `json:"repaired"`
	Failed       int         `json:"failed"`
	Legacy       int         `json:"legacy"`
	LegacyFeeIDs []uuid.UUID `json:"legacy_fee_ids,omitempty"`
}

// CascadeRequest re-runs carry-forward propagation for a student by hand.
type CascadeRequest struct {
	FromPeriod string `json:"from_period" validate:"required,period"`
}
