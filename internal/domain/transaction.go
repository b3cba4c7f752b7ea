package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindPayment    TransactionKind = "payment"
	TransactionKindAdjustment TransactionKind = "adjustment"
	TransactionKindRefund     TransactionKind = "refund"
)

// Transaction is an append-only signed monetary event against a MonthlyFee.
// Positive amounts credit the fee, negative amounts reverse a credit.
type Transaction struct {
	ID              uuid.UUID       `json:"transaction_id" db:"id"`
	FeeID           uuid.UUID       `json:"fee_id" db:"fee_id"`
	StudentID       int64           `json:"student_id" db:"student_id"`
	HostelID        int64           `json:"hostel_id" db:"hostel_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Kind            TransactionKind `json:"kind" db:"kind"`
	Reason          string          `json:"reason,omitempty" db:"reason"`
	PaymentMethod   string          `json:"payment_method,omitempty" db:"payment_method"`
	Reference       string          `json:"reference,omitempty" db:"reference"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// ParseTransactionKind accepts the kind in any letter case.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case TransactionKindPayment, TransactionKindAdjustment, TransactionKindRefund:
		return k, nil
	default:
		return "", customError.WrapInvalidTransactionKind(s)
	}
}

// NormalizeAmount validates a requested amount for kind and returns the signed amount to store.
// Amounts are rounded to cents first. Payments must be positive, refunds are
// always stored negative and adjustments keep the caller's sign.
func NormalizeAmount(kind TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = utils.RoundMoney(amount)
	switch kind {
	case TransactionKindPayment:
		if !amount.IsPositive() {
			return decimal.Zero, customError.WrapInvalidAmount(amount.String())
		}
		return amount, nil
	case TransactionKindRefund:
		if amount.IsZero() {
			return decimal.Zero, customError.WrapInvalidAmount(amount.String())
		}
		return amount.Abs().Neg(), nil
	case TransactionKindAdjustment:
		if amount.IsZero() {
			return decimal.Zero, customError.WrapInvalidAmount(amount.String())
		}
		return amount, nil
	default:
		return decimal.Zero, customError.WrapInvalidTransactionKind(string(kind))
	}
}

// RequiresReason reports whether kind must carry a reason.
func (k TransactionKind) RequiresReason() bool {
	return k == TransactionKindAdjustment || k == TransactionKindRefund
}
