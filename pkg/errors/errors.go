package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrStudentNotEligible     = errors.New("student not eligible for billing")
	ErrDuplicatePeriodRecord  = errors.New("monthly fee already exists for period")
	ErrInconsistentLedger     = errors.New("ledger is inconsistent")
	ErrCascadeFailure         = errors.New("cascade recalculation failed")
	ErrFeeNotFound            = errors.New("monthly fee not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrStudentNotFound        = errors.New("student not found")
	ErrReasonRequired         = errors.New("reason is required")
	ErrInvalidPeriod          = errors.New("invalid period")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrRefundExceedsPaid      = errors.New("refund exceeds amount paid")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeInvalidAmount          = "INVALID_AMOUNT"
	ErrCodeStudentNotEligible     = "STUDENT_NOT_ELIGIBLE"
	ErrCodeDuplicatePeriodRecord  = "DUPLICATE_PERIOD_RECORD"
	ErrCodeInconsistentLedger     = "INCONSISTENT_LEDGER"
	ErrCodeCascadeFailure         = "CASCADE_FAILURE"
	ErrCodeFeeNotFound            = "FEE_NOT_FOUND"
	ErrCodeTransactionNotFound    = "TRANSACTION_NOT_FOUND"
	ErrCodeStudentNotFound        = "STUDENT_NOT_FOUND"
	ErrCodeReasonRequired         = "REASON_REQUIRED"
	ErrCodeInvalidPeriod          = "INVALID_PERIOD"
	ErrCodeInvalidTransactionKind = "INVALID_TRANSACTION_KIND"
	ErrCodeRefundExceedsPaid      = "REFUND_EXCEEDS_PAID"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeLockError              = "LOCK_ERROR"
)

// Code returns the business code carried by err, or "" when err is not a BusinessError.
func Code(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// Wrap common errors with business context
func WrapInvalidAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidAmount,
		fmt.Sprintf("Invalid amount: %s", amount),
		ErrInvalidAmount,
	)
}

func WrapStudentNotEligible(studentID int64, reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeStudentNotEligible,
		fmt.Sprintf("Student %d is not eligible for billing: %s", studentID, reason),
		ErrStudentNotEligible,
	)
}

func WrapDuplicatePeriodRecord(studentID int64, period string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicatePeriodRecord,
		fmt.Sprintf("Monthly fee for student %d and period %s already exists", studentID, period),
		ErrDuplicatePeriodRecord,
	)
}

func WrapInconsistentLedger(feeID string, stored, summed string) *BusinessError {
	return NewBusinessError(
		ErrCodeInconsistentLedger,
		fmt.Sprintf("Fee %s stores paid amount %s but its transactions sum to %s", feeID, stored, summed),
		ErrInconsistentLedger,
	)
}

func WrapCascadeFailure(studentID int64, period string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCascadeFailure,
		fmt.Sprintf("Cascade for student %d after period %s failed", studentID, period),
		errors.Join(ErrCascadeFailure, err),
	)
}

func WrapFeeNotFound(feeID string) *BusinessError {
	return NewBusinessError(
		ErrCodeFeeNotFound,
		fmt.Sprintf("Monthly fee with ID %s not found", feeID),
		ErrFeeNotFound,
	)
}

func WrapTransactionNotFound(transactionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTransactionNotFound,
		fmt.Sprintf("Transaction with ID %s not found", transactionID),
		ErrTransactionNotFound,
	)
}

func WrapStudentNotFound(studentID int64) *BusinessError {
	return NewBusinessError(
		ErrCodeStudentNotFound,
		fmt.Sprintf("Student with ID %d not found", studentID),
		ErrStudentNotFound,
	)
}

func WrapReasonRequired(kind string) *BusinessError {
	return NewBusinessError(
		ErrCodeReasonRequired,
		fmt.Sprintf("A reason is required for %s transactions", kind),
		ErrReasonRequired,
	)
}

func WrapInvalidPeriod(value string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPeriod,
		fmt.Sprintf("Invalid period %q, expected YYYY-MM", value),
		ErrInvalidPeriod,
	)
}

func WrapInvalidTransactionKind(kind string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTransactionKind,
		fmt.Sprintf("Invalid transaction kind %q", kind),
		ErrInvalidTransactionKind,
	)
}

func WrapRefundExceedsPaid(refund, paid string) *BusinessError {
	return NewBusinessError(
		ErrCodeRefundExceedsPaid,
		fmt.Sprintf("Refund of %s exceeds the %s paid against this fee", refund, paid),
		ErrRefundExceedsPaid,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapLockError(key string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeLockError,
		fmt.Sprintf("could not acquire lock %s", key),
		err,
	)
}
