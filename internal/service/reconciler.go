package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordPayment credits a payment to the student's fee for the requested period,
// creating that fee on first use. paid_amount is recomputed from the full
// transaction sum, and later periods are cascaded once the payment is committed.
func (s *LedgerService) RecordPayment(ctx context.Context, req *domain.RecordPaymentRequest) (*domain.TransactionResult, error) {
	amount, err := domain.NormalizeAmount(domain.TransactionKindPayment, req.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	period := domain.PeriodOf(now)
	if req.Period != nil && !req.Period.IsZero() {
		period = *req.Period
	}
	paidAt := req.PaymentDate
	if paidAt.IsZero() {
		paidAt = now
	}

	var result *domain.TransactionResult
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		fee, err := s.findOrCreateFee(ctx, tx, req.StudentID, req.HostelID, period)
		if err != nil {
			return err
		}

		txn := &domain.Transaction{
			ID:              uuid.New(),
			Amount:          amount,
			Kind:            domain.TransactionKindPayment,
			PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
			Reference:       strings.TrimSpace(req.Reference),
			TransactionDate: paidAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		result, err = s.applyTransaction(ctx, tx, fee.ID, txn, domain.AuditActionPaymentRecorded)
		return err
	})
	if err != nil {
		return nil, asBusinessError(err)
	}

	s.logger.Info("payment recorded",
		zap.Int64("student_id", result.StudentID),
		zap.Stringer("period", result.Period),
		zap.Stringer("transaction_id", result.TransactionID),
		zap.String("amount", amount.String()),
		zap.String("status", string(result.Status)),
	)

	s.scheduleCascade(result.StudentID, req.HostelID, result.Period)
	return result, nil
}

// RecordAdjustment applies a signed adjustment or a refund to an existing fee.
// Both need a reason, and neither may take the fee's transaction sum below zero.
func (s *LedgerService) RecordAdjustment(ctx context.Context, req *domain.RecordAdjustmentRequest) (*domain.TransactionResult, error) {
	kind, err := domain.ParseTransactionKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if !kind.RequiresReason() {
		return nil, customError.WrapInvalidTransactionKind(req.Kind)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, customError.WrapReasonRequired(string(kind))
	}

	amount, err := domain.NormalizeAmount(kind, req.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := req.TransactionDate
	if date.IsZero() {
		date = now
	}

	var (
		result   *domain.TransactionResult
		hostelID int64
	)
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		txn := &domain.Transaction{
			ID:              uuid.New(),
			Amount:          amount,
			Kind:            kind,
			Reason:          reason,
			Reference:       strings.TrimSpace(req.Reference),
			TransactionDate: date,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		var err error
		result, err = s.applyTransaction(ctx, tx, req.FeeID, txn, domain.AuditActionAdjustmentRecorded)
		hostelID = txn.HostelID
		return err
	})
	if err != nil {
		return nil, asBusinessError(err)
	}

	s.logger.Info("adjustment recorded",
		zap.String("kind", string(kind)),
		zap.Stringer("fee_id", result.FeeID),
		zap.String("amount", amount.String()),
		zap.String("status", string(result.Status)),
	)

	s.scheduleCascade(result.StudentID, hostelID, result.Period)
	return result, nil
}

// UpdateTransaction rewrites a transaction and recomputes its fee from the full transaction sum.
func (s *LedgerService) UpdateTransaction(ctx context.Context, req *domain.UpdateTransactionRequest) (*domain.TransactionResult, error) {
	var (
		result *domain.TransactionResult
		txn    *domain.Transaction
	)
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		txn, err = tx.Transactions().GetByID(ctx, req.TransactionID)
		if err != nil {
			return transactionLookupError(req.TransactionID, err)
		}
		before := *txn

		if req.Amount != nil {
			amount, err := domain.NormalizeAmount(txn.Kind, *req.Amount)
			if err != nil {
				return err
			}
			txn.Amount = amount
		}
		if req.Reason != nil {
			txn.Reason = strings.TrimSpace(*req.Reason)
		}
		if txn.Kind.RequiresReason() && txn.Reason == "" {
			return customError.WrapReasonRequired(string(txn.Kind))
		}
		if req.TransactionDate != nil && !req.TransactionDate.IsZero() {
			txn.TransactionDate = *req.TransactionDate
		}
		if req.PaymentMethod != nil {
			txn.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
		}
		if req.Reference != nil {
			txn.Reference = strings.TrimSpace(*req.Reference)
		}
		txn.UpdatedAt = s.now()

		if err := tx.Transactions().Update(ctx, txn); err != nil {
			return transactionLookupError(txn.ID, err)
		}

		fee, err := s.recalculate(ctx, tx, txn.FeeID, domain.AuditActionTransactionUpdated)
		if err != nil {
			return err
		}
		if err := s.requireCovered(ctx, tx, fee); err != nil {
			return err
		}

		entry := domain.NewAuditEntry(domain.AuditEntityTransaction, txn.ID.String(), domain.AuditActionTransactionUpdated, s.now(),
			domain.WithOld(before),
			domain.WithNew(txn),
		)
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return err
		}

		result = domain.NewTransactionResult(txn, fee)
		return nil
	})
	if err != nil {
		return nil, asBusinessError(err)
	}

	s.logger.Info("transaction updated", zap.Stringer("transaction_id", txn.ID), zap.Stringer("fee_id", txn.FeeID))
	s.scheduleCascade(result.StudentID, txn.HostelID, result.Period)
	return result, nil
}

// DeleteTransaction removes a transaction and recomputes its fee from what remains.
func (s *LedgerService) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.TransactionResult, error) {
	var (
		result *domain.TransactionResult
		txn    *domain.Transaction
	)
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		txn, err = tx.Transactions().GetByID(ctx, transactionID)
		if err != nil {
			return transactionLookupError(transactionID, err)
		}

		if err := tx.Transactions().Delete(ctx, transactionID); err != nil {
			return transactionLookupError(transactionID, err)
		}

		fee, err := s.recalculate(ctx, tx, txn.FeeID, domain.AuditActionTransactionDeleted)
		if err != nil {
			return err
		}
		if err := s.requireCovered(ctx, tx, fee); err != nil {
			return err
		}

		entry := domain.NewAuditEntry(domain.AuditEntityTransaction, txn.ID.String(), domain.AuditActionTransactionDeleted, s.now(),
			domain.WithOld(txn),
		)
		if err := tx.Audit().Append(ctx, entry); err != nil {
			return err
		}

		result = domain.NewTransactionResult(txn, fee)
		return nil
	})
	if err != nil {
		return nil, asBusinessError(err)
	}

	s.logger.Info("transaction deleted", zap.Stringer("transaction_id", transactionID), zap.Stringer("fee_id", txn.FeeID))
	s.scheduleCascade(result.StudentID, txn.HostelID, result.Period)
	return result, nil
}

// RecalculateFeeTotals resets a fee's paid_amount, balance and status from its
// transactions. Running it again without new transactions changes nothing.
func (s *LedgerService) RecalculateFeeTotals(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	var fee *domain.MonthlyFee
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		fee, err = s.recalculate(ctx, tx, feeID, domain.AuditActionFeeRecalculated)
		return err
	})
	if err != nil {
		return nil, asBusinessError(err)
	}
	return fee, nil
}

// findOrCreateFee returns the student's fee for period, creating it the way
// period generation would when it does not exist yet.
func (s *LedgerService) findOrCreateFee(ctx context.Context, tx repository.Store, studentID, hostelID int64, period domain.Period) (*domain.MonthlyFee, error) {
	fee, err := tx.Fees().GetByStudentAndPeriod(ctx, studentID, period)
	if err == nil {
		return fee, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	student, err := s.Students.GetStudent(ctx, studentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, customError.WrapStudentNotFound(studentID)
	}
	if err != nil {
		return nil, err
	}
	if hostelID != 0 && student.HostelID != hostelID {
		return nil, customError.WrapStudentNotEligible(studentID, "student does not belong to the hostel")
	}

	fee, err = s.buildFee(ctx, tx, student, period, s.hostelDueDay(ctx, student.HostelID))
	if err != nil {
		return nil, err
	}

	created, err := tx.Fees().CreateIfAbsent(ctx, fee)
	if err != nil {
		return nil, err
	}
	if !created {
		// a concurrent writer created it first
		return tx.Fees().GetByStudentAndPeriod(ctx, studentID, period)
	}

	s.logger.Info("fee created on first payment",
		zap.Int64("student_id", studentID),
		zap.Stringer("period", period),
		zap.String("carry_forward", fee.CarryForward.String()),
	)

	entry := domain.NewAuditEntry(domain.AuditEntityFee, fee.ID.String(), domain.AuditActionFeeCreated, s.now(),
		domain.WithNew(fee),
		domain.WithMetadata("trigger", "payment"),
	)
	if err := tx.Audit().Append(ctx, entry); err != nil {
		return nil, err
	}
	return fee, nil
}

// applyTransaction locks the fee, appends txn to it and recomputes the fee's totals.
func (s *LedgerService) applyTransaction(ctx context.Context, tx repository.Store, feeID uuid.UUID, txn *domain.Transaction, action string) (*domain.TransactionResult, error) {
	fee, err := tx.Fees().GetByIDForUpdate(ctx, feeID)
	if err != nil {
		return nil, feeLookupError(feeID, err)
	}

	txn.FeeID = fee.ID
	txn.StudentID = fee.StudentID
	txn.HostelID = fee.HostelID
	if err := tx.Transactions().Create(ctx, txn); err != nil {
		return nil, err
	}

	fee, err = s.recalculate(ctx, tx, fee.ID, action,
		domain.WithMetadata("transaction_id", txn.ID.String()),
		domain.WithMetadata("kind", string(txn.Kind)),
		domain.WithMetadata("amount", txn.Amount.String()),
	)
	if err != nil {
		return nil, err
	}
	if err := s.requireCovered(ctx, tx, fee); err != nil {
		return nil, err
	}
	return domain.NewTransactionResult(txn, fee), nil
}

// recalculate sets paid_amount to the transaction sum, writing only when something changed.
func (s *LedgerService) recalculate(ctx context.Context, tx repository.Store, feeID uuid.UUID, action string, opts ...domain.AuditOption) (*domain.MonthlyFee, error) {
	fee, err := tx.Fees().GetByIDForUpdate(ctx, feeID)
	if err != nil {
		return nil, feeLookupError(feeID, err)
	}

	sum, err := tx.Transactions().SumByFee(ctx, fee.ID)
	if err != nil {
		return nil, err
	}

	if action == domain.AuditActionFeeRecalculated && utils.Differs(fee.PaidAmount, sum, s.epsilon) {
		s.logger.Warn("paid amount drifted from transactions",
			zap.Stringer("fee_id", fee.ID),
			zap.Error(customError.WrapInconsistentLedger(fee.ID.String(), fee.PaidAmount.String(), sum.String())),
		)
	}

	before := fee.Clone()
	fee.SetPaidAmount(sum)
	if fee.PaidAmount.Equal(before.PaidAmount) && fee.Balance.Equal(before.Balance) && fee.Status == before.Status {
		return fee, nil
	}

	fee.UpdatedAt = s.now()
	if err := tx.Fees().UpdatePaid(ctx, fee); err != nil {
		return nil, err
	}

	opts = append([]domain.AuditOption{domain.WithOld(before), domain.WithNew(fee)}, opts...)
	entry := domain.NewAuditEntry(domain.AuditEntityFee, fee.ID.String(), action, s.now(), opts...)
	if err := tx.Audit().Append(ctx, entry); err != nil {
		return nil, err
	}
	return fee, nil
}

// scheduleCascade hands later periods to the dispatcher, or recomputes them
// inline when none is configured. Failures never undo the committed write.
func (s *LedgerService) scheduleCascade(studentID, hostelID int64, period domain.Period) {
	job := cascade.Job{StudentID: studentID, HostelID: hostelID, FromPeriod: period}
	if s.cascades != nil {
		s.cascades.Submit(job)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cascadeTimeout)
	defer cancel()
	if err := s.RunCascade(ctx, job); err != nil {
		s.logger.Error("cascade failed",
			zap.Int64("student_id", studentID),
			zap.Stringer("period", period),
			zap.Error(customError.WrapCascadeFailure(studentID, period.String(), err)),
		)
	}
}

// requireCovered rejects a write that leaves a fee's transactions summing below zero,
// whichever transaction caused it. The caller's transaction rolls the write back.
func (s *LedgerService) requireCovered(ctx context.Context, tx repository.Store, fee *domain.MonthlyFee) error {
	if !fee.PaidAmount.IsNegative() {
		return nil
	}

	txns, err := tx.Transactions().ListByFee(ctx, fee.ID)
	if err != nil {
		return err
	}
	credited, debited := decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.Amount.IsPositive() {
			credited = credited.Add(t.Amount)
		} else {
			debited = debited.Add(t.Amount.Abs())
		}
	}
	return customError.WrapRefundExceedsPaid(debited.String(), credited.String())
}

func transactionLookupError(transactionID uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return customError.WrapTransactionNotFound(transactionID.String())
	}
	return err
}
