package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"

	"go.uber.org/zap"
)

// DiagnoseCarryForward explains how the carry-forward of period is derived and
// compares it with what is stored. It never writes.
func (s *LedgerService) DiagnoseCarryForward(ctx context.Context, studentID int64, period domain.Period) (*domain.CarryForwardDiagnosis, error) {
	cf, err := s.computeCarryForward(ctx, s.Store, studentID, period.Prev())
	if err != nil {
		return nil, err
	}

	d := &domain.CarryForwardDiagnosis{
		StudentID:            studentID,
		Period:               period,
		PreviousPeriod:       period.Prev(),
		TransactionSum:       cf.TransactionSum,
		ActualPaid:           cf.ActualPaid,
		UsedLegacyFallback:   cf.LegacyFallback,
		ExpectedCarryForward: cf.Amount,
	}
	if cf.Previous != nil {
		id := cf.Previous.ID
		d.PreviousFeeID = &id
		d.PreviousTotalDue = cf.Previous.TotalDue
		d.StoredPaidAmount = cf.Previous.PaidAmount
	}

	fee, err := s.Store.Fees().GetByStudentAndPeriod(ctx, studentID, period)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, customError.WrapDatabaseError(err)
	default:
		stored := fee.CarryForward
		d.ActualStored = &stored
		d.Discrepancy = stored.Sub(cf.Amount)
		d.HasDiscrepancy = utils.Differs(stored, cf.Amount, s.epsilon)
	}

	return d, nil
}

// VerifyFee compares a fee's paid_amount with its transaction sum. When they
// drift apart by more than epsilon the verification comes back with an
// InconsistentLedger error.
func (s *LedgerService) VerifyFee(ctx context.Context, feeID uuid.UUID) (*domain.FeeVerification, error) {
	fee, err := s.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}

	sum, err := s.Store.Transactions().SumByFee(ctx, feeID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	v := &domain.FeeVerification{
		FeeID:            feeID,
		StoredPaidAmount: fee.PaidAmount,
		TransactionSum:   sum,
		Drift:            fee.PaidAmount.Sub(sum),
		Consistent:       !utils.Differs(fee.PaidAmount, sum, s.epsilon),
	}
	if !v.Consistent {
		return v, customError.WrapInconsistentLedger(feeID.String(), fee.PaidAmount.String(), sum.String())
	}
	return v, nil
}

// RepairLedger recalculates every fee whose paid_amount drifted from its
// transactions and cascades the repaired periods. Legacy fees, which carry a
// paid_amount but no transaction rows, are reported and left untouched.
func (s *LedgerService) RepairLedger(ctx context.Context) (*domain.RepairResult, error) {
	ids, err := s.Store.Fees().ListInconsistent(ctx, s.epsilon)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	result := &domain.RepairResult{Checked: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		legacy, err := s.legacyFee(ctx, id)
		if err != nil {
			result.Failed++
			s.logger.Error("repair failed", zap.Stringer("fee_id", id), zap.Error(err))
			continue
		}
		if legacy != nil {
			result.Legacy++
			result.LegacyFeeIDs = append(result.LegacyFeeIDs, id)
			s.logger.Warn("legacy fee skipped by repair",
				zap.Stringer("fee_id", id),
				zap.Error(customError.WrapInconsistentLedger(id.String(), legacy.PaidAmount.String(), "0")),
			)
			continue
		}

		fee, err := s.RecalculateFeeTotals(ctx, id)
		if err != nil {
			result.Failed++
			s.logger.Error("repair failed", zap.Stringer("fee_id", id), zap.Error(err))
			continue
		}
		result.Repaired++
		s.scheduleCascade(fee.StudentID, fee.HostelID, fee.Period)
	}

	if result.Checked > 0 {
		s.logger.Warn("ledger repaired",
			zap.Int("checked", result.Checked),
			zap.Int("repaired", result.Repaired),
			zap.Int("failed", result.Failed),
			zap.Int("legacy", result.Legacy),
		)
	}
	return result, nil
}

// legacyFee returns the fee when its paid_amount has no transactions behind it,
// and nil for any other fee.
func (s *LedgerService) legacyFee(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	fee, err := s.Store.Fees().GetByID(ctx, feeID)
	if err != nil {
		return nil, feeLookupError(feeID, err)
	}
	if fee.PaidAmount.IsZero() {
		return nil, nil
	}

	txns, err := s.Store.Transactions().ListByFee(ctx, feeID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(txns) > 0 {
		return nil, nil
	}
	return fee, nil
}
