package service

import (
	"context"

	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"

	"go.uber.org/zap"
)

// PropagateFrom recomputes carry_forward for every fee of the student after changed,
// oldest first, each from its own preceding period. It walks the whole chain even
// when a period is already correct. Changes within epsilon are not written.
func (s *LedgerService) PropagateFrom(ctx context.Context, studentID int64, changed domain.Period) (*domain.CascadeResult, error) {
	key := cascade.StudentKey(studentID)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	unlock, err := s.locker.Lock(lockCtx, key)
	cancel()
	if err != nil {
		if customError.Code(err) == "" {
			err = customError.WrapLockError(key, err)
		}
		return nil, err
	}
	defer unlock()

	result := &domain.CascadeResult{StudentID: studentID, ChangedPeriod: changed}
	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		result.Examined = 0
		result.Updated = 0
		result.UpdatedPeriods = nil

		fees, err := tx.Fees().ListByStudentAfterForUpdate(ctx, studentID, changed)
		if err != nil {
			return err
		}

		for _, fee := range fees {
			result.Examined++

			cf, err := s.computeCarryForward(ctx, tx, studentID, fee.Period.Prev())
			if err != nil {
				return err
			}
			if !utils.Differs(cf.Amount, fee.CarryForward, s.epsilon) {
				continue
			}

			before := fee.Clone()
			fee.SetCarryForward(cf.Amount)
			fee.UpdatedAt = s.now()
			if err := tx.Fees().UpdateCarryForward(ctx, fee); err != nil {
				return err
			}

			entry := domain.NewAuditEntry(domain.AuditEntityFee, fee.ID.String(), domain.AuditActionCarryForwardUpdated, s.now(),
				domain.WithOld(before),
				domain.WithNew(fee),
				domain.WithMetadata("changed_period", changed.String()),
			)
			if err := tx.Audit().Append(ctx, entry); err != nil {
				return err
			}

			s.logger.Debug("carry forward updated",
				zap.Int64("student_id", studentID),
				zap.Stringer("period", fee.Period),
				zap.String("old", before.CarryForward.String()),
				zap.String("new", fee.CarryForward.String()),
			)
			result.Updated++
			result.UpdatedPeriods = append(result.UpdatedPeriods, fee.Period)
		}
		return nil
	})
	if err != nil {
		return nil, asBusinessError(err)
	}

	if result.Updated > 0 {
		s.logger.Info("cascade applied",
			zap.Int64("student_id", studentID),
			zap.Stringer("from", changed),
			zap.Int("examined", result.Examined),
			zap.Int("updated", result.Updated),
		)
	}
	return result, nil
}

// RunCascade adapts PropagateFrom to the dispatcher.
func (s *LedgerService) RunCascade(ctx context.Context, job cascade.Job) error {
	_, err := s.PropagateFrom(ctx, job.StudentID, job.FromPeriod)
	return err
}
