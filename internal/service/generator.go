package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"

	"go.uber.org/zap"
)

// GeneratePeriodForHostel creates the fee of every eligible student of a hostel for period.
// A hostel that already has any fee for the period is skipped entirely. Per-student
// failures are reported in the result and do not stop the other students.
func (s *LedgerService) GeneratePeriodForHostel(ctx context.Context, hostelID int64, period domain.Period) (*domain.GenerationResult, error) {
	log := s.logger.With(zap.Int64("hostel_id", hostelID), zap.Stringer("period", period))
	result := &domain.GenerationResult{HostelID: hostelID, Period: period}

	exists, err := s.Store.Fees().ExistsForHostelPeriod(ctx, hostelID, period)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if exists {
		log.Info("period already generated, skipping hostel")
		result.AlreadyGenerated = true
		return result, nil
	}

	students, err := s.Students.GetActiveStudentsWithRent(ctx, hostelID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	dueDay := s.hostelDueDay(ctx, hostelID)
	fees := make([]*domain.MonthlyFee, 0, len(students))
	for _, student := range students {
		result.StudentsProcessed++

		fee, err := s.buildFee(ctx, s.Store, student, period, dueDay)
		if err != nil {
			log.Warn("skipping student", zap.Int64("student_id", student.ID), zap.Error(err))
			result.Failures = append(result.Failures, generationFailure(student.ID, err))
			continue
		}
		fees = append(fees, fee)
	}

	err = s.Store.WithinTx(ctx, func(tx repository.Store) error {
		result.FeesCreated = 0
		result.WithCarryForward = 0

		ids, err := tx.Fees().CreateBatch(ctx, fees)
		if err != nil {
			return err
		}

		created := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			created[id] = struct{}{}
		}

		for _, fee := range fees {
			if _, ok := created[fee.ID]; !ok {
				err := customError.WrapDuplicatePeriodRecord(fee.StudentID, period.String())
				result.Failures = append(result.Failures, generationFailure(fee.StudentID, err))
				continue
			}
			result.FeesCreated++
			if fee.CarryForward.IsPositive() {
				result.WithCarryForward++
			}
		}

		entry := domain.NewAuditEntry(domain.AuditEntityHostel, strconv.FormatInt(hostelID, 10), domain.AuditActionPeriodGenerated, s.now(),
			domain.WithNew(result),
			domain.WithMetadata("period", period.String()),
		)
		return tx.Audit().Append(ctx, entry)
	})
	if err != nil {
		log.Error("failed to persist generated fees", zap.Error(err))
		return nil, asBusinessError(err)
	}

	log.Info("period generated",
		zap.Int("students_processed", result.StudentsProcessed),
		zap.Int("fees_created", result.FeesCreated),
		zap.Int("with_carry_forward", result.WithCarryForward),
		zap.Int("failures", len(result.Failures)),
	)
	return result, nil
}

// GeneratePeriodForAllHostels runs generation for every active hostel. A hostel that
// fails is reported in its own result and the remaining hostels still run.
func (s *LedgerService) GeneratePeriodForAllHostels(ctx context.Context, period domain.Period) ([]*domain.GenerationResult, error) {
	hostelIDs, err := s.Hostels.ListActiveHostelIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	results := make([]*domain.GenerationResult, 0, len(hostelIDs))
	for _, hostelID := range hostelIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := s.GeneratePeriodForHostel(ctx, hostelID, period)
		if err != nil {
			s.logger.Error("hostel generation failed",
				zap.Int64("hostel_id", hostelID),
				zap.Stringer("period", period),
				zap.Error(err),
			)
			result = &domain.GenerationResult{HostelID: hostelID, Period: period, Error: err.Error()}
		}
		results = append(results, result)
	}
	return results, nil
}

// buildFee prepares, without saving, the fee of an eligible student for period.
// The due day follows the student's previous fee when there is one.
func (s *LedgerService) buildFee(ctx context.Context, store repository.Store, student *domain.Student, period domain.Period, defaultDay int) (*domain.MonthlyFee, error) {
	if err := student.CheckEligible(); err != nil {
		return nil, err
	}

	cf, err := s.computeCarryForward(ctx, store, student.ID, period.Prev())
	if err != nil {
		return nil, err
	}

	day := defaultDay
	if cf.Previous != nil && !cf.Previous.DueDate.IsZero() {
		day = cf.Previous.DueDate.Day()
	}

	return domain.NewMonthlyFee(
		student.ID,
		student.HostelID,
		period,
		student.MonthlyRent.Decimal,
		cf.Amount,
		period.DueDate(day),
		s.now(),
	), nil
}

func (s *LedgerService) hostelDueDay(ctx context.Context, hostelID int64) int {
	day, err := s.Hostels.GetDueDateDefault(ctx, hostelID)
	if err != nil {
		s.logger.Debug("using default due day", zap.Int64("hostel_id", hostelID), zap.Error(err))
		return s.dueDay
	}
	if day < 1 || day > 31 {
		return s.dueDay
	}
	return day
}

func generationFailure(studentID int64, err error) domain.GenerationFailure {
	code := customError.Code(err)
	if code == "" {
		code = customError.ErrCodeDatabaseError
	}
	return domain.GenerationFailure{StudentID: studentID, Code: code, Message: err.Error()}
}
