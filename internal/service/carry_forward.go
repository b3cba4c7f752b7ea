package service

import (
	"context"
	"errors"

	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"

	"github.com/shopspring/decimal"
)

// carryForward is the unpaid balance inherited from the previous period and how it was derived.
type carryForward struct {
	Amount         decimal.Decimal
	Previous       *domain.MonthlyFee
	TransactionSum decimal.Decimal
	ActualPaid     decimal.Decimal
	LegacyFallback bool
}

// computeCarryForward derives what rolls into the period after previous.
// Only the immediately preceding fee is read: its total_due already includes
// whatever it inherited, so looking further back would count that debt twice.
func (s *LedgerService) computeCarryForward(ctx context.Context, store repository.Store, studentID int64, previous domain.Period) (*carryForward, error) {
	prev, err := store.Fees().GetByStudentAndPeriod(ctx, studentID, previous)
	if errors.Is(err, repository.ErrNotFound) {
		return &carryForward{Amount: decimal.Zero}, nil
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	sum, err := store.Transactions().SumByFee(ctx, prev.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	cf := &carryForward{
		Previous:       prev,
		TransactionSum: sum,
		ActualPaid:     sum,
	}

	// Fees written before transactions were recorded only carry paid_amount.
	// This fallback is confined to carry-forward; a fee's own paid_amount is
	// always the transaction sum.
	if !sum.IsPositive() {
		cf.ActualPaid = prev.PaidAmount
		cf.LegacyFallback = !prev.PaidAmount.Equal(sum)
	}

	cf.Amount = utils.MaxZero(prev.TotalDue.Sub(cf.ActualPaid))
	return cf, nil
}

// CalculateCarryForward returns the carry-forward a fee for period should hold right now.
func (s *LedgerService) CalculateCarryForward(ctx context.Context, studentID int64, period domain.Period) (decimal.Decimal, error) {
	cf, err := s.computeCarryForward(ctx, s.Store, studentID, period.Prev())
	if err != nil {
		return decimal.Zero, err
	}
	return cf.Amount, nil
}
