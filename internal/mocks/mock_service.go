package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GeneratePeriodForHostel(ctx context.Context, hostelID int64, period domain.Period) (*domain.GenerationResult, error) {
	args := m.Called(ctx, hostelID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationResult), args.Error(1)
}

func (m *MockLedgerService) GeneratePeriodForAllHostels(ctx context.Context, period domain.Period) ([]*domain.GenerationResult, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GenerationResult), args.Error(1)
}

func (m *MockLedgerService) RecordPayment(ctx context.Context, req *domain.RecordPaymentRequest) (*domain.TransactionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionResult), args.Error(1)
}

func (m *MockLedgerService) RecordAdjustment(ctx context.Context, req *domain.RecordAdjustmentRequest) (*domain.TransactionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionResult), args.Error(1)
}

func (m *MockLedgerService) UpdateTransaction(ctx context.Context, req *domain.UpdateTransactionRequest) (*domain.TransactionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionResult), args.Error(1)
}

func (m *MockLedgerService) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.TransactionResult, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionResult), args.Error(1)
}

func (m *MockLedgerService) RecalculateFeeTotals(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	args := m.Called(ctx, feeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MonthlyFee), args.Error(1)
}

func (m *MockLedgerService) VerifyFee(ctx context.Context, feeID uuid.UUID) (*domain.FeeVerification, error) {
	args := m.Called(ctx, feeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeeVerification), args.Error(1)
}

func (m *MockLedgerService) GetTransactions(ctx context.Context, feeID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, feeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockLedgerService) GetMonthlyFees(ctx context.Context, studentID int64) ([]*domain.MonthlyFee, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MonthlyFee), args.Error(1)
}

func (m *MockLedgerService) DiagnoseCarryForward(ctx context.Context, studentID int64, period domain.Period) (*domain.CarryForwardDiagnosis, error) {
	args := m.Called(ctx, studentID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CarryForwardDiagnosis), args.Error(1)
}

func (m *MockLedgerService) PropagateFrom(ctx context.Context, studentID int64, changed domain.Period) (*domain.CascadeResult, error) {
	args := m.Called(ctx, studentID, changed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CascadeResult), args.Error(1)
}

func (m *MockLedgerService) RepairLedger(ctx context.Context) (*domain.RepairResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepairResult), args.Error(1)
}

// NewMockLedgerService creates a new mock ledger service instance
func NewMockLedgerService() *MockLedgerService {
	return &MockLedgerService{}
}
