package mocks

import (
	"context"

	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockStudentDirectory struct {
	mock.Mock
}

func (m *MockStudentDirectory) GetActiveStudentsWithRent(ctx context.Context, hostelID int64) ([]*domain.Student, error) {
	args := m.Called(ctx, hostelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Student), args.Error(1)
}

func (m *MockStudentDirectory) GetStudent(ctx context.Context, studentID int64) (*domain.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

type MockHostelDirectory struct {
	mock.Mock
}

func (m *MockHostelDirectory) ListActiveHostelIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockHostelDirectory) GetDueDateDefault(ctx context.Context, hostelID int64) (int, error) {
	args := m.Called(ctx, hostelID)
	return args.Int(0), args.Error(1)
}
