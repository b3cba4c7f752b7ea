package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// FeeRepository defines the interface for monthly fee data operations
type FeeRepository interface {
	// CreateIfAbsent inserts fee unless one already exists for its student and period.
	CreateIfAbsent(ctx context.Context, fee *domain.MonthlyFee) (bool, error)

	// CreateBatch inserts fees, skipping any whose student already has a fee for the period,
	// and returns the IDs actually inserted
	CreateBatch(ctx context.Context, fees []*domain.MonthlyFee) ([]uuid.UUID, error)

	// GetByID retrieves a fee by its ID
	GetByID(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error)

	// GetByIDForUpdate retrieves a fee and locks its row for the surrounding transaction
	GetByIDForUpdate(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error)

	// GetByStudentAndPeriod retrieves the fee of a student for one period
	GetByStudentAndPeriod(ctx context.Context, studentID int64, period domain.Period) (*domain.MonthlyFee, error)

	// ListByStudent retrieves all fees of a student ordered by period
	ListByStudent(ctx context.Context, studentID int64) ([]*domain.MonthlyFee, error)

	// ListByStudentAfter retrieves the fees of a student strictly after period, ordered by period
	ListByStudentAfter(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error)

	// ListByStudentAfterForUpdate is ListByStudentAfter with every returned row locked for the
	// surrounding transaction, so concurrent payments on those fees wait for the cascade
	ListByStudentAfterForUpdate(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error)

	// ExistsForHostelPeriod reports whether any fee was generated for the hostel and period
	ExistsForHostelPeriod(ctx context.Context, hostelID int64, period domain.Period) (bool, error)

	// UpdatePaid persists paid_amount, balance and status
	UpdatePaid(ctx context.Context, fee *domain.MonthlyFee) error

	// UpdateCarryForward persists carry_forward, total_due, balance and status
	UpdateCarryForward(ctx context.Context, fee *domain.MonthlyFee) error

	// ListInconsistent retrieves fee IDs whose paid_amount differs from their transaction sum by more than epsilon
	ListInconsistent(ctx context.Context, epsilon decimal.Decimal) ([]uuid.UUID, error)
}

// TransactionRepository defines the interface for transaction data operations
type TransactionRepository interface {
	// Create appends a transaction
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error)

	// ListByFee retrieves the transactions of a fee ordered by date
	ListByFee(ctx context.Context, feeID uuid.UUID) ([]*domain.Transaction, error)

	// SumByFee adds up the signed amounts of every transaction on a fee
	SumByFee(ctx context.Context, feeID uuid.UUID) (decimal.Decimal, error)

	// Update rewrites a transaction
	Update(ctx context.Context, txn *domain.Transaction) error

	// Delete removes a transaction
	Delete(ctx context.Context, transactionID uuid.UUID) error
}

// AuditRepository is the append-only audit trail
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*domain.AuditEntry, error)
}

// Store groups the ledger repositories and runs units of work atomically.
type Store interface {
	Fees() FeeRepository
	Transactions() TransactionRepository
	Audit() AuditRepository

	// WithinTx runs fn against a transactional Store. fn's error rolls everything back.
	// Calling WithinTx on a Store that is already transactional joins the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// StudentDirectory is the read-only view of students owned by the hostel system
type StudentDirectory interface {
	// GetActiveStudentsWithRent lists active students of a hostel that have a monthly rent
	GetActiveStudentsWithRent(ctx context.Context, hostelID int64) ([]*domain.Student, error)

	// GetStudent retrieves one student regardless of status
	GetStudent(ctx context.Context, studentID int64) (*domain.Student, error)
}

// HostelDirectory is the read-only view of hostel settings
type HostelDirectory interface {
	// ListActiveHostelIDs lists hostels that bill their residents
	ListActiveHostelIDs(ctx context.Context) ([]int64, error)

	// GetDueDateDefault returns the configured due day of month, or 0 when unset
	GetDueDateDefault(ctx context.Context, hostelID int64) (int, error)
}
