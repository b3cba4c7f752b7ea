package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	customError "github.com/hostelhub/fee-ledger/pkg/errors"
	"github.com/hostelhub/fee-ledger/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultDueDay         = 15
	defaultLockWait       = 10 * time.Second
	defaultCascadeTimeout = 30 * time.Second
)

// CascadeScheduler accepts cascades to run after the originating write has committed.
type CascadeScheduler interface {
	Submit(job cascade.Job)
}

// LedgerService owns the monthly fee ledger: period generation, carry-forward,
// payment and adjustment reconciliation, and cascade recalculation.
type LedgerService struct {
	Store    repository.Store
	Students repository.StudentDirectory
	Hostels  repository.HostelDirectory

	locker   cascade.Locker
	cascades CascadeScheduler
	logger   *zap.Logger
	now      func() time.Time

	dueDay         int
	epsilon        decimal.Decimal
	lockWait       time.Duration
	cascadeTimeout time.Duration
}

type Option func(*LedgerService)

// WithLocker replaces the in-process per-student lock, e.g. with a Redis lock.
func WithLocker(locker cascade.Locker) Option {
	return func(s *LedgerService) {
		s.locker = locker
	}
}

// WithCascadeScheduler runs cascades asynchronously. Without it they run inline after commit.
func WithCascadeScheduler(scheduler CascadeScheduler) Option {
	return func(s *LedgerService) {
		s.cascades = scheduler
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

func NewLedgerService(
	store repository.Store,
	students repository.StudentDirectory,
	hostels repository.HostelDirectory,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &LedgerService{
		Store:          store,
		Students:       students,
		Hostels:        hostels,
		locker:         cascade.NewKeyedMutex(),
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
		dueDay:         defaultDueDay,
		epsilon:        utils.DefaultEpsilon,
		lockWait:       defaultLockWait,
		cascadeTimeout: defaultCascadeTimeout,
	}

	if cfg != nil {
		if cfg.Ledger.DefaultDueDay > 0 {
			s.dueDay = cfg.Ledger.DefaultDueDay
		}
		if eps := cfg.GetEpsilon(); eps.IsPositive() {
			s.epsilon = eps
		}
		if cfg.Ledger.LockWait > 0 {
			s.lockWait = cfg.Ledger.LockWait
		}
		if cfg.Ledger.CascadeTimeout > 0 {
			s.cascadeTimeout = cfg.Ledger.CascadeTimeout
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetCascadeScheduler attaches an asynchronous scheduler after construction,
// for schedulers that themselves call back into the service.
func (s *LedgerService) SetCascadeScheduler(scheduler CascadeScheduler) {
	s.cascades = scheduler
}

// GetMonthlyFees returns every fee of a student ordered by period
func (s *LedgerService) GetMonthlyFees(ctx context.Context, studentID int64) ([]*domain.MonthlyFee, error) {
	fees, err := s.Store.Fees().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if fees == nil {
		fees = []*domain.MonthlyFee{}
	}
	return fees, nil
}

// GetFee returns one fee
func (s *LedgerService) GetFee(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	fee, err := s.Store.Fees().GetByID(ctx, feeID)
	if err != nil {
		return nil, feeLookupError(feeID, err)
	}
	return fee, nil
}

// GetTransactions returns the transactions recorded against a fee
func (s *LedgerService) GetTransactions(ctx context.Context, feeID uuid.UUID) ([]*domain.Transaction, error) {
	if _, err := s.GetFee(ctx, feeID); err != nil {
		return nil, err
	}

	txns, err := s.Store.Transactions().ListByFee(ctx, feeID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if txns == nil {
		txns = []*domain.Transaction{}
	}
	return txns, nil
}

func feeLookupError(feeID uuid.UUID, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return customError.WrapFeeNotFound(feeID.String())
	}
	return customError.WrapDatabaseError(err)
}

// asBusinessError leaves business errors alone and wraps everything else as a database failure.
func asBusinessError(err error) error {
	if err == nil || customError.Code(err) != "" {
		return err
	}
	return customError.WrapDatabaseError(err)
}
