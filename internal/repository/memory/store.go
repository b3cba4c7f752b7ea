// Package memory is an in-process implementation of the ledger repositories.
// It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	"github.com/shopspring/decimal"
)

type feeKey struct {
	studentID int64
	period    domain.Period
}

type hostel struct {
	active bool
	dueDay int
}

type tables struct {
	fees    map[uuid.UUID]*domain.MonthlyFee
	feeKeys map[feeKey]uuid.UUID
	txns    map[uuid.UUID]*domain.Transaction
	audit   []*domain.AuditEntry
}

func newTables() tables {
	return tables{
		fees:    make(map[uuid.UUID]*domain.MonthlyFee),
		feeKeys: make(map[feeKey]uuid.UUID),
		txns:    make(map[uuid.UUID]*domain.Transaction),
	}
}

func (t tables) clone() tables {
	c := newTables()
	for id, f := range t.fees {
		c.fees[id] = f.Clone()
	}
	for k, id := range t.feeKeys {
		c.feeKeys[k] = id
	}
	for id, txn := range t.txns {
		cp := *txn
		c.txns[id] = &cp
	}
	c.audit = append([]*domain.AuditEntry(nil), t.audit...)
	return c
}

type database struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data tables

	students map[int64]*domain.Student
	hostels  map[int64]hostel
}

// Store keeps every table in memory. Units of work are serialized and rolled
// back by restoring a snapshot; writes made outside WithinTx are not isolated.
type Store struct {
	db   *database
	inTx bool
}

var (
	_ repository.Store            = (*Store)(nil)
	_ repository.StudentDirectory = (*Store)(nil)
	_ repository.HostelDirectory  = (*Store)(nil)
)

func New() *Store {
	return &Store{db: &database{
		data:     newTables(),
		students: make(map[int64]*domain.Student),
		hostels:  make(map[int64]hostel),
	}}
}

func (s *Store) Fees() repository.FeeRepository {
	return &feeRepository{db: s.db}
}

func (s *Store) Transactions() repository.TransactionRepository {
	return &transactionRepository{db: s.db}
}

func (s *Store) Audit() repository.AuditRepository {
	return &auditRepository{db: s.db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.db.txMu.Lock()
	defer s.db.txMu.Unlock()

	s.db.mu.RLock()
	snapshot := s.db.data.clone()
	s.db.mu.RUnlock()

	if err := fn(&Store{db: s.db, inTx: true}); err != nil {
		s.db.mu.Lock()
		s.db.data = snapshot
		s.db.mu.Unlock()
		return err
	}
	return nil
}

// AddHostel registers a billing hostel. dueDay 0 leaves the due day unset.
func (s *Store) AddHostel(id int64, dueDay int) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.hostels[id] = hostel{active: true, dueDay: dueDay}
}

// PutStudent inserts or replaces a student.
func (s *Store) PutStudent(student *domain.Student) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cp := *student
	s.db.students[student.ID] = &cp
}

func (s *Store) GetActiveStudentsWithRent(_ context.Context, hostelID int64) ([]*domain.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []*domain.Student
	for _, st := range s.db.students {
		if st.HostelID == hostelID && st.IsActive && st.MonthlyRent.Valid {
			cp := *st
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetStudent(_ context.Context, studentID int64) (*domain.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	st, ok := s.db.students[studentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) ListActiveHostelIDs(_ context.Context) ([]int64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var ids []int64
	for id, h := range s.db.hostels {
		if h.active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) GetDueDateDefault(_ context.Context, hostelID int64) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	h, ok := s.db.hostels[hostelID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return h.dueDay, nil
}

type feeRepository struct {
	db *database
}

func (r *feeRepository) CreateIfAbsent(ctx context.Context, fee *domain.MonthlyFee) (bool, error) {
	ids, err := r.CreateBatch(ctx, []*domain.MonthlyFee{fee})
	return len(ids) == 1, err
}

func (r *feeRepository) CreateBatch(_ context.Context, fees []*domain.MonthlyFee) ([]uuid.UUID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var inserted []uuid.UUID
	for _, fee := range fees {
		key := feeKey{studentID: fee.StudentID, period: fee.Period}
		if _, exists := r.db.data.feeKeys[key]; exists {
			continue
		}
		r.db.data.fees[fee.ID] = fee.Clone()
		r.db.data.feeKeys[key] = fee.ID
		inserted = append(inserted, fee.ID)
	}
	return inserted, nil
}

func (r *feeRepository) GetByID(_ context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	fee, ok := r.db.data.fees[feeID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return fee.Clone(), nil
}

func (r *feeRepository) GetByIDForUpdate(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	return r.GetByID(ctx, feeID)
}

func (r *feeRepository) GetByStudentAndPeriod(ctx context.Context, studentID int64, period domain.Period) (*domain.MonthlyFee, error) {
	r.db.mu.RLock()
	id, ok := r.db.data.feeKeys[feeKey{studentID: studentID, period: period}]
	r.db.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *feeRepository) ListByStudent(_ context.Context, studentID int64) ([]*domain.MonthlyFee, error) {
	return r.list(func(f *domain.MonthlyFee) bool { return f.StudentID == studentID }), nil
}

func (r *feeRepository) ListByStudentAfter(_ context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error) {
	return r.list(func(f *domain.MonthlyFee) bool {
		return f.StudentID == studentID && f.Period.After(period)
	}), nil
}

// The store's transaction mutex already serializes writers.
func (r *feeRepository) ListByStudentAfterForUpdate(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error) {
	return r.ListByStudentAfter(ctx, studentID, period)
}

func (r *feeRepository) list(match func(*domain.MonthlyFee) bool) []*domain.MonthlyFee {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.MonthlyFee
	for _, f := range r.db.data.fees {
		if match(f) {
			out = append(out, f.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}

func (r *feeRepository) ExistsForHostelPeriod(_ context.Context, hostelID int64, period domain.Period) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, f := range r.db.data.fees {
		if f.HostelID == hostelID && f.Period == period {
			return true, nil
		}
	}
	return false, nil
}

func (r *feeRepository) UpdatePaid(_ context.Context, fee *domain.MonthlyFee) error {
	return r.update(fee.ID, func(stored *domain.MonthlyFee) {
		stored.PaidAmount = fee.PaidAmount
		stored.Balance = fee.Balance
		stored.Status = fee.Status
	})
}

func (r *feeRepository) UpdateCarryForward(_ context.Context, fee *domain.MonthlyFee) error {
	return r.update(fee.ID, func(stored *domain.MonthlyFee) {
		stored.CarryForward = fee.CarryForward
		stored.TotalDue = fee.TotalDue
		stored.Balance = fee.Balance
		stored.Status = fee.Status
	})
}

func (r *feeRepository) update(id uuid.UUID, apply func(*domain.MonthlyFee)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.data.fees[id]
	if !ok {
		return repository.ErrNotFound
	}
	apply(stored)
	return nil
}

func (r *feeRepository) ListInconsistent(_ context.Context, epsilon decimal.Decimal) ([]uuid.UUID, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	sums := make(map[uuid.UUID]decimal.Decimal)
	for _, txn := range r.db.data.txns {
		sums[txn.FeeID] = sums[txn.FeeID].Add(txn.Amount)
	}

	var drifted []*domain.MonthlyFee
	for id, f := range r.db.data.fees {
		if f.PaidAmount.Sub(sums[id]).Abs().GreaterThan(epsilon) {
			drifted = append(drifted, f)
		}
	}
	sort.Slice(drifted, func(i, j int) bool {
		if drifted[i].StudentID != drifted[j].StudentID {
			return drifted[i].StudentID < drifted[j].StudentID
		}
		return drifted[i].Period.Before(drifted[j].Period)
	})

	ids := make([]uuid.UUID, 0, len(drifted))
	for _, f := range drifted {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

type transactionRepository struct {
	db *database
}

func (r *transactionRepository) Create(_ context.Context, txn *domain.Transaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.data.fees[txn.FeeID]; !ok {
		return repository.ErrNotFound
	}
	if _, exists := r.db.data.txns[txn.ID]; exists {
		return repository.ErrConflict
	}
	cp := *txn
	r.db.data.txns[txn.ID] = &cp
	return nil
}

func (r *transactionRepository) GetByID(_ context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	txn, ok := r.db.data.txns[transactionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (r *transactionRepository) ListByFee(_ context.Context, feeID uuid.UUID) ([]*domain.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.Transaction
	for _, txn := range r.db.data.txns {
		if txn.FeeID == feeID {
			cp := *txn
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *transactionRepository) SumByFee(_ context.Context, feeID uuid.UUID) (decimal.Decimal, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	total := decimal.Zero
	for _, txn := range r.db.data.txns {
		if txn.FeeID == feeID {
			total = total.Add(txn.Amount)
		}
	}
	return total, nil
}

func (r *transactionRepository) Update(_ context.Context, txn *domain.Transaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.data.txns[txn.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *txn
	r.db.data.txns[txn.ID] = &cp
	return nil
}

func (r *transactionRepository) Delete(_ context.Context, transactionID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.data.txns[transactionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.data.txns, transactionID)
	return nil
}

type auditRepository struct {
	db *database
}

func (r *auditRepository) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.data.audit = append(r.db.data.audit, entry)
	return nil
}

func (r *auditRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]*domain.AuditEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []*domain.AuditEntry
	for _, e := range r.db.data.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
