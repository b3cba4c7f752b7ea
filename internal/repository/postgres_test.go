package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/repository"
	"github.com/hostelhub/fee-ledger/internal/service"
)

// These tests run against a disposable PostgreSQL database named by TEST_DATABASE_URL.
var testDB *sqlx.DB

func TestMain(m *testing.M) {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		db, err := sqlx.Connect("postgres", url)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to test database: %v", err))
		}
		if err := executeInitSQL(db); err != nil {
			panic(fmt.Sprintf("failed to initialize database schema: %v", err))
		}
		testDB = db
	}

	code := m.Run()
	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func executeInitSQL(db *sqlx.DB) error {
	sqlBytes, err := os.ReadFile("../../scripts/init.sql")
	if err != nil {
		return fmt.Errorf("failed to read init.sql: %w", err)
	}
	_, err = db.Exec(string(sqlBytes))
	return err
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}

	testDB.MustExec("TRUNCATE ledger_audit_log, fee_transactions, monthly_fees, students, hostels RESTART IDENTITY CASCADE")
	testDB.MustExec("INSERT INTO hostels (id, name, rent_due_day) VALUES (1, 'North Wing', 5), (2, 'South Wing', NULL)")
	testDB.MustExec(`INSERT INTO students (id, hostel_id, room_id, monthly_rent, is_active) VALUES
		(100, 1, 10, 5000, TRUE),
		(101, 1, NULL, 4000, TRUE),
		(102, 1, 12, NULL, TRUE),
		(103, 1, 13, 3000, FALSE)`)
	return testDB
}

func newFee(studentID int64, period string, rent int64) *domain.MonthlyFee {
	p := domain.MustParsePeriod(period)
	return domain.NewMonthlyFee(studentID, 1, p, decimal.NewFromInt(rent), decimal.Zero, p.DueDate(5), time.Now().UTC())
}

func TestFeeRepository_CreateAndRead(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	jan := newFee(100, "2025-01", 5000)
	created, err := store.Fees().CreateIfAbsent(ctx, jan)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Fees().CreateIfAbsent(ctx, newFee(100, "2025-01", 5000))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Fees().GetByStudentAndPeriod(ctx, 100, jan.Period)
	require.NoError(t, err)
	assert.Equal(t, jan.ID, got.ID)
	assert.Equal(t, jan.Period, got.Period)
	assert.True(t, got.TotalDue.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, domain.FeeStatusPending, got.Status)

	exists, err := store.Fees().ExistsForHostelPeriod(ctx, 1, jan.Period)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = store.Fees().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFeeRepository_CreateBatchSkipsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	first := newFee(100, "2025-01", 5000)
	_, err := store.Fees().CreateBatch(ctx, []*domain.MonthlyFee{first})
	require.NoError(t, err)

	duplicate := newFee(100, "2025-01", 5000)
	feb := newFee(100, "2025-02", 5000)
	ids, err := store.Fees().CreateBatch(ctx, []*domain.MonthlyFee{duplicate, feb})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{feb.ID}, ids)

	after, err := store.Fees().ListByStudentAfter(ctx, 100, first.Period)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, feb.ID, after[0].ID)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	fee := newFee(100, "2025-03", 5000)
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Fees().CreateIfAbsent(ctx, fee); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	assert.EqualError(t, err, "abort")

	_, err = store.Fees().GetByID(ctx, fee.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionRepository_SumAndInconsistency(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	fee := newFee(100, "2025-01", 5000)
	_, err := store.Fees().CreateIfAbsent(ctx, fee)
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, amount := range []int64{3000, -500} {
		kind := domain.TransactionKindPayment
		if amount < 0 {
			kind = domain.TransactionKindRefund
		}
		require.NoError(t, store.Transactions().Create(ctx, &domain.Transaction{
			ID: uuid.New(), FeeID: fee.ID, StudentID: 100, HostelID: 1,
			Amount: decimal.NewFromInt(amount), Kind: kind, Reason: "test",
			TransactionDate: now, CreatedAt: now, UpdatedAt: now,
		}))
	}

	sum, err := store.Transactions().SumByFee(ctx, fee.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(2500)))

	ids, err := store.Fees().ListInconsistent(ctx, decimal.New(1, -2))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fee.ID}, ids)

	fee.SetPaidAmount(sum)
	require.NoError(t, store.Fees().UpdatePaid(ctx, fee))

	ids, err = store.Fees().ListInconsistent(ctx, decimal.New(1, -2))
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, store.Transactions().Delete(ctx, uuid.New()), repository.ErrNotFound)
}

func TestAuditRepository_AppendAndList(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ctx := context.Background()

	entry := domain.NewAuditEntry(domain.AuditEntityFee, "fee-1", domain.AuditActionFeeRecalculated, time.Now().UTC(),
		domain.WithNew(map[string]string{"paid_amount": "10"}),
		domain.WithMetadata("trigger", "test"),
	)
	require.NoError(t, store.Audit().Append(ctx, entry))

	entries, err := store.Audit().ListByEntity(ctx, domain.AuditEntityFee, "fee-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test", entries[0].Metadata["trigger"])
	assert.JSONEq(t, `{"paid_amount":"10"}`, string(entries[0].NewValues))
}

func TestDirectories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	students := repository.NewStudentDirectory(db)
	hostels := repository.NewHostelDirectory(db)

	active, err := students.GetActiveStudentsWithRent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, int64(100), active[0].ID)
	assert.Nil(t, active[1].RoomID)

	_, err = students.GetStudent(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ids, err := hostels.ListActiveHostelIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	day, err := hostels.GetDueDateDefault(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, day)

	day, err = hostels.GetDueDateDefault(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, day)
}

func TestLedgerLifecycle_Postgres(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	ledger := service.NewLedgerService(store, repository.NewStudentDirectory(db), repository.NewHostelDirectory(db), nil, zap.NewNop())
	ctx := context.Background()

	jan := domain.MustParsePeriod("2025-01")
	feb := domain.MustParsePeriod("2025-02")

	result, err := ledger.GeneratePeriodForHostel(ctx, 1, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FeesCreated)
	assert.Len(t, result.Failures, 1)

	_, err = ledger.RecordPayment(ctx, &domain.RecordPaymentRequest{StudentID: 100, HostelID: 1, Amount: decimal.NewFromInt(3000), Period: &jan})
	require.NoError(t, err)

	_, err = ledger.GeneratePeriodForHostel(ctx, 1, feb)
	require.NoError(t, err)

	febFee, err := store.Fees().GetByStudentAndPeriod(ctx, 100, feb)
	require.NoError(t, err)
	assert.True(t, febFee.CarryForward.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, 5, febFee.DueDate.Day())

	_, err = ledger.RecordPayment(ctx, &domain.RecordPaymentRequest{StudentID: 100, HostelID: 1, Amount: decimal.NewFromInt(2000), Period: &jan})
	require.NoError(t, err)

	febFee, err = store.Fees().GetByStudentAndPeriod(ctx, 100, feb)
	require.NoError(t, err)
	assert.True(t, febFee.CarryForward.IsZero())
	assert.True(t, febFee.TotalDue.Equal(decimal.NewFromInt(5000)))
}

// pausingStore holds a cascade right after it has listed, and locked, the later fees.
type pausingStore struct {
	repository.Store
	once   *sync.Once
	listed chan struct{}
	resume chan struct{}
}

func (s *pausingStore) Fees() repository.FeeRepository {
	return &pausingFees{FeeRepository: s.Store.Fees(), store: s}
}

func (s *pausingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Store) error {
		return fn(&pausingStore{Store: tx, once: s.once, listed: s.listed, resume: s.resume})
	})
}

type pausingFees struct {
	repository.FeeRepository
	store *pausingStore
}

func (f *pausingFees) ListByStudentAfterForUpdate(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error) {
	fees, err := f.FeeRepository.ListByStudentAfterForUpdate(ctx, studentID, period)
	f.store.once.Do(func() {
		close(f.store.listed)
		<-f.store.resume
	})
	return fees, err
}

func TestCascade_PaymentOnLaterFeeWaitsForCascade(t *testing.T) {
	db := setupTestDB(t)
	store := repository.NewPostgresStore(db)
	students := repository.NewStudentDirectory(db)
	hostels := repository.NewHostelDirectory(db)
	ctx := context.Background()

	payer := service.NewLedgerService(store, students, hostels, nil, zap.NewNop())
	paused := &pausingStore{Store: store, once: &sync.Once{}, listed: make(chan struct{}), resume: make(chan struct{})}
	cascader := service.NewLedgerService(paused, students, hostels, nil, zap.NewNop())

	jan := domain.MustParsePeriod("2025-01")
	feb := domain.MustParsePeriod("2025-02")
	_, err := payer.GeneratePeriodForHostel(ctx, 1, jan)
	require.NoError(t, err)
	_, err = payer.GeneratePeriodForHostel(ctx, 1, feb)
	require.NoError(t, err)

	// a January payment whose cascade has not run yet
	janFee, err := store.Fees().GetByStudentAndPeriod(ctx, 100, jan)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.Transactions().Create(ctx, &domain.Transaction{
		ID: uuid.New(), FeeID: janFee.ID, StudentID: 100, HostelID: 1,
		Amount: decimal.NewFromInt(3000), Kind: domain.TransactionKindPayment,
		TransactionDate: now, CreatedAt: now, UpdatedAt: now,
	}))
	janFee.SetPaidAmount(decimal.NewFromInt(3000))
	require.NoError(t, store.Fees().UpdatePaid(ctx, janFee))

	cascadeDone := make(chan error, 1)
	go func() {
		_, err := cascader.PropagateFrom(ctx, 100, jan)
		cascadeDone <- err
	}()
	<-paused.listed

	paymentDone := make(chan error, 1)
	go func() {
		_, err := payer.RecordPayment(ctx, &domain.RecordPaymentRequest{StudentID: 100, HostelID: 1, Amount: decimal.NewFromInt(3000), Period: &feb})
		paymentDone <- err
	}()

	select {
	case err := <-paymentDone:
		t.Fatalf("payment committed while the cascade held February: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(paused.resume)
	require.NoError(t, <-cascadeDone)
	require.NoError(t, <-paymentDone)

	febFee, err := store.Fees().GetByStudentAndPeriod(ctx, 100, feb)
	require.NoError(t, err)
	assert.True(t, febFee.CarryForward.Equal(decimal.NewFromInt(2000)), "carry_forward %s", febFee.CarryForward)
	assert.True(t, febFee.TotalDue.Equal(decimal.NewFromInt(7000)), "total_due %s", febFee.TotalDue)
	assert.True(t, febFee.PaidAmount.Equal(decimal.NewFromInt(3000)), "paid_amount %s", febFee.PaidAmount)
	assert.True(t, febFee.Balance.Equal(decimal.NewFromInt(4000)), "balance %s", febFee.Balance)
	assert.Equal(t, domain.FeeStatusPartiallyPaid, febFee.Status)
}
