package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const feeColumns = `id, student_id, hostel_id, period, base_rent, carry_forward, total_due, paid_amount, balance, status, due_date, created_at, updated_at`

type feeRepository struct {
	db sqlx.ExtContext
}

func (r *feeRepository) CreateIfAbsent(ctx context.Context, fee *domain.MonthlyFee) (bool, error) {
	ids, err := r.CreateBatch(ctx, []*domain.MonthlyFee{fee})
	if err != nil {
		return false, err
	}
	return len(ids) == 1, nil
}

func (r *feeRepository) CreateBatch(ctx context.Context, fees []*domain.MonthlyFee) ([]uuid.UUID, error) {
	if len(fees) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO monthly_fees (` + feeColumns + `)
		VALUES (:id, :student_id, :hostel_id, :period, :base_rent, :carry_forward, :total_due, :paid_amount, :balance, :status, :due_date, :created_at, :updated_at)
		ON CONFLICT (student_id, period) DO NOTHING
		RETURNING id
	`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, fees)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var inserted []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inserted = append(inserted, id)
	}

	return inserted, rows.Err()
}

func (r *feeRepository) GetByID(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	query := `SELECT ` + feeColumns + ` FROM monthly_fees WHERE id = $1`
	return r.get(ctx, query, feeID)
}

func (r *feeRepository) GetByIDForUpdate(ctx context.Context, feeID uuid.UUID) (*domain.MonthlyFee, error) {
	query := `SELECT ` + feeColumns + ` FROM monthly_fees WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, feeID)
}

func (r *feeRepository) GetByStudentAndPeriod(ctx context.Context, studentID int64, period domain.Period) (*domain.MonthlyFee, error) {
	query := `SELECT ` + feeColumns + ` FROM monthly_fees WHERE student_id = $1 AND period = $2`
	return r.get(ctx, query, studentID, period)
}

func (r *feeRepository) get(ctx context.Context, query string, args ...any) (*domain.MonthlyFee, error) {
	var fee domain.MonthlyFee
	if err := sqlx.GetContext(ctx, r.db, &fee, query, args...); err != nil {
		return nil, translateError(err)
	}
	return &fee, nil
}

func (r *feeRepository) ListByStudent(ctx context.Context, studentID int64) ([]*domain.MonthlyFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM monthly_fees
		WHERE student_id = $1
		ORDER BY period
	`

	var fees []*domain.MonthlyFee
	if err := sqlx.SelectContext(ctx, r.db, &fees, query, studentID); err != nil {
		return nil, translateError(err)
	}
	return fees, nil
}

func (r *feeRepository) ListByStudentAfter(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error) {
	return r.listAfter(ctx, studentID, period, "")
}

// Rows are locked in period order, the same order every cascade uses.
func (r *feeRepository) ListByStudentAfterForUpdate(ctx context.Context, studentID int64, period domain.Period) ([]*domain.MonthlyFee, error) {
	return r.listAfter(ctx, studentID, period, "FOR UPDATE")
}

func (r *feeRepository) listAfter(ctx context.Context, studentID int64, period domain.Period, lock string) ([]*domain.MonthlyFee, error) {
	query := `
		SELECT ` + feeColumns + `
		FROM monthly_fees
		WHERE student_id = $1 AND period > $2
		ORDER BY period
		` + lock

	var fees []*domain.MonthlyFee
	if err := sqlx.SelectContext(ctx, r.db, &fees, query, studentID, period); err != nil {
		return nil, translateError(err)
	}
	return fees, nil
}

func (r *feeRepository) ExistsForHostelPeriod(ctx context.Context, hostelID int64, period domain.Period) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM monthly_fees WHERE hostel_id = $1 AND period = $2)`

	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, hostelID, period); err != nil {
		return false, translateError(err)
	}
	return exists, nil
}

func (r *feeRepository) UpdatePaid(ctx context.Context, fee *domain.MonthlyFee) error {
	query := `
		UPDATE monthly_fees
		SET paid_amount = $2, balance = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	return r.exec(ctx, query, fee.ID, fee.PaidAmount, fee.Balance, fee.Status, fee.UpdatedAt)
}

func (r *feeRepository) UpdateCarryForward(ctx context.Context, fee *domain.MonthlyFee) error {
	query := `
		UPDATE monthly_fees
		SET carry_forward = $2, total_due = $3, balance = $4, status = $5, updated_at = $6
		WHERE id = $1
	`

	return r.exec(ctx, query, fee.ID, fee.CarryForward, fee.TotalDue, fee.Balance, fee.Status, fee.UpdatedAt)
}

func (r *feeRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res.RowsAffected())
}

func (r *feeRepository) ListInconsistent(ctx context.Context, epsilon decimal.Decimal) ([]uuid.UUID, error) {
	query := `
		SELECT f.id
		FROM monthly_fees f
		LEFT JOIN (
			SELECT fee_id, SUM(amount) AS total
			FROM fee_transactions
			GROUP BY fee_id
		) t ON t.fee_id = f.id
		WHERE ABS(f.paid_amount - COALESCE(t.total, 0)) > $1
		ORDER BY f.student_id, f.period
	`

	var ids []uuid.UUID
	if err := sqlx.SelectContext(ctx, r.db, &ids, query, epsilon); err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}
