package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, fee_id, student_id, hostel_id, amount, kind, reason, payment_method, reference, transaction_date, created_at, updated_at`

type transactionRepository struct {
	db sqlx.ExtContext
}

func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO fee_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		txn.ID,
		txn.FeeID,
		txn.StudentID,
		txn.HostelID,
		txn.Amount,
		txn.Kind,
		txn.Reason,
		txn.PaymentMethod,
		txn.Reference,
		txn.TransactionDate,
		txn.CreatedAt,
		txn.UpdatedAt,
	)

	return translateError(err)
}

func (r *transactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM fee_transactions WHERE id = $1`

	var txn domain.Transaction
	if err := sqlx.GetContext(ctx, r.db, &txn, query, transactionID); err != nil {
		return nil, translateError(err)
	}
	return &txn, nil
}

func (r *transactionRepository) ListByFee(ctx context.Context, feeID uuid.UUID) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM fee_transactions
		WHERE fee_id = $1
		ORDER BY transaction_date, created_at
	`

	var txns []*domain.Transaction
	if err := sqlx.SelectContext(ctx, r.db, &txns, query, feeID); err != nil {
		return nil, translateError(err)
	}
	return txns, nil
}

func (r *transactionRepository) SumByFee(ctx context.Context, feeID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM fee_transactions WHERE fee_id = $1`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, r.db, &total, query, feeID); err != nil {
		return decimal.Zero, translateError(err)
	}
	return total, nil
}

func (r *transactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	query := `
		UPDATE fee_transactions
		SET amount = $2, reason = $3, payment_method = $4, reference = $5, transaction_date = $6, updated_at = $7
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		txn.ID,
		txn.Amount,
		txn.Reason,
		txn.PaymentMethod,
		txn.Reference,
		txn.TransactionDate,
		txn.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res.RowsAffected())
}

func (r *transactionRepository) Delete(ctx context.Context, transactionID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM fee_transactions WHERE id = $1`, transactionID)
	if err != nil {
		return translateError(err)
	}
	return requireAffected(res.RowsAffected())
}

func requireAffected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
