package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/school-fees-api/internal/models"
)

// PaymentRepository reads the append-only payment ledger. Inserts happen
// through FeeRepository.ApplyPayment so the fee mutation and the payment
// share one transaction.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, fee_id, student_id, amount, payment_date,
	payment_method, transaction_id, receipt_number, remarks, received_by, receipt_path, created_at`

// FindByID returns a payment by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByFee returns all payments recorded against a fee, newest first.
func (r *PaymentRepository) ListByFee(ctx context.Context, feeID string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE fee_id = $1 ORDER BY payment_date DESC", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, feeID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// ListByStudent returns all payments recorded for a student, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE student_id = $1 ORDER BY payment_date DESC", paymentColumns)
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return payments, nil
}

// SetReceiptPath backfills the rendered artifact location. This is the
// only mutation permitted on a payment after creation.
func (r *PaymentRepository) SetReceiptPath(ctx context.Context, id, path string) error {
	const query = `UPDATE payments SET receipt_path = $2 WHERE id = $1 AND receipt_path IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, path); err != nil {
		return fmt.Errorf("set receipt path: %w", err)
	}
	return nil
}
