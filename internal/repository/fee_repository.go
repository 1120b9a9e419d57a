package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/models"
)

// Sentinel errors surfaced by ledger writes. Services translate them
// into the typed HTTP-aware errors.
var (
	// ErrDuplicateReceipt signals a unique violation on the receipt
	// number. Retryable: the recorder draws a fresh number.
	ErrDuplicateReceipt = errors.New("duplicate receipt number")
	// ErrFeeHasPayments blocks deletion of a fee that payments reference.
	ErrFeeHasPayments = errors.New("fee has recorded payments")
)

// StatusDeriver computes a fee status from its amounts and due date.
// The repository re-derives status on every write so persisted status
// never drifts from the fee's fields.
type StatusDeriver func(totalAmount, discount, paidAmount float64, dueDate *time.Time, now time.Time) models.FeeStatus

// FeeRepository handles persistence of fees, installment schedules and
// the payment write path.
type FeeRepository struct {
	db     *sqlx.DB
	derive StatusDeriver
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB, derive StatusDeriver) *FeeRepository {
	return &FeeRepository{db: db, derive: derive}
}

const feeColumns = `id, student_id, academic_year,
	fs_tuition, fs_admission, fs_examination, fs_library, fs_sports, fs_transport, fs_hostel, fs_other,
	total_amount, paid_amount, discount, due_date, status, created_at, updated_at`

// Create persists a new fee and its installment schedule in one
// transaction. Status is derived before the insert.
func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee, installments []models.Installment) (err error) {
	now := time.Now().UTC()
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	fee.CreatedAt = now
	fee.UpdatedAt = now
	fee.Status = r.derive(fee.TotalAmount, fee.Discount, fee.PaidAmount, fee.DueDate, now)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fee transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertFee = `INSERT INTO fees (id, student_id, academic_year,
		fs_tuition, fs_admission, fs_examination, fs_library, fs_sports, fs_transport, fs_hostel, fs_other,
		total_amount, paid_amount, discount, due_date, status, created_at, updated_at)
		VALUES (:id, :student_id, :academic_year,
		:fs_tuition, :fs_admission, :fs_examination, :fs_library, :fs_sports, :fs_transport, :fs_hostel, :fs_other,
		:total_amount, :paid_amount, :discount, :due_date, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertFee, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}

	const insertInstallment = `INSERT INTO fee_installments (id, fee_id, amount, due_date, status, position)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range installments {
		inst := &installments[i]
		if inst.ID == "" {
			inst.ID = uuid.NewString()
		}
		inst.FeeID = fee.ID
		inst.Position = i + 1
		if inst.Status == "" {
			inst.Status = models.FeeStatusPending
		}
		if _, err = tx.ExecContext(ctx, insertInstallment, inst.ID, inst.FeeID, inst.Amount, inst.DueDate, inst.Status, inst.Position); err != nil {
			return fmt.Errorf("create fee installment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit fee: %w", err)
	}
	return nil
}

// FindByID returns a fee by its ID.
func (r *FeeRepository) FindByID(ctx context.Context, id string) (*models.Fee, error) {
	query := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1", feeColumns)
	var fee models.Fee
	if err := r.db.GetContext(ctx, &fee, query, id); err != nil {
		return nil, err
	}
	return &fee, nil
}

// FindDetailByID returns a fee with the student's name and class.
func (r *FeeRepository) FindDetailByID(ctx context.Context, id string) (*models.FeeDetail, error) {
	const query = `SELECT f.id, f.student_id, f.academic_year,
		f.fs_tuition, f.fs_admission, f.fs_examination, f.fs_library, f.fs_sports, f.fs_transport, f.fs_hostel, f.fs_other,
		f.total_amount, f.paid_amount, f.discount, f.due_date, f.status, f.created_at, f.updated_at,
		s.full_name AS student_name, s.class_id
		FROM fees f
		LEFT JOIN students s ON s.id = f.student_id
		WHERE f.id = $1`
	var detail models.FeeDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListInstallments returns the schedule for a fee ordered by position.
func (r *FeeRepository) ListInstallments(ctx context.Context, feeID string) ([]models.Installment, error) {
	const query = `SELECT id, fee_id, amount, due_date, status, position
		FROM fee_installments WHERE fee_id = $1 ORDER BY position`
	var installments []models.Installment
	if err := r.db.SelectContext(ctx, &installments, query, feeID); err != nil {
		return nil, fmt.Errorf("list fee installments: %w", err)
	}
	return installments, nil
}

// List returns fees matching the filter, newest first, with the total
// matching count for pagination.
func (r *FeeRepository) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error) {
	base := `FROM fees f
LEFT JOIN students s ON s.id = f.student_id`
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("f.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("f.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT f.id, f.student_id, f.academic_year,
		f.fs_tuition, f.fs_admission, f.fs_examination, f.fs_library, f.fs_sports, f.fs_transport, f.fs_hostel, f.fs_other,
		f.total_amount, f.paid_amount, f.discount, f.due_date, f.status, f.created_at, f.updated_at,
		s.full_name AS student_name, s.class_id
		%s ORDER BY f.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var fees []models.FeeDetail
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fees: %w", err)
	}
	return fees, total, nil
}

// Update persists the externally settable fields of a fee and re-derives
// its status in the same transaction. The row is locked so a concurrent
// payment cannot interleave between the read and the write.
func (r *FeeRepository) Update(ctx context.Context, id string, patch dto.UpdateFeeRequest) (fee *models.Fee, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin fee update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1 FOR UPDATE", feeColumns)
	var current models.Fee
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	if patch.AcademicYear != nil {
		current.AcademicYear = *patch.AcademicYear
	}
	if patch.TotalAmount != nil {
		current.TotalAmount = *patch.TotalAmount
	}
	if patch.Discount != nil {
		current.Discount = *patch.Discount
	}
	if patch.DueDate != nil {
		current.DueDate = patch.DueDate
	}
	if patch.FeeStructure != nil {
		current.FeeStructure = models.FeeStructure{
			Tuition:     patch.FeeStructure.Tuition,
			Admission:   patch.FeeStructure.Admission,
			Examination: patch.FeeStructure.Examination,
			Library:     patch.FeeStructure.Library,
			Sports:      patch.FeeStructure.Sports,
			Transport:   patch.FeeStructure.Transport,
			Hostel:      patch.FeeStructure.Hostel,
			Other:       patch.FeeStructure.Other,
		}
	}

	now := time.Now().UTC()
	current.Status = r.derive(current.TotalAmount, current.Discount, current.PaidAmount, current.DueDate, now)
	current.UpdatedAt = now

	const updateQuery = `UPDATE fees SET academic_year = :academic_year,
		fs_tuition = :fs_tuition, fs_admission = :fs_admission, fs_examination = :fs_examination,
		fs_library = :fs_library, fs_sports = :fs_sports, fs_transport = :fs_transport,
		fs_hostel = :fs_hostel, fs_other = :fs_other,
		total_amount = :total_amount, discount = :discount, due_date = :due_date,
		status = :status, updated_at = :updated_at
		WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateQuery, &current); err != nil {
		return nil, fmt.Errorf("update fee: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit fee update: %w", err)
	}
	return &current, nil
}

// Delete removes a fee unless payments reference it.
func (r *FeeRepository) Delete(ctx context.Context, id string) error {
	var paymentCount int
	if err := r.db.GetContext(ctx, &paymentCount, "SELECT COUNT(*) FROM payments WHERE fee_id = $1", id); err != nil {
		return fmt.Errorf("count fee payments: %w", err)
	}
	if paymentCount > 0 {
		return ErrFeeHasPayments
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM fees WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete fee result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApplyPayment inserts a payment and increments the fee's paid amount in
// a single transaction. The fee row is locked first, so concurrent
// recordings against the same fee serialize and no update is lost. A
// unique violation on the receipt number maps to ErrDuplicateReceipt so
// the caller can draw a fresh number and retry.
func (r *FeeRepository) ApplyPayment(ctx context.Context, payment *models.Payment) (fee *models.Fee, err error) {
	now := time.Now().UTC()
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = now
	}
	payment.CreatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery := fmt.Sprintf("SELECT %s FROM fees WHERE id = $1 FOR UPDATE", feeColumns)
	var current models.Fee
	if err = tx.GetContext(ctx, &current, lockQuery, payment.FeeID); err != nil {
		return nil, err
	}

	payment.StudentID = current.StudentID

	const insertPayment = `INSERT INTO payments (id, fee_id, student_id, amount, payment_date,
		payment_method, transaction_id, receipt_number, remarks, received_by, created_at)
		VALUES (:id, :fee_id, :student_id, :amount, :payment_date,
		:payment_method, :transaction_id, :receipt_number, :remarks, :received_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertPayment, payment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = fmt.Errorf("insert payment %s: %w", payment.ReceiptNumber, ErrDuplicateReceipt)
			return nil, err
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	current.PaidAmount += payment.Amount
	current.Status = r.derive(current.TotalAmount, current.Discount, current.PaidAmount, current.DueDate, now)
	current.UpdatedAt = now

	const updateFee = `UPDATE fees SET paid_amount = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateFee, current.ID, current.PaidAmount, current.Status, current.UpdatedAt); err != nil {
		return nil, fmt.Errorf("apply payment to fee: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return &current, nil
}

// Aggregate computes the fee report totals over the filtered set. The
// students join is only added when a class filter is present. Pending is
// the raw total minus paid; discounts are not subtracted here, matching
// the report's historical semantics.
func (r *FeeRepository) Aggregate(ctx context.Context, filter models.ReportFilter) (*dto.FeeReport, error) {
	base := "FROM fees f"
	if filter.ClassID != "" {
		base += " JOIN students s ON s.id = f.student_id"
	}

	var conditions []string
	var args []interface{}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("f.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("f.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT
		COALESCE(SUM(f.total_amount), 0) AS total_fees,
		COALESCE(SUM(f.paid_amount), 0) AS total_collected,
		COALESCE(SUM(f.total_amount - f.paid_amount), 0) AS total_pending,
		COUNT(*) AS count
		%s`, base+clause)

	var report dto.FeeReport
	if err := r.db.GetContext(ctx, &report, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate fees: %w", err)
	}
	return &report, nil
}
