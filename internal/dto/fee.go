package dto

import (
	"time"

	"github.com/edulink/school-fees-api/internal/models"
)

// FeeStructureInput carries the per-category breakdown on fee writes.
type FeeStructureInput struct {
	Tuition     float64 `json:"tuition" validate:"gte=0"`
	Admission   float64 `json:"admission" validate:"gte=0"`
	Examination float64 `json:"examination" validate:"gte=0"`
	Library     float64 `json:"library" validate:"gte=0"`
	Sports      float64 `json:"sports" validate:"gte=0"`
	Transport   float64 `json:"transport" validate:"gte=0"`
	Hostel      float64 `json:"hostel" validate:"gte=0"`
	Other       float64 `json:"other" validate:"gte=0"`
}

// InstallmentInput describes one entry of the informational schedule.
type InstallmentInput struct {
	Amount  float64    `json:"amount" validate:"gt=0"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// CreateFeeRequest creates a fee obligation for a student and year.
// Status is never part of the payload; it is derived on save.
type CreateFeeRequest struct {
	StudentID    string             `json:"student_id" validate:"required"`
	AcademicYear string             `json:"academic_year" validate:"required"`
	FeeStructure *FeeStructureInput `json:"fee_structure,omitempty"`
	TotalAmount  float64            `json:"total_amount" validate:"gte=0"`
	Discount     float64            `json:"discount" validate:"gte=0"`
	DueDate      *time.Time         `json:"due_date,omitempty"`
	Installments []InstallmentInput `json:"installments,omitempty" validate:"dive"`
}

// UpdateFeeRequest partially updates the externally settable fields of a
// fee. There is deliberately no status field: status belongs to the
// deriver and any status key in the inbound JSON is dropped on binding.
type UpdateFeeRequest struct {
	AcademicYear *string            `json:"academic_year,omitempty"`
	FeeStructure *FeeStructureInput `json:"fee_structure,omitempty"`
	TotalAmount  *float64           `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	Discount     *float64           `json:"discount,omitempty" validate:"omitempty,gte=0"`
	DueDate      *time.Time         `json:"due_date,omitempty"`
}

// RecordPaymentRequest records one payment against a fee.
type RecordPaymentRequest struct {
	FeeID         string  `json:"fee_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"required"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Remarks       string  `json:"remarks,omitempty"`
}

// ReceiptInfo reports the state of the receipt artifact for a payment.
type ReceiptInfo struct {
	Status        string     `json:"status"`
	DownloadToken string     `json:"download_token,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// RecordPaymentResponse returns the committed payment, the updated fee
// snapshot and the receipt artifact state.
type RecordPaymentResponse struct {
	Payment *models.Payment `json:"payment"`
	Fee     *models.Fee     `json:"fee"`
	Receipt ReceiptInfo     `json:"receipt"`
}

// FeeDetailResponse is a fee with its payments populated.
type FeeDetailResponse struct {
	models.FeeDetail
	Installments []models.Installment `json:"installments,omitempty"`
	Payments     []models.Payment     `json:"payments"`
}

// FeeReport aggregates totals over the filtered fee set.
type FeeReport struct {
	TotalFees      float64 `json:"totalFees" db:"total_fees"`
	TotalCollected float64 `json:"totalCollected" db:"total_collected"`
	TotalPending   float64 `json:"totalPending" db:"total_pending"`
	Count          int     `json:"count" db:"count"`
}
