package models

import "time"

// FeeStatus represents the lifecycle of a fee obligation. It is derived
// from the fee's amounts and due date and never accepted from a caller.
type FeeStatus string

// Possible fee statuses.
const (
	FeeStatusPending FeeStatus = "PENDING"
	FeeStatusPartial FeeStatus = "PARTIAL"
	FeeStatusPaid    FeeStatus = "PAID"
	FeeStatusOverdue FeeStatus = "OVERDUE"
)

// Valid reports whether the status is one of the known values.
func (s FeeStatus) Valid() bool {
	switch s {
	case FeeStatusPending, FeeStatusPartial, FeeStatusPaid, FeeStatusOverdue:
		return true
	}
	return false
}

// FeeStructure breaks the total obligation down by category.
type FeeStructure struct {
	Tuition     float64 `db:"fs_tuition" json:"tuition"`
	Admission   float64 `db:"fs_admission" json:"admission"`
	Examination float64 `db:"fs_examination" json:"examination"`
	Library     float64 `db:"fs_library" json:"library"`
	Sports      float64 `db:"fs_sports" json:"sports"`
	Transport   float64 `db:"fs_transport" json:"transport"`
	Hostel      float64 `db:"fs_hostel" json:"hostel"`
	Other       float64 `db:"fs_other" json:"other"`
}

// Fee is a student's aggregate financial obligation for one academic year.
type Fee struct {
	ID           string     `db:"id" json:"id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	AcademicYear string     `db:"academic_year" json:"academic_year"`
	FeeStructure
	TotalAmount float64    `db:"total_amount" json:"total_amount"`
	PaidAmount  float64    `db:"paid_amount" json:"paid_amount"`
	Discount    float64    `db:"discount" json:"discount"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Status      FeeStatus  `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NetAmount is the actual amount owed after discount.
func (f *Fee) NetAmount() float64 {
	return f.TotalAmount - f.Discount
}

// Installment is one entry of an informational payment schedule. It is
// not reconciled against the fee's paid amount.
type Installment struct {
	ID       string     `db:"id" json:"id"`
	FeeID    string     `db:"fee_id" json:"fee_id"`
	Amount   float64    `db:"amount" json:"amount"`
	DueDate  *time.Time `db:"due_date" json:"due_date,omitempty"`
	Status   FeeStatus  `db:"status" json:"status"`
	Position int        `db:"position" json:"position"`
}

// FeeDetail enriches Fee with student info for list and detail reads.
type FeeDetail struct {
	Fee
	StudentName string  `db:"student_name" json:"student_name"`
	ClassID     *string `db:"class_id" json:"class_id,omitempty"`
}

// FeeFilter provides filters for listing fees. Provided fields are
// combined as a conjunction; ClassID joins through students.
type FeeFilter struct {
	AcademicYear string
	ClassID      string
	Status       FeeStatus
	StudentID    string
	Page         int
	PageSize     int
}

// ReportFilter narrows the fee report aggregation.
type ReportFilter struct {
	AcademicYear string
	ClassID      string
	Status       FeeStatus
}
