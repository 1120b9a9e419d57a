package models

import "time"

// PaymentMethod enumerates the accepted payment channels.
type PaymentMethod string

// Accepted payment methods.
const (
	MethodCash         PaymentMethod = "CASH"
	MethodCheque       PaymentMethod = "CHEQUE"
	MethodOnline       PaymentMethod = "ONLINE"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether the method is one of the known values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCheque, MethodOnline, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

// Payment is one immutable transaction against a fee. Records are
// append-only; only the receipt artifact path is backfilled after the
// asynchronous render completes.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	FeeID         string        `db:"fee_id" json:"fee_id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentDate   time.Time     `db:"payment_date" json:"payment_date"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	TransactionID *string       `db:"transaction_id" json:"transaction_id,omitempty"`
	ReceiptNumber string        `db:"receipt_number" json:"receipt_number"`
	Remarks       *string       `db:"remarks" json:"remarks,omitempty"`
	ReceivedBy    *string       `db:"received_by" json:"received_by,omitempty"`
	ReceiptPath   *string       `db:"receipt_path" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
