package receipt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererRender(t *testing.T) {
	r := NewRenderer("Edulink School", "12 School Road")

	data, err := r.Render(Document{
		ReceiptNumber: "REC2026000001",
		StudentName:   "Aarav Sharma",
		AcademicYear:  "2026-2027",
		Amount:        400,
		PaymentMethod: "CASH",
		PaymentDate:   time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		ReceivedBy:    "Fee Accountant",
		TotalAmount:   1000,
		PaidAmount:    400,
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRendererRenderMinimalDocument(t *testing.T) {
	r := NewRenderer("Edulink School", "")

	data, err := r.Render(Document{ReceiptNumber: "REC2026000002", PaymentDate: time.Now()})
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestRendererRenderWithRemarksAndTransaction(t *testing.T) {
	r := NewRenderer("Edulink School", "12 School Road")

	data, err := r.Render(Document{
		ReceiptNumber: "REC2026000003",
		StudentName:   "Diya Patel",
		AcademicYear:  "2026-2027",
		Amount:        250.50,
		PaymentMethod: "BANK_TRANSFER",
		TransactionID: "TXN-778899",
		PaymentDate:   time.Now(),
		TotalAmount:   1000,
		PaidAmount:    1000,
		Discount:      100,
		Remarks:       "Final installment for the year",
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
