package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Document carries everything needed to render a payment receipt.
type Document struct {
	ReceiptNumber string
	StudentName   string
	AcademicYear  string
	Amount        float64
	PaymentMethod string
	TransactionID string
	PaymentDate   time.Time
	ReceivedBy    string
	TotalAmount   float64
	PaidAmount    float64
	Discount      float64
	Remarks       string
}

// Renderer produces receipt PDFs with a configurable letterhead.
type Renderer struct {
	schoolName    string
	schoolAddress string
}

// NewRenderer constructs a renderer with the school letterhead.
func NewRenderer(schoolName, schoolAddress string) *Renderer {
	if schoolName == "" {
		schoolName = "School Fee Office"
	}
	return &Renderer{schoolName: schoolName, schoolAddress: schoolAddress}
}

// Render produces the PDF bytes for a payment receipt.
func (r *Renderer) Render(doc Document) ([]byte, error) {
	if doc.ReceiptNumber == "" {
		return nil, fmt.Errorf("receipt number required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, r.schoolName, "", 1, "C", false, 0, "")
	if r.schoolAddress != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, r.schoolAddress, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, "FEE PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Receipt No.", doc.ReceiptNumber},
		{"Date", doc.PaymentDate.Format("02 Jan 2006 15:04")},
		{"Student", doc.StudentName},
		{"Academic Year", doc.AcademicYear},
		{"Payment Method", doc.PaymentMethod},
	}
	if doc.TransactionID != "" {
		rows = append(rows, [2]string{"Transaction Ref.", doc.TransactionID})
	}
	if doc.ReceivedBy != "" {
		rows = append(rows, [2]string{"Received By", doc.ReceivedBy})
	}
	for _, row := range rows {
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(50, 9, "Amount Paid", "1", 0, "", false, 0, "")
	pdf.CellFormat(130, 9, fmt.Sprintf("%.2f", doc.Amount), "1", 1, "", false, 0, "")

	outstanding := doc.TotalAmount - doc.Discount - doc.PaidAmount
	if outstanding < 0 {
		outstanding = 0
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(50, 8, "Total Paid To Date", "1", 0, "", false, 0, "")
	pdf.CellFormat(130, 8, fmt.Sprintf("%.2f", doc.PaidAmount), "1", 1, "", false, 0, "")
	pdf.CellFormat(50, 8, "Balance Due", "1", 0, "", false, 0, "")
	pdf.CellFormat(130, 8, fmt.Sprintf("%.2f", outstanding), "1", 1, "", false, 0, "")

	if doc.Remarks != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, "Remarks: "+doc.Remarks, "", "", false)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "This is a system generated receipt.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
