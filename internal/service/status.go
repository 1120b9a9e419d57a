package service

import (
	"time"

	"github.com/edulink/school-fees-api/internal/models"
)

// DeriveStatus computes a fee's status from its amounts and due date.
// It is a total function of its inputs and carries no side effects; the
// repositories call it before every fee write so persisted status never
// drifts from the fee's fields.
//
// A fully discounted fee (net amount <= 0) is PAID even with nothing
// paid. Overdue only shows once a write happens after the due date;
// there is no background sweep re-deriving idle fees.
func DeriveStatus(totalAmount, discount, paidAmount float64, dueDate *time.Time, now time.Time) models.FeeStatus {
	netAmount := totalAmount - discount
	switch {
	case paidAmount >= netAmount:
		return models.FeeStatusPaid
	case paidAmount > 0:
		return models.FeeStatusPartial
	case dueDate != nil && now.After(*dueDate):
		return models.FeeStatusOverdue
	default:
		return models.FeeStatusPending
	}
}
