package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/models"
	"github.com/edulink/school-fees-api/internal/repository"
	appErrors "github.com/edulink/school-fees-api/pkg/errors"
)

// maxReceiptAttempts bounds regeneration after a duplicate receipt
// number before the conflict surfaces to the caller.
const maxReceiptAttempts = 3

type paymentLedger interface {
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	ApplyPayment(ctx context.Context, payment *models.Payment) (*models.Fee, error)
}

type paymentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type receiptIssuer interface {
	NextNumber(ctx context.Context) (string, error)
	Generate(ctx context.Context, payment *models.Payment, fee *models.Fee, studentName, receivedBy string) dto.ReceiptInfo
}

// PaymentService is the payment recorder: the one write path that must
// keep the fee's paid amount and the payment ledger mutually consistent.
type PaymentService struct {
	fees      paymentLedger
	students  paymentStudentReader
	receipts  receiptIssuer
	cache     reportCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(fees paymentLedger, students paymentStudentReader, receipts receiptIssuer, cache reportCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{fees: fees, students: students, receipts: receipts, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// RecordPayment validates and commits one payment against a fee, then
// hands the receipt artifact off to the receipt pipeline. The payment
// insert and the fee mutation commit in one storage transaction; receipt
// rendering stays outside it and can only degrade the response, never
// roll the payment back.
func (s *PaymentService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.RecordPaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	method := normalizeMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	if _, err := s.fees.FindByID(ctx, req.FeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	payment := &models.Payment{
		FeeID:         req.FeeID,
		Amount:        req.Amount,
		PaymentMethod: method,
	}
	if req.TransactionID != "" {
		payment.TransactionID = &req.TransactionID
	}
	if req.Remarks != "" {
		payment.Remarks = &req.Remarks
	}
	receivedByName := ""
	if actor != nil {
		payment.ReceivedBy = &actor.UserID
		receivedByName = actor.FullName
	}

	var fee *models.Fee
	var err error
	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		payment.ReceiptNumber, err = s.receipts.NextNumber(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate receipt number")
		}

		fee, err = s.fees.ApplyPayment(ctx, payment)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateReceipt) {
			s.logger.Warn("receipt number collision, retrying",
				zap.String("receipt_number", payment.ReceiptNumber),
				zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "could not allocate a unique receipt number")
	}

	s.metrics.RecordPaymentRecorded(payment.Amount)

	if err := s.cache.DeleteByPattern(ctx, feeReportCachePrefix+"*"); err != nil {
		s.logger.Warn("fee report cache invalidation failed", zap.Error(err))
	}

	studentName := ""
	if student, err := s.students.FindByID(ctx, fee.StudentID); err != nil {
		s.logger.Warn("failed to load student for receipt", zap.String("student_id", fee.StudentID), zap.Error(err))
	} else {
		studentName = student.FullName
	}

	receiptInfo := s.receipts.Generate(ctx, payment, fee, studentName, receivedByName)

	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("fee_id", fee.ID),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.Float64("amount", payment.Amount),
		zap.String("fee_status", string(fee.Status)))

	return &dto.RecordPaymentResponse{Payment: payment, Fee: fee, Receipt: receiptInfo}, nil
}

// normalizeMethod maps inbound method spellings ("Bank Transfer",
// "bank_transfer") onto the canonical enum values.
func normalizeMethod(raw string) models.PaymentMethod {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	cleaned = strings.ReplaceAll(cleaned, "-", "_")
	return models.PaymentMethod(cleaned)
}
