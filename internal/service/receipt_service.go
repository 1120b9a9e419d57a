package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/models"
	"github.com/edulink/school-fees-api/pkg/jobs"
	"github.com/edulink/school-fees-api/pkg/receipt"
	"github.com/edulink/school-fees-api/pkg/storage"
)

// receiptCounter is the name of the dedicated receipt sequence.
const receiptCounter = "receipts"

// Receipt artifact states reported to callers.
const (
	ReceiptStatusReady   = "ready"
	ReceiptStatusPending = "pending"
	ReceiptStatusFailed  = "failed"
)

type sequenceSource interface {
	Next(ctx context.Context, name string) (int64, error)
}

type receiptPaymentStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	SetReceiptPath(ctx context.Context, id, path string) error
}

type receiptFileStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (io.ReadCloser, error)
}

// renderReceiptJob is the payload carried by queued render jobs.
type renderReceiptJob struct {
	PaymentID string
	Filename  string
	Document  receipt.Document
}

// ReceiptService owns receipt numbering and the receipt artifact
// pipeline: atomic sequence draw, PDF rendering, storage and signed
// download tokens. Rendering is best-effort; a failed artifact never
// fails the payment it belongs to.
type ReceiptService struct {
	sequences sequenceSource
	payments  receiptPaymentStore
	renderer  *receipt.Renderer
	store     receiptFileStore
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	async     bool
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
}

// ReceiptServiceConfig wires the queue behaviour.
type ReceiptServiceConfig struct {
	Async      bool
	Workers    int
	MaxRetries int
}

// NewReceiptService constructs the service and its render queue.
func NewReceiptService(sequences sequenceSource, payments receiptPaymentStore, renderer *receipt.Renderer, store receiptFileStore, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ReceiptServiceConfig) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		sequences: sequences,
		payments:  payments,
		renderer:  renderer,
		store:     store,
		signer:    signer,
		async:     cfg.Async,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
	s.queue = jobs.NewQueue("receipts", s.handleRenderJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the render workers.
func (s *ReceiptService) Start(ctx context.Context) {
	if s.async {
		s.queue.Start(ctx)
	}
}

// Stop drains the render workers.
func (s *ReceiptService) Stop() {
	if s.async {
		s.queue.Stop()
	}
}

// NextNumber draws the next receipt number. The underlying sequence is
// an atomic fetch-and-increment, so concurrent draws never collide.
// Format: REC<4-digit year><6-digit zero-padded sequence>.
func (s *ReceiptService) NextNumber(ctx context.Context) (string, error) {
	seq, err := s.sequences.Next(ctx, receiptCounter)
	if err != nil {
		return "", fmt.Errorf("draw receipt sequence: %w", err)
	}
	return fmt.Sprintf("REC%d%06d", s.now().Year(), seq), nil
}

// Generate produces the receipt artifact for a committed payment. In
// async mode the render is queued and the caller sees a pending state;
// otherwise it renders inline and returns a signed download token.
// Failures are logged and reported as a degraded state, never as an
// error: the payment is the source of truth.
func (s *ReceiptService) Generate(ctx context.Context, payment *models.Payment, fee *models.Fee, studentName, receivedBy string) dto.ReceiptInfo {
	doc := receipt.Document{
		ReceiptNumber: payment.ReceiptNumber,
		StudentName:   studentName,
		AcademicYear:  fee.AcademicYear,
		Amount:        payment.Amount,
		PaymentMethod: string(payment.PaymentMethod),
		PaymentDate:   payment.PaymentDate,
		ReceivedBy:    receivedBy,
		TotalAmount:   fee.TotalAmount,
		PaidAmount:    fee.PaidAmount,
		Discount:      fee.Discount,
	}
	if payment.TransactionID != nil {
		doc.TransactionID = *payment.TransactionID
	}
	if payment.Remarks != nil {
		doc.Remarks = *payment.Remarks
	}

	filename := fmt.Sprintf("%d/%s.pdf", payment.PaymentDate.Year(), payment.ReceiptNumber)

	if s.async {
		err := s.queue.Enqueue(jobs.Job{
			ID:      payment.ID,
			Type:    "render_receipt",
			Payload: renderReceiptJob{PaymentID: payment.ID, Filename: filename, Document: doc},
		})
		if err != nil {
			s.logger.Warn("failed to enqueue receipt render",
				zap.String("payment_id", payment.ID),
				zap.String("receipt_number", payment.ReceiptNumber),
				zap.Error(err))
			return dto.ReceiptInfo{Status: ReceiptStatusFailed}
		}
		return dto.ReceiptInfo{Status: ReceiptStatusPending}
	}

	if err := s.render(ctx, renderReceiptJob{PaymentID: payment.ID, Filename: filename, Document: doc}); err != nil {
		s.logger.Warn("failed to render receipt",
			zap.String("payment_id", payment.ID),
			zap.String("receipt_number", payment.ReceiptNumber),
			zap.Error(err))
		return dto.ReceiptInfo{Status: ReceiptStatusFailed}
	}

	token, expiresAt, err := s.signer.Generate(payment.ID, filename)
	if err != nil {
		s.logger.Warn("failed to sign receipt token", zap.String("payment_id", payment.ID), zap.Error(err))
		return dto.ReceiptInfo{Status: ReceiptStatusReady}
	}
	return dto.ReceiptInfo{Status: ReceiptStatusReady, DownloadToken: token, ExpiresAt: &expiresAt}
}

// TokenForPayment looks up a payment and returns a fresh signed download
// token for its receipt. A payment whose artifact has not been rendered
// yet reports a pending state.
func (s *ReceiptService) TokenForPayment(ctx context.Context, paymentID string) (*dto.ReceiptInfo, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.TokenFor(payment)
}

// TokenFor returns a fresh signed download token for an already rendered
// payment receipt.
func (s *ReceiptService) TokenFor(payment *models.Payment) (*dto.ReceiptInfo, error) {
	if payment.ReceiptPath == nil || *payment.ReceiptPath == "" {
		return &dto.ReceiptInfo{Status: ReceiptStatusPending}, nil
	}
	token, expiresAt, err := s.signer.Generate(payment.ID, *payment.ReceiptPath)
	if err != nil {
		return nil, fmt.Errorf("sign receipt token: %w", err)
	}
	return &dto.ReceiptInfo{Status: ReceiptStatusReady, DownloadToken: token, ExpiresAt: &expiresAt}, nil
}

// ResolveDownload validates a download token and opens the stored
// artifact for streaming. The caller owns the returned handle.
func (s *ReceiptService) ResolveDownload(token string) (io.ReadCloser, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, err
	}
	return s.store.Open(relPath)
}

func (s *ReceiptService) handleRenderJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(renderReceiptJob)
	if !ok {
		s.logger.Error("unexpected receipt job payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.render(ctx, payload)
}

func (s *ReceiptService) render(ctx context.Context, job renderReceiptJob) error {
	data, err := s.renderer.Render(job.Document)
	if err != nil {
		s.metrics.RecordReceiptRendered(false)
		return err
	}
	if _, err := s.store.Save(job.Filename, data); err != nil {
		s.metrics.RecordReceiptRendered(false)
		return err
	}
	if err := s.payments.SetReceiptPath(ctx, job.PaymentID, job.Filename); err != nil {
		s.metrics.RecordReceiptRendered(false)
		return err
	}
	s.metrics.RecordReceiptRendered(true)
	s.logger.Info("receipt rendered",
		zap.String("payment_id", job.PaymentID),
		zap.String("receipt_number", job.Document.ReceiptNumber),
		zap.String("path", job.Filename))
	return nil
}
