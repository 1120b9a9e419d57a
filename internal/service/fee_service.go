package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/models"
	"github.com/edulink/school-fees-api/internal/repository"
	appErrors "github.com/edulink/school-fees-api/pkg/errors"
	"github.com/edulink/school-fees-api/pkg/export"
)

// feeReportCachePrefix namespaces cached report payloads in Redis.
const feeReportCachePrefix = "feereport:"

// exportPageSize bounds how many rows each export page fetches.
const exportPageSize = 500

type feeRepository interface {
	Create(ctx context.Context, fee *models.Fee, installments []models.Installment) error
	FindByID(ctx context.Context, id string) (*models.Fee, error)
	FindDetailByID(ctx context.Context, id string) (*models.FeeDetail, error)
	ListInstallments(ctx context.Context, feeID string) ([]models.Installment, error)
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, int, error)
	Update(ctx context.Context, id string, patch dto.UpdateFeeRequest) (*models.Fee, error)
	Delete(ctx context.Context, id string) error
	Aggregate(ctx context.Context, filter models.ReportFilter) (*dto.FeeReport, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsFeeForYear(ctx context.Context, studentID, academicYear string) (bool, error)
}

type feePaymentReader interface {
	ListByFee(ctx context.Context, feeID string) ([]models.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Payment, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FeeService orchestrates the fee ledger's CRUD and reporting paths.
type FeeService struct {
	repo      feeRepository
	students  studentReader
	payments  feePaymentReader
	cache     reportCache
	cacheTTL  time.Duration
	exporter  *export.CSVExporter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService constructs FeeService.
func NewFeeService(repo feeRepository, students studentReader, payments feePaymentReader, cache reportCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &FeeService{repo: repo, students: students, payments: payments, cache: cache, cacheTTL: cacheTTL, exporter: export.NewCSVExporter(), metrics: metrics, validator: validate, logger: logger}
}

// Create registers a fee obligation for a student and academic year.
func (s *FeeService) Create(ctx context.Context, req dto.CreateFeeRequest) (*models.FeeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is inactive")
	}

	exists, err := s.students.ExistsFeeForYear(ctx, req.StudentID, req.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate fee")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "fee record already exists for this academic year")
	}

	fee := &models.Fee{
		StudentID:    req.StudentID,
		AcademicYear: req.AcademicYear,
		TotalAmount:  req.TotalAmount,
		Discount:     req.Discount,
		DueDate:      req.DueDate,
	}
	if req.FeeStructure != nil {
		fee.FeeStructure = models.FeeStructure{
			Tuition:     req.FeeStructure.Tuition,
			Admission:   req.FeeStructure.Admission,
			Examination: req.FeeStructure.Examination,
			Library:     req.FeeStructure.Library,
			Sports:      req.FeeStructure.Sports,
			Transport:   req.FeeStructure.Transport,
			Hostel:      req.FeeStructure.Hostel,
			Other:       req.FeeStructure.Other,
		}
	}

	installments := make([]models.Installment, 0, len(req.Installments))
	for _, input := range req.Installments {
		installments = append(installments, models.Installment{Amount: input.Amount, DueDate: input.DueDate})
	}

	if err := s.repo.Create(ctx, fee, installments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}

	s.invalidateReportCache(ctx)

	detail, err := s.repo.FindDetailByID(ctx, fee.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee detail")
	}
	return detail, nil
}

// Get returns a fee with its installments and payments populated.
func (s *FeeService) Get(ctx context.Context, id string) (*dto.FeeDetailResponse, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee")
	}

	installments, err := s.repo.ListInstallments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installments")
	}

	payments, err := s.payments.ListByFee(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	return &dto.FeeDetailResponse{FeeDetail: *detail, Installments: installments, Payments: payments}, nil
}

// List returns fees matching the filter with pagination metadata.
func (s *FeeService) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee status")
	}
	fees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return fees, pagination, nil
}

// Update applies a partial update to a fee's settable fields. Status is
// owned by the deriver; the request shape cannot carry one, so a caller
// sending it sees it silently dropped.
func (s *FeeService) Update(ctx context.Context, id string, req dto.UpdateFeeRequest) (*models.FeeDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}

	if _, err := s.repo.Update(ctx, id, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee")
	}

	s.invalidateReportCache(ctx)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee detail")
	}
	return detail, nil
}

// Delete removes a fee. Fees with recorded payments cannot be removed.
func (s *FeeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "fee record not found")
		}
		if errors.Is(err, repository.ErrFeeHasPayments) {
			return appErrors.Clone(appErrors.ErrConflict, "fee has recorded payments and cannot be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee")
	}
	s.invalidateReportCache(ctx)
	return nil
}

// Report aggregates collection totals over the filtered fee set. Results
// are cached; any ledger write invalidates the cache.
func (s *FeeService) Report(ctx context.Context, filter models.ReportFilter) (*dto.FeeReport, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee status")
	}

	key := fmt.Sprintf("%s%s:%s:%s", feeReportCachePrefix, filter.AcademicYear, filter.ClassID, filter.Status)

	var cached dto.FeeReport
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordCacheOperation(true)
		return &cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("fee report cache read failed", zap.Error(err))
	}
	s.metrics.RecordCacheOperation(false)

	report, err := s.repo.Aggregate(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build fee report")
	}

	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		s.logger.Warn("fee report cache write failed", zap.Error(err))
	}
	return report, nil
}

// PaymentHistory returns all payments recorded for a student, newest
// first.
func (s *FeeService) PaymentHistory(ctx context.Context, studentID string) ([]models.Payment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payments, err := s.payments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// ExportCSV renders the filtered fee ledger as a CSV document. The
// export pages through the full result set regardless of the filter's
// pagination fields.
func (s *FeeService) ExportCSV(ctx context.Context, filter models.FeeFilter) ([]byte, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fee status")
	}

	filter.Page = 1
	filter.PageSize = exportPageSize

	dataset := export.Dataset{
		Headers: []string{"student_name", "student_id", "academic_year", "total_amount", "discount", "paid_amount", "balance", "status", "due_date"},
	}
	for {
		fees, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export fees")
		}
		for _, fee := range fees {
			row := map[string]string{
				"student_name":  fee.StudentName,
				"student_id":    fee.StudentID,
				"academic_year": fee.AcademicYear,
				"total_amount":  strconv.FormatFloat(fee.TotalAmount, 'f', 2, 64),
				"discount":      strconv.FormatFloat(fee.Discount, 'f', 2, 64),
				"paid_amount":   strconv.FormatFloat(fee.PaidAmount, 'f', 2, 64),
				"balance":       strconv.FormatFloat(fee.NetAmount()-fee.PaidAmount, 'f', 2, 64),
				"status":        string(fee.Status),
			}
			if fee.DueDate != nil {
				row["due_date"] = fee.DueDate.Format("2006-01-02")
			}
			dataset.Rows = append(dataset.Rows, row)
		}
		if len(dataset.Rows) >= total || len(fees) == 0 {
			break
		}
		filter.Page++
	}

	return s.exporter.Render(dataset)
}

func (s *FeeService) invalidateReportCache(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, feeReportCachePrefix+"*"); err != nil {
		s.logger.Warn("fee report cache invalidation failed", zap.Error(err))
	}
}
