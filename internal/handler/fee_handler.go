package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/middleware"
	"github.com/edulink/school-fees-api/internal/models"
	appErrors "github.com/edulink/school-fees-api/pkg/errors"
	"github.com/edulink/school-fees-api/pkg/response"
)

type feeLedgerService interface {
	Create(ctx context.Context, req dto.CreateFeeRequest) (*models.FeeDetail, error)
	Get(ctx context.Context, id string) (*dto.FeeDetailResponse, error)
	List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateFeeRequest) (*models.FeeDetail, error)
	Delete(ctx context.Context, id string) error
	Report(ctx context.Context, filter models.ReportFilter) (*dto.FeeReport, error)
	ExportCSV(ctx context.Context, filter models.FeeFilter) ([]byte, error)
	PaymentHistory(ctx context.Context, studentID string) ([]models.Payment, error)
}

type paymentRecorder interface {
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.RecordPaymentResponse, error)
}

type receiptResolver interface {
	ResolveDownload(token string) (io.ReadCloser, error)
	TokenForPayment(ctx context.Context, paymentID string) (*dto.ReceiptInfo, error)
}

// FeeHandler exposes the fee ledger endpoints.
type FeeHandler struct {
	fees     feeLedgerService
	payments paymentRecorder
	receipts receiptResolver
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees feeLedgerService, payments paymentRecorder, receipts receiptResolver) *FeeHandler {
	return &FeeHandler{fees: fees, payments: payments, receipts: receipts}
}

// Create godoc
// @Summary Create fee record
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req dto.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// List godoc
// @Summary List fees
// @Tags Fees
// @Produce json
// @Param academicYear query string false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Param studentId query string false "Filter by student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	var filter models.FeeFilter
	filter.AcademicYear = c.Query("academicYear")
	filter.ClassID = c.Query("classId")
	filter.StudentID = c.Query("studentId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.FeeStatus(strings.ToUpper(status))
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	fees, pagination, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, pagination, map[string]interface{}{"count": len(fees)})
}

// Get godoc
// @Summary Fetch a fee with its payments
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.fees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Update godoc
// @Summary Partially update a fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body dto.UpdateFeeRequest true "Fee patch"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [put]
func (h *FeeHandler) Update(c *gin.Context) {
	var req dto.UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete a fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 204
// @Router /fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	if err := h.fees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Report godoc
// @Summary Fee collection report
// @Tags Fees
// @Produce json
// @Param academicYear query string false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /fees/report [get]
func (h *FeeHandler) Report(c *gin.Context) {
	var filter models.ReportFilter
	filter.AcademicYear = c.Query("academicYear")
	filter.ClassID = c.Query("classId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.FeeStatus(strings.ToUpper(status))
	}

	report, err := h.fees.Report(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export the fee ledger as CSV
// @Tags Fees
// @Produce text/csv
// @Param academicYear query string false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Param studentId query string false "Filter by student"
// @Success 200 {file} file
// @Router /fees/export [get]
func (h *FeeHandler) Export(c *gin.Context) {
	var filter models.FeeFilter
	filter.AcademicYear = c.Query("academicYear")
	filter.ClassID = c.Query("classId")
	filter.StudentID = c.Query("studentId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.FeeStatus(strings.ToUpper(status))
	}

	data, err := h.fees.ExportCSV(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="fees.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// RecordPayment godoc
// @Summary Record a payment against a fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /fees/payment [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var claims *models.JWTClaims
	if claimsValue, exists := c.Get(middleware.ContextUserKey); exists {
		claims = claimsValue.(*models.JWTClaims)
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// PaymentHistory godoc
// @Summary List a student's payment history
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *FeeHandler) PaymentHistory(c *gin.Context) {
	payments, err := h.fees.PaymentHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil, map[string]interface{}{"count": len(payments)})
}

// ReceiptToken godoc
// @Summary Issue a fresh receipt download token for a payment
// @Tags Fees
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/receipt [get]
func (h *FeeHandler) ReceiptToken(c *gin.Context) {
	info, err := h.receipts.TokenForPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "payment not found"))
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// DownloadReceipt godoc
// @Summary Download a receipt artifact by signed token
// @Tags Fees
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /receipts/{token} [get]
func (h *FeeHandler) DownloadReceipt(c *gin.Context) {
	artifact, err := h.receipts.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, http.StatusForbidden, "invalid or expired receipt token"))
		return
	}
	defer artifact.Close() //nolint:errcheck

	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, artifact); err != nil {
		c.Abort()
	}
}
