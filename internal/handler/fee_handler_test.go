package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulink/school-fees-api/internal/dto"
	"github.com/edulink/school-fees-api/internal/middleware"
	"github.com/edulink/school-fees-api/internal/models"
	appErrors "github.com/edulink/school-fees-api/pkg/errors"
)

type feeServiceMock struct {
	createResp *models.FeeDetail
	createErr  error
	getResp    *dto.FeeDetailResponse
	getErr     error
	listResp   []models.FeeDetail
	listErr    error
	updateResp *models.FeeDetail
	updateErr  error
	deleteErr  error
	reportResp *dto.FeeReport
	reportErr  error
	exportResp  []byte
	exportErr   error
	historyResp []models.Payment
	historyErr  error
	lastFilter  models.FeeFilter
	lastReport  models.ReportFilter
}

func (m *feeServiceMock) Create(ctx context.Context, req dto.CreateFeeRequest) (*models.FeeDetail, error) {
	return m.createResp, m.createErr
}

func (m *feeServiceMock) Get(ctx context.Context, id string) (*dto.FeeDetailResponse, error) {
	return m.getResp, m.getErr
}

func (m *feeServiceMock) List(ctx context.Context, filter models.FeeFilter) ([]models.FeeDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *feeServiceMock) Update(ctx context.Context, id string, req dto.UpdateFeeRequest) (*models.FeeDetail, error) {
	return m.updateResp, m.updateErr
}

func (m *feeServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *feeServiceMock) Report(ctx context.Context, filter models.ReportFilter) (*dto.FeeReport, error) {
	m.lastReport = filter
	return m.reportResp, m.reportErr
}

func (m *feeServiceMock) ExportCSV(ctx context.Context, filter models.FeeFilter) ([]byte, error) {
	m.lastFilter = filter
	return m.exportResp, m.exportErr
}

func (m *feeServiceMock) PaymentHistory(ctx context.Context, studentID string) ([]models.Payment, error) {
	return m.historyResp, m.historyErr
}

type paymentRecorderMock struct {
	resp      *dto.RecordPaymentResponse
	err       error
	lastActor *models.JWTClaims
}

func (m *paymentRecorderMock) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor *models.JWTClaims) (*dto.RecordPaymentResponse, error) {
	m.lastActor = actor
	return m.resp, m.err
}

type receiptResolverMock struct {
	artifact []byte
	err      error
	info     *dto.ReceiptInfo
	tokenErr error
}

func (m *receiptResolverMock) ResolveDownload(token string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewReader(m.artifact)), nil
}

func (m *receiptResolverMock) TokenForPayment(ctx context.Context, paymentID string) (*dto.ReceiptInfo, error) {
	return m.info, m.tokenErr
}

func newFeeHandlerTest(fees *feeServiceMock, payments *paymentRecorderMock, receipts *receiptResolverMock) *FeeHandler {
	gin.SetMode(gin.TestMode)
	if fees == nil {
		fees = &feeServiceMock{}
	}
	if payments == nil {
		payments = &paymentRecorderMock{}
	}
	if receipts == nil {
		receipts = &receiptResolverMock{}
	}
	return NewFeeHandler(fees, payments, receipts)
}

func TestFeeHandlerCreate(t *testing.T) {
	mockSvc := &feeServiceMock{createResp: &models.FeeDetail{Fee: models.Fee{ID: "f1", Status: models.FeeStatusPending}}}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	body, _ := json.Marshal(dto.CreateFeeRequest{StudentID: "s1", AcademicYear: "2026-2027", TotalAmount: 1000})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/fees", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestFeeHandlerCreateInvalidBody(t *testing.T) {
	handler := newFeeHandlerTest(nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/fees", bytes.NewBufferString(`{"student_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeeHandlerListParsesFilter(t *testing.T) {
	mockSvc := &feeServiceMock{listResp: []models.FeeDetail{{Fee: models.Fee{ID: "f1"}}}}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/fees?academicYear=2026-2027&status=partial&classId=10-A&page=2&limit=5", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-2027", mockSvc.lastFilter.AcademicYear)
	assert.Equal(t, models.FeeStatusPartial, mockSvc.lastFilter.Status)
	assert.Equal(t, "10-A", mockSvc.lastFilter.ClassID)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
}

func TestFeeHandlerGetNotFound(t *testing.T) {
	mockSvc := &feeServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "fee record not found")}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/fees/ghost", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeeHandlerDeleteConflict(t *testing.T) {
	mockSvc := &feeServiceMock{deleteErr: appErrors.Clone(appErrors.ErrConflict, "fee has recorded payments and cannot be deleted")}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/fees/f1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	handler.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestFeeHandlerDelete(t *testing.T) {
	handler := newFeeHandlerTest(&feeServiceMock{}, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/fees/f1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	handler.Delete(c)
	// Direct invocation skips gin's response flush, so force the
	// deferred status header out before asserting on it.
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestFeeHandlerReport(t *testing.T) {
	mockSvc := &feeServiceMock{reportResp: &dto.FeeReport{TotalFees: 1500, TotalCollected: 900, TotalPending: 600, Count: 2}}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/fees/report?academicYear=2026-2027&status=paid", nil)
	c.Request = req

	handler.Report(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FeeStatusPaid, mockSvc.lastReport.Status)

	var envelope struct {
		Data dto.FeeReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 600.0, envelope.Data.TotalPending)
}

func TestFeeHandlerRecordPaymentPassesActor(t *testing.T) {
	recorder := &paymentRecorderMock{resp: &dto.RecordPaymentResponse{
		Payment: &models.Payment{ID: "p1", ReceiptNumber: "REC2026000001"},
		Fee:     &models.Fee{ID: "f1"},
	}}
	handler := newFeeHandlerTest(nil, recorder, nil)

	body, _ := json.Marshal(dto.RecordPaymentRequest{FeeID: "f1", Amount: 400, PaymentMethod: "CASH"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/fees/payment", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAccountant, FullName: "Fee Accountant"})

	handler.RecordPayment(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, recorder.lastActor)
	assert.Equal(t, "u1", recorder.lastActor.UserID)
}

func TestFeeHandlerExport(t *testing.T) {
	mockSvc := &feeServiceMock{exportResp: []byte("student_name,student_id\n")}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/fees/export?academicYear=2026-2027", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fees.csv")
	assert.Equal(t, "2026-2027", mockSvc.lastFilter.AcademicYear)
}

func TestFeeHandlerPaymentHistory(t *testing.T) {
	mockSvc := &feeServiceMock{historyResp: []models.Payment{{ID: "p1", StudentID: "s1"}}}
	handler := newFeeHandlerTest(mockSvc, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students/s1/payments", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.PaymentHistory(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestFeeHandlerReceiptTokenNotFound(t *testing.T) {
	handler := newFeeHandlerTest(nil, nil, &receiptResolverMock{tokenErr: sql.ErrNoRows})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payments/ghost/receipt", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}

	handler.ReceiptToken(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeeHandlerDownloadReceiptStreamsArtifact(t *testing.T) {
	handler := newFeeHandlerTest(nil, nil, &receiptResolverMock{artifact: []byte("%PDF-1.3 receipt")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/receipts/good-token", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "good-token"}}

	handler.DownloadReceipt(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3 receipt", w.Body.String())
}

func TestFeeHandlerDownloadReceiptInvalidToken(t *testing.T) {
	handler := newFeeHandlerTest(nil, nil, &receiptResolverMock{err: assert.AnError})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/receipts/bad-token", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "bad-token"}}

	handler.DownloadReceipt(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
