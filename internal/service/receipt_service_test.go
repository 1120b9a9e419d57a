package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edulink/school-fees-api/internal/models"
	"github.com/edulink/school-fees-api/pkg/receipt"
	"github.com/edulink/school-fees-api/pkg/storage"
)

type mockSequence struct {
	value int64
	err   error
}

func (m *mockSequence) Next(ctx context.Context, name string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.value++
	return m.value, nil
}

type mockReceiptPayments struct {
	paths    map[string]string
	payments map[string]models.Payment
}

func (m *mockReceiptPayments) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReceiptPayments) SetReceiptPath(ctx context.Context, id, path string) error {
	if m.paths == nil {
		m.paths = make(map[string]string)
	}
	m.paths[id] = path
	return nil
}

type mockFileStore struct {
	saved map[string][]byte
}

func (m *mockFileStore) Save(filename string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStore) Open(filename string) (io.ReadCloser, error) {
	data, ok := m.saved[filename]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestReceiptService(seq *mockSequence, payments *mockReceiptPayments, store *mockFileStore, async bool) *ReceiptService {
	renderer := receipt.NewRenderer("Edulink School", "12 School Road")
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReceiptService(seq, payments, renderer, store, signer, nil, zap.NewNop(), ReceiptServiceConfig{Async: async, Workers: 1, MaxRetries: 1})
}

func TestReceiptServiceNextNumberFormat(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, &mockFileStore{}, false)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	number, err := svc.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "REC2026000001", number)
}

func TestReceiptServiceNextNumberMonotonic(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, &mockFileStore{}, false)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		number, err := svc.NextNumber(context.Background())
		require.NoError(t, err)
		assert.False(t, seen[number], "number %s issued twice", number)
		seen[number] = true
	}
}

func TestReceiptServiceNextNumberLargeSequence(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{value: 999999}, &mockReceiptPayments{}, &mockFileStore{}, false)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	number, err := svc.NextNumber(context.Background())
	require.NoError(t, err)
	// beyond six digits the number simply grows, padding never truncates
	assert.Equal(t, "REC20261000000", number)
}

func TestReceiptServiceNextNumberSequenceError(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{err: fmt.Errorf("counter unavailable")}, &mockReceiptPayments{}, &mockFileStore{}, false)

	_, err := svc.NextNumber(context.Background())
	require.Error(t, err)
}

func paymentFixture() (*models.Payment, *models.Fee) {
	payment := &models.Payment{
		ID:            "p1",
		FeeID:         "f1",
		StudentID:     "s1",
		Amount:        400,
		PaymentDate:   time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		PaymentMethod: models.MethodCash,
		ReceiptNumber: "REC2026000001",
	}
	fee := &models.Fee{ID: "f1", StudentID: "s1", AcademicYear: "2026-2027", TotalAmount: 1000, PaidAmount: 400}
	return payment, fee
}

func TestReceiptServiceGenerateSync(t *testing.T) {
	payments := &mockReceiptPayments{}
	store := &mockFileStore{}
	svc := newTestReceiptService(&mockSequence{}, payments, store, false)

	payment, fee := paymentFixture()
	info := svc.Generate(context.Background(), payment, fee, "Aarav Sharma", "Fee Accountant")

	assert.Equal(t, ReceiptStatusReady, info.Status)
	assert.NotEmpty(t, info.DownloadToken)
	require.NotNil(t, info.ExpiresAt)

	filename := "2026/REC2026000001.pdf"
	assert.Contains(t, store.saved, filename)
	assert.NotEmpty(t, store.saved[filename])
	assert.Equal(t, filename, payments.paths["p1"])
}

func TestReceiptServiceGenerateAsyncReportsPending(t *testing.T) {
	store := &mockFileStore{}
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, store, true)
	svc.Start(context.Background())
	defer svc.Stop()

	payment, fee := paymentFixture()
	info := svc.Generate(context.Background(), payment, fee, "Aarav Sharma", "")

	assert.Equal(t, ReceiptStatusPending, info.Status)
	assert.Empty(t, info.DownloadToken)
}

func TestReceiptServiceSyncTokenRoundTrip(t *testing.T) {
	store := &mockFileStore{}
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, store, false)

	payment, fee := paymentFixture()
	info := svc.Generate(context.Background(), payment, fee, "Aarav Sharma", "")
	require.Equal(t, ReceiptStatusReady, info.Status)

	artifact, err := svc.ResolveDownload(info.DownloadToken)
	require.NoError(t, err)
	defer artifact.Close() //nolint:errcheck

	data, err := io.ReadAll(artifact)
	require.NoError(t, err)
	assert.Equal(t, store.saved["2026/REC2026000001.pdf"], data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestReceiptServiceResolveDownloadRejectsGarbage(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, &mockFileStore{}, false)

	_, err := svc.ResolveDownload("not-a-token")
	require.Error(t, err)
}

func TestReceiptServiceTokenFor(t *testing.T) {
	svc := newTestReceiptService(&mockSequence{}, &mockReceiptPayments{}, &mockFileStore{}, false)

	payment, _ := paymentFixture()
	info, err := svc.TokenFor(payment)
	require.NoError(t, err)
	assert.Equal(t, ReceiptStatusPending, info.Status)

	path := "2026/REC2026000001.pdf"
	payment.ReceiptPath = &path
	info, err = svc.TokenFor(payment)
	require.NoError(t, err)
	assert.Equal(t, ReceiptStatusReady, info.Status)
	assert.NotEmpty(t, info.DownloadToken)
}

func TestReceiptServiceTokenForPayment(t *testing.T) {
	path := "2026/REC2026000001.pdf"
	payment, _ := paymentFixture()
	payment.ReceiptPath = &path
	payments := &mockReceiptPayments{payments: map[string]models.Payment{"p1": *payment}}
	svc := newTestReceiptService(&mockSequence{}, payments, &mockFileStore{}, false)

	info, err := svc.TokenForPayment(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, ReceiptStatusReady, info.Status)

	_, err = svc.TokenForPayment(context.Background(), "ghost")
	require.Error(t, err)
}
