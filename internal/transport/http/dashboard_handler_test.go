package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "loanlens/internal/errors"
	"loanlens/internal/services"
	"loanlens/pkg/contracts/domain"
)

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) LoadWorkbook(ctx context.Context, r io.Reader, sourceFilename string) (*domain.LoanTable, error) {
	args := m.Called(sourceFilename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanTable), args.Error(1)
}

func (m *MockDashboardService) Table(ctx context.Context) (*domain.LoanTable, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanTable), args.Error(1)
}

func (m *MockDashboardService) Loan(ctx context.Context, id string) (*services.LoanDetail, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoanDetail), args.Error(1)
}

func (m *MockDashboardService) APRComparison(ctx context.Context, id string) ([]services.APRPoint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.APRPoint), args.Error(1)
}

func (m *MockDashboardService) Projection(ctx context.Context, id string) ([]services.ProjectionPoint, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ProjectionPoint), args.Error(1)
}

func (m *MockDashboardService) Distribution(ctx context.Context) ([]services.DistributionPoint, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.DistributionPoint), args.Error(1)
}

func (m *MockDashboardService) Stats(ctx context.Context) (*services.StatsView, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.StatsView), args.Error(1)
}

func newTestHandler(service DashboardServiceInterface) *DashboardHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewDashboardHandler(service, logger, apierrors.NewErrorHandler(logger, false), 1<<20)
}

func sampleTable() *domain.LoanTable {
	return &domain.LoanTable{
		TableID:        "tbl-1",
		SourceFilename: "loans.xlsx",
		LoadedAt:       time.Now(),
		Records: []domain.LoanRecord{
			{LoanID: "L-001", LoanAmount: 1000, DurationDays: 14, Interest: 150, LateFee: 50, TotalPayment: 1200},
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDashboardHandler_GetTable(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(*MockDashboardService)
		expectedStatus int
		expectedType   string
	}{
		{
			name: "returns loaded table",
			setup: func(m *MockDashboardService) {
				m.On("Table").Return(sampleTable(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "no table loaded",
			setup: func(m *MockDashboardService) {
				m.On("Table").Return(nil, services.ErrNoTableLoaded)
			},
			expectedStatus: http.StatusNotFound,
			expectedType:   apierrors.TypeTableNotLoaded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDashboardService)
			tt.setup(mockService)

			handler := newTestHandler(mockService)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, body["type"])
			} else {
				assert.Equal(t, "success", body["status"])
				assert.Equal(t, float64(1), body["count"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_GetLoan(t *testing.T) {
	tests := []struct {
		name           string
		loanID         string
		setup          func(*MockDashboardService)
		expectedStatus int
		expectedType   string
	}{
		{
			name:   "returns loan detail",
			loanID: "L-001",
			setup: func(m *MockDashboardService) {
				m.On("Loan", "L-001").Return(&services.LoanDetail{
					Record:  sampleTable().Records[0],
					Metrics: domain.DerivedMetrics{TotalRepayment: 1200, APR: 391.07, MonthlyPayment: 1200},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "loan not found",
			loanID: "MISSING",
			setup: func(m *MockDashboardService) {
				m.On("Loan", "MISSING").Return(nil, services.ErrLoanNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedType:   apierrors.TypeLoanNotFound,
		},
		{
			name:   "loan not computable",
			loanID: "L-BAD",
			setup: func(m *MockDashboardService) {
				m.On("Loan", "L-BAD").Return(nil, services.ErrLoanNotComputable)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedType:   apierrors.TypeLoanNotComputable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockDashboardService)
			tt.setup(mockService)

			handler := newTestHandler(mockService)
			req := httptest.NewRequest(http.MethodGet, "/"+tt.loanID, nil)
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedType != "" {
				body := decodeBody(t, rec)
				assert.Equal(t, tt.expectedType, body["type"])
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_GetAPRComparison(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("APRComparison", "L-001").Return([]services.APRPoint{
		{Label: "L-001", APR: 391.07},
		{Label: "Competitor A", APR: 30},
		{Label: "Competitor B", APR: 50},
		{Label: "Industry Average", APR: 100},
	}, nil)

	handler := newTestHandler(mockService)
	req := httptest.NewRequest(http.MethodGet, "/L-001/apr-comparison", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(4), body["count"])
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetProjection(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Projection", "L-002").Return([]services.ProjectionPoint{
		{Month: 1, Amount: 275},
		{Month: 2, Amount: 275},
	}, nil)

	handler := newTestHandler(mockService)
	req := httptest.NewRequest(http.MethodGet, "/L-002/projection", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetDistribution(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Distribution").Return([]services.DistributionPoint{
		{Lower: 100, Upper: 550, Count: 2, Label: "$100.00 to $550.00"},
		{Lower: 550, Upper: 1000, Count: 1, Label: "$550.00 to $1,000.00"},
	}, nil)

	handler := newTestHandler(mockService)
	req := httptest.NewRequest(http.MethodGet, "/distribution", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
	mockService.AssertExpectations(t)
}

func TestDashboardHandler_GetStats(t *testing.T) {
	mockService := new(MockDashboardService)
	mockService.On("Stats").Return(&services.StatsView{
		Stats: domain.TableStats{MeanInterest: 100, InterestCount: 3, RowCount: 3},
	}, nil)

	handler := newTestHandler(mockService)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertExpectations(t)
}

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestDashboardHandler_UploadWorkbook(t *testing.T) {
	t.Run("successful upload", func(t *testing.T) {
		mockService := new(MockDashboardService)
		mockService.On("LoadWorkbook", "loans.xlsx").Return(sampleTable(), nil)

		handler := newTestHandler(mockService)
		buf, contentType := multipartUpload(t, "file", "loans.xlsx", xlsxBytes(t))
		req := httptest.NewRequest(http.MethodPost, "/", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "success", body["status"])
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "tbl-1", data["table_id"])
		assert.Equal(t, float64(1), data["loan_count"])
		mockService.AssertExpectations(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		mockService := new(MockDashboardService)
		handler := newTestHandler(mockService)

		buf, contentType := multipartUpload(t, "wrong_field", "loans.xlsx", xlsxBytes(t))
		req := httptest.NewRequest(http.MethodPost, "/", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, apierrors.TypeValidation, body["type"])
	})

	t.Run("wrong content type rejected before service", func(t *testing.T) {
		mockService := new(MockDashboardService)
		handler := newTestHandler(mockService)

		buf, contentType := multipartUpload(t, "file", "loans.xlsx", []byte("not-a-workbook"))
		req := httptest.NewRequest(http.MethodPost, "/", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, apierrors.TypeValidation, body["type"])
		mockService.AssertNotCalled(t, "LoadWorkbook", mock.Anything)
	})

	t.Run("invalid workbook keeps 422", func(t *testing.T) {
		mockService := new(MockDashboardService)
		mockService.On("LoadWorkbook", "junk.xlsx").
			Return(nil, apierrors.NewParsingError("worksheet Loan Data does not exist", io.ErrUnexpectedEOF))

		handler := newTestHandler(mockService)
		buf, contentType := multipartUpload(t, "file", "junk.xlsx", xlsxBytes(t))
		req := httptest.NewRequest(http.MethodPost, "/", buf)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, apierrors.TypeWorkbookInvalid, body["type"])
		mockService.AssertExpectations(t)
	})
}

func TestHealthHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := NewHealthHandler(logger)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
}
