package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"loanlens/internal/config"
	"loanlens/internal/infrastructure"
	"loanlens/internal/loandata"
	"loanlens/internal/services"
)

// testApplication wires the router without going through config.Load, so
// tests do not depend on the process environment.
func testApplication(t *testing.T) *Application {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.ReadTimeout = 5 * time.Second
	cfg.Upload.MaxBytes = 1 << 20

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := infrastructure.NewMetrics()

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Dashboard: services.NewDashboardService(loandata.NewLoader(logger), logger, metrics),
	}
	app.setupRouter()
	return app
}

func workbookUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet(loandata.SheetName)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Loan ID", "Loan Amount ($C)", "Duration", "Interest ($C)", "Late Fee & Interest ($C)", "Total Payment ($C)"},
		{"L-001", 1000, 14, 150, 50, 1200},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(loandata.SheetName, cell, &row))
	}

	var wb bytes.Buffer
	require.NoError(t, f.Write(&wb))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "loans.xlsx")
	require.NoError(t, err)
	_, err = part.Write(wb.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestApplication_HealthEndpoint(t *testing.T) {
	app := testApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestApplication_MetricsEndpoint(t *testing.T) {
	app := testApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_UploadThenQuery(t *testing.T) {
	app := testApplication(t)

	// No table yet.
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/loans", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Upload a workbook.
	buf, contentType := workbookUpload(t)
	req := httptest.NewRequest(http.MethodPost, "/api/loans", buf)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Table, loan detail, charts and stats are all served now.
	for _, path := range []string{
		"/api/loans",
		"/api/loans/stats",
		"/api/loans/distribution",
		"/api/loans/L-001",
		"/api/loans/L-001/apr-comparison",
		"/api/loans/L-001/projection",
	} {
		rec = httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// Unknown loan is a problem response.
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/loans/MISSING", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "/errors/loan/not-found")
}

func TestApplication_UnknownRoute(t *testing.T) {
	app := testApplication(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
