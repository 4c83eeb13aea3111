package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "loanlens/internal/errors"
	"loanlens/internal/services"
	"loanlens/internal/validation"
	"loanlens/pkg/contracts/domain"
)

// DashboardHandler handles loan dashboard HTTP requests with RFC 7807 compliance
type DashboardHandler struct {
	service        DashboardServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validator      *validation.UploadValidator
	maxUploadBytes int64
}

// NewDashboardHandler creates a new dashboard handler with RFC 7807 error handling
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *DashboardHandler {
	return &DashboardHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "dashboard_handler")),
		errorHandler:   errorHandler,
		validator:      validation.NewUploadValidator(logger, maxUploadBytes),
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the loan dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.UploadWorkbook)
	r.Get("/", h.GetTable)
	r.Get("/stats", h.GetStats)
	r.Get("/distribution", h.GetDistribution)

	r.Route("/{loanID}", func(r chi.Router) {
		r.Use(h.LoanCtx)
		r.Get("/", h.GetLoan)
		r.Get("/apr-comparison", h.GetAPRComparison)
		r.Get("/projection", h.GetProjection)
	})

	return r
}

// LoanCtx middleware validates the loan ID parameter
func (h *DashboardHandler) LoanCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loanID := chi.URLParam(r, "loanID")
		if loanID == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("loanID", "Loan ID is required"))
			return
		}
		if len(loanID) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("loanID", "Loan ID exceeds maximum length"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UploadWorkbook handles POST /api/loans. The request is a multipart form
// with the workbook under the "file" field. A successful upload replaces any
// previously loaded table; a failed one leaves it untouched.
func (h *DashboardHandler) UploadWorkbook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, apierrors.New(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Uploaded workbook exceeds the maximum allowed size",
			))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "Workbook file is required"))
		return
	}
	defer file.Close()

	if err := h.validator.ValidateWorkbook(header.Filename, header.Size, file); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "workbook upload received",
		slog.String("request_id", reqID),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size),
	)

	table, err := h.service.LoadWorkbook(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "workbook load failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filename", header.Filename),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   tableSummary(table),
	})
}

// GetTable handles GET /api/loans
func (h *DashboardHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.Table(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.Records),
	})
}

// GetStats handles GET /api/loans/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// GetDistribution handles GET /api/loans/distribution
func (h *DashboardHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	points, err := h.service.Distribution(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// GetLoan handles GET /api/loans/{loanID}
func (h *DashboardHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")

	detail, err := h.service.Loan(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   detail,
	})
}

// GetAPRComparison handles GET /api/loans/{loanID}/apr-comparison
func (h *DashboardHandler) GetAPRComparison(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")

	points, err := h.service.APRComparison(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// GetProjection handles GET /api/loans/{loanID}/projection
func (h *DashboardHandler) GetProjection(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")

	points, err := h.service.Projection(r.Context(), loanID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   points,
		"count":  len(points),
	})
}

// handleServiceError maps service sentinels to API errors before falling
// back to the central handler.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.WarnContext(r.Context(), "dashboard request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
	)

	switch {
	case errors.Is(err, services.ErrNoTableLoaded):
		h.errorHandler.HandleError(w, r, apierrors.ErrNoTable)
	case errors.Is(err, services.ErrLoanNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrLoanNotFound)
	case errors.Is(err, services.ErrLoanNotComputable):
		h.errorHandler.HandleError(w, r, apierrors.ErrLoanNotComputable)
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// tableSummary is the upload response payload: enough for the client to
// confirm what was loaded without re-fetching the whole table.
func tableSummary(table *domain.LoanTable) map[string]interface{} {
	return map[string]interface{}{
		"table_id":        table.TableID,
		"source_filename": table.SourceFilename,
		"loaded_at":       table.LoadedAt,
		"loan_count":      len(table.Records),
		"loan_ids":        table.LoanIDs(),
	}
}
