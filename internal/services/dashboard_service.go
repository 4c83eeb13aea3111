package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	apperrors "loanlens/internal/errors"
	"loanlens/internal/infrastructure"
	"loanlens/internal/loandata"
	"loanlens/pkg/contracts/domain"
	"loanlens/pkg/format"
)

// aprBenchmarks are the fixed reference points the dashboard compares a
// selected loan's APR against. They are industry talking points, not
// values derived from the loaded data.
var aprBenchmarks = []APRPoint{
	{Label: "Competitor A", APR: 30},
	{Label: "Competitor B", APR: 50},
	{Label: "Industry Average", APR: 100},
}

// APRPoint is one bar of the APR comparison chart.
type APRPoint struct {
	Label   string  `json:"label"`
	APR     float64 `json:"apr"`
	Display string  `json:"display"`
}

// ProjectionPoint is one month of the flat repayment projection series.
type ProjectionPoint struct {
	Month   int     `json:"month"`
	Amount  float64 `json:"amount"`
	Display string  `json:"display"`
}

// LoanDetail is everything the dashboard renders for one selected loan:
// the raw record, its derived metrics, and display strings formatted with
// thousands separators and two decimals.
type LoanDetail struct {
	Record  domain.LoanRecord     `json:"record"`
	Metrics domain.DerivedMetrics `json:"metrics"`
	Display LoanDisplay           `json:"display"`
}

// LoanDisplay carries the pre-formatted text fields for a selected loan.
type LoanDisplay struct {
	LoanAmount     string `json:"loan_amount"`
	Interest       string `json:"interest"`
	LateFee        string `json:"late_fee"`
	Duration       string `json:"duration"`
	TotalRepayment string `json:"total_repayment"`
	APR            string `json:"apr"`
	MonthlyPayment string `json:"monthly_payment"`
}

// DistributionPoint is one bucket of the loan amount histogram.
type DistributionPoint struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
	Label string  `json:"label"`
}

// StatsView bundles the aggregate statistics with their display strings.
type StatsView struct {
	Stats   domain.TableStats `json:"stats"`
	Display StatsDisplay      `json:"display"`
}

// StatsDisplay carries the pre-formatted sidebar statistics.
type StatsDisplay struct {
	MeanInterest     string `json:"mean_interest"`
	MeanLateFee      string `json:"mean_late_fee"`
	MeanTotalPayment string `json:"mean_total_payment"`
}

// DashboardService owns the single-session dashboard state: the currently
// loaded loan table. Uploads replace the table atomically; everything else
// reads it. There is no persistence, a restart starts empty.
type DashboardService struct {
	loader  *loandata.Loader
	logger  *slog.Logger
	metrics *infrastructure.Metrics

	mu    sync.RWMutex
	table *domain.LoanTable
}

// NewDashboardService creates the dashboard service. metrics may be nil
// in tests.
func NewDashboardService(loader *loandata.Loader, logger *slog.Logger, metrics *infrastructure.Metrics) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		loader:  loader,
		logger:  logger.With(slog.String("component", "dashboard_service")),
		metrics: metrics,
	}
}

// LoadWorkbook parses an uploaded workbook and replaces the current table.
// A failed load leaves the previous table untouched so the session keeps
// working with the data it had.
func (s *DashboardService) LoadWorkbook(ctx context.Context, r io.Reader, sourceFilename string) (*domain.LoanTable, error) {
	table, err := s.loader.Load(r, sourceFilename)
	if err != nil {
		s.countLoadFailure(err)
		s.logger.ErrorContext(ctx, "workbook load failed",
			slog.String("source", sourceFilename),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.UploadsTotal.Inc()
		s.metrics.LoansLoaded.Set(float64(len(table.Records)))
	}

	s.logger.InfoContext(ctx, "loan table replaced",
		slog.String("table_id", table.TableID),
		slog.String("source", sourceFilename),
		slog.Int("record_count", len(table.Records)))

	return table, nil
}

// Table returns the currently loaded table.
func (s *DashboardService) Table(ctx context.Context) (*domain.LoanTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrNoTableLoaded
	}
	return s.table, nil
}

// Loan returns the detail view for one selected loan: the record, its
// derived metrics, and formatted display fields.
func (s *DashboardService) Loan(ctx context.Context, id string) (*LoanDetail, error) {
	rec, calc, err := s.selectLoan(id)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MetricComputations.Inc()
	}

	m := calc.Metrics()
	return &LoanDetail{
		Record:  rec,
		Metrics: m,
		Display: LoanDisplay{
			LoanAmount:     format.Currency(rec.LoanAmount),
			Interest:       format.Currency(rec.Interest),
			LateFee:        format.Currency(rec.LateFee),
			Duration:       fmt.Sprintf("%d days", rec.DurationDays),
			TotalRepayment: format.Currency(m.TotalRepayment),
			APR:            format.Percent(m.APR),
			MonthlyPayment: format.Currency(m.MonthlyPayment),
		},
	}, nil
}

// APRComparison returns the selected loan's APR alongside the fixed
// industry reference points, selected loan first.
func (s *DashboardService) APRComparison(ctx context.Context, id string) ([]APRPoint, error) {
	rec, calc, err := s.selectLoan(id)
	if err != nil {
		return nil, err
	}

	apr := calc.APR()
	points := make([]APRPoint, 0, len(aprBenchmarks)+1)
	points = append(points, APRPoint{Label: rec.LoanID, APR: apr, Display: format.Percent(apr)})
	for _, b := range aprBenchmarks {
		b.Display = format.Percent(b.APR)
		points = append(points, b)
	}
	return points, nil
}

// Projection returns the flat monthly repayment series for the selected
// loan, one point per whole month of the duration (minimum one period).
func (s *DashboardService) Projection(ctx context.Context, id string) ([]ProjectionPoint, error) {
	_, calc, err := s.selectLoan(id)
	if err != nil {
		return nil, err
	}

	series := calc.Projection()
	points := make([]ProjectionPoint, len(series))
	for i, amount := range series {
		points[i] = ProjectionPoint{
			Month:   i + 1,
			Amount:  amount,
			Display: format.Currency(amount),
		}
	}
	return points, nil
}

// Distribution returns the loan amount histogram for the loaded table.
func (s *DashboardService) Distribution(ctx context.Context) ([]DistributionPoint, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	bins := loandata.Distribution(table, loandata.DefaultBinCount)
	points := make([]DistributionPoint, len(bins))
	for i, b := range bins {
		points[i] = DistributionPoint{
			Lower: b.Lower,
			Upper: b.Upper,
			Count: b.Count,
			Label: fmt.Sprintf("%s to %s", format.Currency(b.Lower), format.Currency(b.Upper)),
		}
	}
	return points, nil
}

// Stats returns the sidebar aggregate statistics for the loaded table.
func (s *DashboardService) Stats(ctx context.Context) (*StatsView, error) {
	table, err := s.Table(ctx)
	if err != nil {
		return nil, err
	}

	stats := loandata.ComputeStats(table)
	return &StatsView{
		Stats: stats,
		Display: StatsDisplay{
			MeanInterest:     format.Currency(stats.MeanInterest),
			MeanLateFee:      format.Currency(stats.MeanLateFee),
			MeanTotalPayment: format.Currency(stats.MeanTotalPayment),
		},
	}, nil
}

// selectLoan resolves a loan ID against the current table and builds its
// calculator. Non-computable rows surface as ErrLoanNotComputable rather
// than producing metrics from zeroed fields.
func (s *DashboardService) selectLoan(id string) (domain.LoanRecord, loandata.Calculator, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()

	if table == nil {
		return domain.LoanRecord{}, loandata.Calculator{}, ErrNoTableLoaded
	}

	rec, ok := table.Loan(id)
	if !ok {
		return domain.LoanRecord{}, loandata.Calculator{}, ErrLoanNotFound
	}

	calc, err := loandata.CalculatorForRecord(rec)
	if err != nil {
		return domain.LoanRecord{}, loandata.Calculator{}, fmt.Errorf("%w: %v", ErrLoanNotComputable, err)
	}

	return rec, calc, nil
}

// countLoadFailure records the failure kind for the metrics endpoint.
func (s *DashboardService) countLoadFailure(err error) {
	if s.metrics == nil {
		return
	}
	kind := "other"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrTypeParsing:
			kind = "parsing"
		case apperrors.ErrTypeValidation:
			kind = "schema"
		}
	}
	s.metrics.LoadFailuresTotal.WithLabelValues(kind).Inc()
}
