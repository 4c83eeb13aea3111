// Package exporter writes per-loan metric reports as CSV or JSON.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"loanlens/internal/loandata"
	"loanlens/pkg/contracts/domain"
)

// ReportHeaders is the column order of the CSV report.
var ReportHeaders = []string{
	"Loan ID",
	"Loan Amount",
	"Duration (days)",
	"Interest",
	"Late Fee",
	"Total Repayment",
	"APR (%)",
	"Monthly Payment",
}

// ReportRow is one loan with its derived metrics.
type ReportRow struct {
	LoanID         string  `json:"loan_id"`
	LoanAmount     float64 `json:"loan_amount"`
	DurationDays   int     `json:"duration_days"`
	Interest       float64 `json:"interest"`
	LateFee        float64 `json:"late_fee"`
	TotalRepayment float64 `json:"total_repayment"`
	APR            float64 `json:"apr"`
	MonthlyPayment float64 `json:"monthly_payment"`
}

// Report is the full export payload: every computable loan plus the
// aggregate table statistics.
type Report struct {
	SourceFilename string            `json:"source_filename"`
	Rows           []ReportRow       `json:"rows"`
	Stats          domain.TableStats `json:"stats"`
	Skipped        []string          `json:"skipped,omitempty"`
}

// BuildReport derives metrics for every computable loan in the table.
// Loans with invalid required fields are listed under Skipped instead of
// contributing zeroed metrics.
func BuildReport(table *domain.LoanTable) *Report {
	report := &Report{
		SourceFilename: table.SourceFilename,
		Rows:           make([]ReportRow, 0, len(table.Records)),
		Stats:          loandata.ComputeStats(table),
	}

	for _, rec := range table.Records {
		calc, err := loandata.CalculatorForRecord(rec)
		if err != nil {
			report.Skipped = append(report.Skipped, rec.LoanID)
			continue
		}
		metrics := calc.Metrics()
		report.Rows = append(report.Rows, ReportRow{
			LoanID:         rec.LoanID,
			LoanAmount:     rec.LoanAmount,
			DurationDays:   rec.DurationDays,
			Interest:       rec.Interest,
			LateFee:        rec.LateFee,
			TotalRepayment: metrics.TotalRepayment,
			APR:            metrics.APR,
			MonthlyPayment: metrics.MonthlyPayment,
		})
	}

	return report
}

// WriteCSV writes the report rows as CSV. A UTF-8 BOM is written first so
// Excel opens the file correctly.
func (r *Report) WriteCSV(w io.Writer) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(ReportHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range r.Rows {
		record := []string{
			row.LoanID,
			formatFloat(row.LoanAmount),
			fmt.Sprintf("%d", row.DurationDays),
			formatFloat(row.Interest),
			formatFloat(row.LateFee),
			formatFloat(row.TotalRepayment),
			formatFloat(row.APR),
			formatFloat(row.MonthlyPayment),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the full report, stats included, as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteFile writes the report to path, choosing the format from the
// extension: ".json" gets JSON, everything else CSV.
func (r *Report) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if filepath.Ext(path) == ".json" {
		return r.WriteJSON(f)
	}
	return r.WriteCSV(f)
}

// formatFloat formats a float64 for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
