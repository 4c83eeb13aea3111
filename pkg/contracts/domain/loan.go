package domain

import (
	"time"
)

// Column names the loader requires in the "Loan Data" sheet, after
// header whitespace has been trimmed.
const (
	ColumnLoanID       = "Loan ID"
	ColumnLoanAmount   = "Loan Amount ($C)"
	ColumnDuration     = "Duration"
	ColumnInterest     = "Interest ($C)"
	ColumnLateFee      = "Late Fee & Interest ($C)"
	ColumnTotalPayment = "Total Payment ($C)"
)

// RequiredColumns lists the six columns a workbook must provide, in the
// order records are rendered.
var RequiredColumns = []string{
	ColumnLoanID,
	ColumnLoanAmount,
	ColumnDuration,
	ColumnInterest,
	ColumnLateFee,
	ColumnTotalPayment,
}

// LoanRecord represents one row of the "Loan Data" sheet after header
// normalization and cell coercion.
type LoanRecord struct {
	LoanID       string  `json:"loan_id" validate:"required"`
	LoanAmount   float64 `json:"loan_amount" validate:"min=0"`
	DurationDays int     `json:"duration_days" validate:"min=0"`
	Interest     float64 `json:"interest" validate:"min=0"`
	LateFee      float64 `json:"late_fee" validate:"min=0"`
	TotalPayment float64 `json:"total_payment"`

	// FieldErrors maps a column name to the coercion failure recorded for
	// that cell at load time. Rows with failed required fields stay in the
	// table for display but cannot be selected for metric computation.
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// FieldValid reports whether the given column coerced cleanly for this row.
func (r LoanRecord) FieldValid(column string) bool {
	_, bad := r.FieldErrors[column]
	return !bad
}

// Computable reports whether the record's required numeric fields (loan
// amount, interest, duration) all coerced, i.e. metrics can be derived
// without producing wrong numbers.
func (r LoanRecord) Computable() bool {
	return r.FieldValid(ColumnLoanAmount) &&
		r.FieldValid(ColumnInterest) &&
		r.FieldValid(ColumnDuration)
}

// LoanTable is the normalized, ordered collection of loan records built
// from one uploaded workbook. It is created fresh on every upload and
// never mutated afterwards.
type LoanTable struct {
	TableID        string       `json:"table_id"`
	SourceFilename string       `json:"source_filename,omitempty"`
	LoadedAt       time.Time    `json:"loaded_at"`
	Records        []LoanRecord `json:"records"`
}

// Loan returns the first record matching the given loan ID. The loader
// rejects duplicate IDs, so first match is the only match.
func (t *LoanTable) Loan(id string) (LoanRecord, bool) {
	for _, rec := range t.Records {
		if rec.LoanID == id {
			return rec, true
		}
	}
	return LoanRecord{}, false
}

// LoanIDs returns the selection keys in original row order.
func (t *LoanTable) LoanIDs() []string {
	ids := make([]string, len(t.Records))
	for i, rec := range t.Records {
		ids[i] = rec.LoanID
	}
	return ids
}

// DerivedMetrics holds the three computed repayment metrics for a single
// loan. They are recomputed on every selection and never written back to
// the table.
type DerivedMetrics struct {
	TotalRepayment float64 `json:"total_repayment"`
	APR            float64 `json:"apr"`
	MonthlyPayment float64 `json:"monthly_payment"`
}

// TableStats aggregates the sidebar statistics over a full loan table.
// Each mean is computed over the rows whose cell for that column coerced;
// the per-column counts record how many rows contributed.
type TableStats struct {
	MeanInterest      float64 `json:"mean_interest"`
	MeanLateFee       float64 `json:"mean_late_fee"`
	MeanTotalPayment  float64 `json:"mean_total_payment"`
	InterestCount     int     `json:"interest_count"`
	LateFeeCount      int     `json:"late_fee_count"`
	TotalPaymentCount int     `json:"total_payment_count"`
	RowCount          int     `json:"row_count"`
}
