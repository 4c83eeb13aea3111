package loandata

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	apperrors "loanlens/internal/errors"
	"loanlens/pkg/contracts/domain"
)

// SheetName is the sheet the loader reads from an uploaded workbook.
const SheetName = "Loan Data"

// Loader transforms an uploaded Excel workbook into a validated LoanTable.
// The cleanup is a pipeline of pure steps over the raw cell grid: promote
// the first row to headers, drop fully-empty columns, trim header
// whitespace, select the six required columns, coerce cells.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new workbook loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger: logger.With(slog.String("component", "loan_loader")),
	}
}

// Load reads a workbook from r and builds a LoanTable. All failure modes
// (unreadable document, missing sheet, missing required columns, duplicate
// loan IDs) come back as an AppError for the caller to surface; the loader
// never returns a partial table.
func (l *Loader) Load(r io.Reader, sourceFilename string) (*domain.LoanTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	return l.loadFromFile(f, sourceFilename)
}

// LoadFile reads a workbook from disk and builds a LoanTable.
func (l *Loader) LoadFile(path string) (*domain.LoanTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err)
	}
	defer f.Close()

	return l.loadFromFile(f, path)
}

func (l *Loader) loadFromFile(f *excelize.File, sourceFilename string) (*domain.LoanTable, error) {
	grid, err := f.GetRows(SheetName)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %q not found in workbook", SheetName), err)
	}

	l.logger.Info("loaded sheet",
		slog.String("sheet_name", SheetName),
		slog.Int("total_rows", len(grid)))

	header, body, err := promoteHeader(grid)
	if err != nil {
		return nil, err
	}

	header, body = dropEmptyColumns(header, body)
	header = trimHeaders(header)

	columns, err := selectColumns(header)
	if err != nil {
		return nil, err
	}

	records, err := l.buildRecords(columns, body)
	if err != nil {
		return nil, err
	}

	l.logger.Info("loan table built",
		slog.Int("record_count", len(records)),
		slog.String("source", sourceFilename))

	return &domain.LoanTable{
		TableID:        uuid.New().String(),
		SourceFilename: sourceFilename,
		LoadedAt:       time.Now().UTC(),
		Records:        records,
	}, nil
}

// promoteHeader treats the first grid row as column names and returns the
// remaining rows as the data body.
func promoteHeader(grid [][]string) ([]string, [][]string, error) {
	if len(grid) == 0 {
		return nil, nil, apperrors.NewAppValidationError("sheet is empty, no header row to promote")
	}
	return grid[0], grid[1:], nil
}

// dropEmptyColumns removes columns whose cells are empty in every body row.
// Stray spreadsheet formatting often leaves such phantom columns behind.
func dropEmptyColumns(header []string, body [][]string) ([]string, [][]string) {
	width := len(header)
	for _, row := range body {
		if len(row) > width {
			width = len(row)
		}
	}

	keep := make([]bool, width)
	for _, row := range body {
		for i, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep[i] = true
			}
		}
	}

	newHeader := make([]string, 0, width)
	indexes := make([]int, 0, width)
	for i := 0; i < width; i++ {
		if keep[i] {
			indexes = append(indexes, i)
			if i < len(header) {
				newHeader = append(newHeader, header[i])
			} else {
				newHeader = append(newHeader, "")
			}
		}
	}

	newBody := make([][]string, len(body))
	for r, row := range body {
		newRow := make([]string, len(indexes))
		for n, i := range indexes {
			if i < len(row) {
				newRow[n] = row[i]
			}
		}
		newBody[r] = newRow
	}

	return newHeader, newBody
}

// trimHeaders strips leading and trailing whitespace from column names.
// Spreadsheet authors routinely pad headers.
func trimHeaders(header []string) []string {
	trimmed := make([]string, len(header))
	for i, name := range header {
		trimmed[i] = strings.TrimSpace(name)
	}
	return trimmed
}

// selectColumns maps each required column name to its grid index. A
// missing column is a schema failure, reported with every absent name so
// the user can fix the workbook in one pass.
func selectColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	columns := make(map[string]int, len(domain.RequiredColumns))
	var missing []string
	for _, name := range domain.RequiredColumns {
		idx, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = idx
	}

	if len(missing) > 0 {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("required columns missing after header cleanup: %s", strings.Join(missing, ", ")))
	}

	return columns, nil
}

// buildRecords coerces each body row into a LoanRecord, preserving row
// order. Fully empty rows are skipped; rows with a blank Loan ID cannot be
// selected and are skipped with a warning; duplicate IDs fail the load.
func (l *Loader) buildRecords(columns map[string]int, body [][]string) ([]domain.LoanRecord, error) {
	records := make([]domain.LoanRecord, 0, len(body))
	seen := make(map[string]bool, len(body))

	for rowNum, row := range body {
		if rowEmpty(columns, row) {
			continue
		}

		id := cellAt(row, columns[domain.ColumnLoanID])
		if id == "" {
			l.logger.Warn("skipping row with blank loan ID",
				slog.Int("row", rowNum+2)) // +2: 1-based plus header row
			continue
		}
		if seen[id] {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("duplicate Loan ID %q in sheet %q", id, SheetName))
		}
		seen[id] = true

		rec := domain.LoanRecord{LoanID: id}

		rec.LoanAmount = coerceRequired(&rec, domain.ColumnLoanAmount, cellAt(row, columns[domain.ColumnLoanAmount]))
		rec.Interest = coerceRequired(&rec, domain.ColumnInterest, cellAt(row, columns[domain.ColumnInterest]))
		rec.DurationDays = coerceDuration(&rec, cellAt(row, columns[domain.ColumnDuration]))
		rec.LateFee = coerceOptional(&rec, domain.ColumnLateFee, cellAt(row, columns[domain.ColumnLateFee]))
		rec.TotalPayment = coerceRequired(&rec, domain.ColumnTotalPayment, cellAt(row, columns[domain.ColumnTotalPayment]))

		records = append(records, rec)
	}

	return records, nil
}

// rowEmpty reports whether every selected cell in the row is blank.
func rowEmpty(columns map[string]int, row []string) bool {
	for _, idx := range columns {
		if cellAt(row, idx) != "" {
			return false
		}
	}
	return true
}

// cellAt returns the trimmed cell at idx, tolerating short rows.
func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// coerceRequired parses a monetary cell, recording a field error on the
// record when the cell is blank or non-numeric. The zero value it returns
// in that case is never used for metrics because the record is flagged.
func coerceRequired(rec *domain.LoanRecord, column, cell string) float64 {
	if cell == "" {
		recordFieldError(rec, column, "cell is empty")
		return 0
	}
	val, err := parseMoney(cell)
	if err != nil {
		recordFieldError(rec, column, err.Error())
		return 0
	}
	return val
}

// coerceOptional parses a monetary cell that defaults to zero when absent.
func coerceOptional(rec *domain.LoanRecord, column, cell string) float64 {
	if cell == "" {
		return 0
	}
	val, err := parseMoney(cell)
	if err != nil {
		recordFieldError(rec, column, err.Error())
		return 0
	}
	return val
}

// coerceDuration parses the day-count cell as a non-negative integer.
func coerceDuration(rec *domain.LoanRecord, cell string) int {
	if cell == "" {
		recordFieldError(rec, domain.ColumnDuration, "cell is empty")
		return 0
	}
	cleaned := cleanNumeric(cell)
	days, err := strconv.Atoi(cleaned)
	if err != nil {
		// Spreadsheets sometimes store integers as "14.0".
		f, ferr := strconv.ParseFloat(cleaned, 64)
		if ferr != nil || f != float64(int(f)) {
			recordFieldError(rec, domain.ColumnDuration, fmt.Sprintf("cannot coerce %q to a day count", cell))
			return 0
		}
		days = int(f)
	}
	if days < 0 {
		recordFieldError(rec, domain.ColumnDuration, fmt.Sprintf("negative duration %d", days))
		return 0
	}
	return days
}

// parseMoney coerces a cell to float64, tolerating currency symbols and
// thousands separators.
func parseMoney(cell string) (float64, error) {
	val, err := strconv.ParseFloat(cleanNumeric(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot coerce %q to a number", cell)
	}
	return val, nil
}

// cleanNumeric strips the decorations spreadsheet exports add to numbers.
func cleanNumeric(cell string) string {
	cleaned := strings.TrimSpace(cell)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	return cleaned
}

func recordFieldError(rec *domain.LoanRecord, column, message string) {
	if rec.FieldErrors == nil {
		rec.FieldErrors = make(map[string]string)
	}
	rec.FieldErrors[column] = message
}
