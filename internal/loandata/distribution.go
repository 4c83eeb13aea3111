package loandata

import (
	"math"

	"loanlens/pkg/contracts/domain"
)

// DefaultBinCount is the number of buckets used for the loan amount
// histogram when the caller does not ask for a specific count.
const DefaultBinCount = 10

// Bin is one bucket of the loan amount distribution. Upper bounds are
// exclusive except for the last bin, which includes the maximum.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Distribution buckets the table's loan amounts into equal-width bins.
// Rows whose loan amount failed coercion are skipped. An empty table, or
// one with no valid loan amounts, yields no bins.
func Distribution(table *domain.LoanTable, binCount int) []Bin {
	if binCount <= 0 {
		binCount = DefaultBinCount
	}

	amounts := make([]float64, 0, len(table.Records))
	for _, rec := range table.Records {
		if rec.FieldValid(domain.ColumnLoanAmount) {
			amounts = append(amounts, rec.LoanAmount)
		}
	}
	if len(amounts) == 0 {
		return nil
	}

	min, max := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
	}

	if min == max {
		return []Bin{{Lower: min, Upper: max, Count: len(amounts)}}
	}

	width := (max - min) / float64(binCount)
	bins := make([]Bin, binCount)
	for i := range bins {
		bins[i].Lower = min + float64(i)*width
		bins[i].Upper = min + float64(i+1)*width
	}
	bins[binCount-1].Upper = max

	for _, a := range amounts {
		idx := int(math.Floor((a - min) / width))
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}

	return bins
}
