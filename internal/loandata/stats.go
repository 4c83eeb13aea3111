package loandata

import (
	"loanlens/pkg/contracts/domain"
)

// ComputeStats derives the sidebar aggregate statistics over a full loan
// table. Rows whose cell for a given column failed coercion are excluded
// from that column's mean only; one bad cell never aborts the whole
// computation.
func ComputeStats(table *domain.LoanTable) domain.TableStats {
	stats := domain.TableStats{RowCount: len(table.Records)}

	var interestSum, lateFeeSum, totalPaymentSum float64
	for _, rec := range table.Records {
		if rec.FieldValid(domain.ColumnInterest) {
			interestSum += rec.Interest
			stats.InterestCount++
		}
		if rec.FieldValid(domain.ColumnLateFee) {
			lateFeeSum += rec.LateFee
			stats.LateFeeCount++
		}
		if rec.FieldValid(domain.ColumnTotalPayment) {
			totalPaymentSum += rec.TotalPayment
			stats.TotalPaymentCount++
		}
	}

	if stats.InterestCount > 0 {
		stats.MeanInterest = interestSum / float64(stats.InterestCount)
	}
	if stats.LateFeeCount > 0 {
		stats.MeanLateFee = lateFeeSum / float64(stats.LateFeeCount)
	}
	if stats.TotalPaymentCount > 0 {
		stats.MeanTotalPayment = totalPaymentSum / float64(stats.TotalPaymentCount)
	}

	return stats
}
