package loandata

import (
	"fmt"

	"loanlens/pkg/contracts/domain"
)

const (
	daysPerYear  = 365
	daysPerMonth = 30
)

// Calculator computes repayment metrics for a single payday loan. The four
// inputs are already coerced to numeric types; the calculator performs no
// parsing and all operations are pure.
type Calculator struct {
	LoanAmount   float64
	Interest     float64
	LateFee      float64
	DurationDays int
}

// NewCalculator creates a calculator from the four loan parameters.
func NewCalculator(loanAmount, interest, lateFee float64, durationDays int) Calculator {
	return Calculator{
		LoanAmount:   loanAmount,
		Interest:     interest,
		LateFee:      lateFee,
		DurationDays: durationDays,
	}
}

// CalculatorForRecord builds a calculator from a loaded record. Records
// whose required fields failed coercion at load time are refused so a bad
// cell can never flow into a computation as a silent zero.
func CalculatorForRecord(rec domain.LoanRecord) (Calculator, error) {
	if !rec.Computable() {
		return Calculator{}, fmt.Errorf("loan %q has unusable fields: %v", rec.LoanID, rec.FieldErrors)
	}
	return NewCalculator(rec.LoanAmount, rec.Interest, rec.LateFee, rec.DurationDays), nil
}

// TotalRepayment returns the total amount the borrower must repay:
// principal plus flat interest plus late fees.
func (c Calculator) TotalRepayment() float64 {
	return c.LoanAmount + c.Interest + c.LateFee
}

// APR returns the annualized percentage rate implied by the flat interest
// over the loan's day-count duration. This is a simple-interest
// annualization, not a compounding regulatory APR. A zero loan amount or
// zero duration yields 0 rather than a division error, since such a record
// has no meaningful rate.
func (c Calculator) APR() float64 {
	if c.LoanAmount == 0 || c.DurationDays == 0 {
		return 0
	}
	rate := c.Interest / c.LoanAmount
	return rate * (daysPerYear / float64(c.DurationDays)) * 100
}

// MonthlyPayment estimates the flat monthly installment. Durations under
// one month count as a single payment period, which keeps the estimate
// from being inflated by a sub-one-month divisor.
func (c Calculator) MonthlyPayment() float64 {
	months := float64(c.DurationDays) / daysPerMonth
	if months < 1 {
		months = 1
	}
	return c.TotalRepayment() / months
}

// Metrics bundles the three derived metrics for one computation pass.
func (c Calculator) Metrics() domain.DerivedMetrics {
	return domain.DerivedMetrics{
		TotalRepayment: c.TotalRepayment(),
		APR:            c.APR(),
		MonthlyPayment: c.MonthlyPayment(),
	}
}

// Projection returns the flat per-month repayment series across the loan's
// whole-month count. Sub-30-day loans produce a single period.
func (c Calculator) Projection() []float64 {
	periods := c.DurationDays / daysPerMonth
	if periods < 1 {
		periods = 1
	}
	amount := c.TotalRepayment() / float64(periods)
	series := make([]float64, periods)
	for i := range series {
		series[i] = amount
	}
	return series
}
