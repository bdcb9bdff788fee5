// Package scoring implements the credit scoring and loan eligibility
// engine. Everything in this package is pure computation over in-memory
// values: no I/O, no clocks, no shared state. The reference date is always
// passed in by the caller so results are deterministic.
package scoring

import (
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
)

// Deduction weights for the credit score components.
const (
	delinquencyPenalty = 2 // per loan with any EMI shortfall
	loanCountPenalty   = 3 // per loan in history
	currentYearPenalty = 5 // per loan started in the current calendar year
)

// CreditScore derives a 0-100 score from the customer's loan history.
// Starting from 100 it deducts per delinquent loan, per loan taken, and per
// loan started in the current calendar year. When the summed principal of
// the history exceeds the approved limit the score is forced to 0 outright,
// superseding the deductions.
func CreditScore(c *domain.Customer, loans []*domain.Loan, now time.Time) int {
	score := 100

	var delinquent, currentYear int
	var totalAmount float64
	year := now.Year()

	for _, l := range loans {
		if l.EMIsPaidOnTime < l.Tenure {
			delinquent++
		}
		if l.StartDate.Year() == year {
			currentYear++
		}
		totalAmount += l.Amount
	}

	score -= delinquent * delinquencyPenalty
	score -= len(loans) * loanCountPenalty
	score -= currentYear * currentYearPenalty

	if totalAmount > float64(c.ApprovedLimit) {
		return 0
	}

	if score < 0 {
		return 0
	}
	return score
}
