package scoring

import (
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
)

// debtToIncomeCeiling caps the customer's total monthly EMI load as a
// fraction of monthly salary.
const debtToIncomeCeiling = 0.5

// Request holds a candidate loan request. The caller validates that all
// three fields are strictly positive before evaluation; the engine assumes
// valid inputs and does not re-check them.
type Request struct {
	Amount       float64
	InterestRate float64
	Tenure       int
}

// Evaluate runs the full eligibility check for a requested loan against
// the customer's loan history. It is deterministic given the same inputs
// and reference date. The returned decision carries no ID or timestamp;
// persistence is the caller's responsibility.
func Evaluate(c *domain.Customer, loans []*domain.Loan, req Request, now time.Time) *domain.Decision {
	decision := &domain.Decision{
		CustomerID: c.ID,
	}

	score := CreditScore(c, loans, now)
	decision.CreditScore = score

	corrected, ok := CorrectRate(score, req.InterestRate)
	if !ok {
		// Score too low for any rate: rejected, all approval fields nil.
		return decision
	}

	installment := MonthlyInstallment(req.Amount, req.Tenure, corrected)

	var totalEMIs float64
	for _, l := range loans {
		totalEMIs += l.MonthlyRepayment
	}

	// The band re-check deliberately compares the CORRECTED rate against
	// the same thresholds used to derive it, with strict inequality. A
	// request at exactly the band floor (e.g. score 45, rate 12) is
	// therefore rejected even though a floor was applied. This matches the
	// established policy behavior; do not "fix" the boundary.
	approved := score > 0 &&
		(score > 50 ||
			(score > 30 && score <= 50 && corrected > midBandFloor) ||
			(score > 10 && score <= 30 && corrected > lowBandFloor))

	approved = approved && totalEMIs+installment <= debtToIncomeCeiling*float64(c.MonthlySalary)

	if !approved {
		return decision
	}

	requestedRate := req.InterestRate
	tenure := req.Tenure

	decision.Approved = true
	decision.InterestRate = &requestedRate
	decision.CorrectedRate = &corrected
	decision.Tenure = &tenure
	decision.MonthlyInstallment = &installment

	return decision
}
