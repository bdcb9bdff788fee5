package policy

import "github.com/srihari-sirisipalli/credit-approval-system/internal/domain"

// DefaultRules returns the advisory rules seeded on first startup.
// Operators manage the live set via the /policies API afterwards.
func DefaultRules() []*domain.PolicyRule {
	return []*domain.PolicyRule{
		{
			ID:          "large-loan-weak-score",
			Name:        "large_loan_weak_score",
			Description: "Large principal requested by a customer with a weak credit score",
			Expression:  "approved && amount > 500000.0 && credit_score <= 30",
			Reason:      "large loan approved on a weak score, route to manual review",
			Severity:    domain.SeverityReview,
			Enabled:     true,
		},
		{
			ID:          "near-debt-ceiling",
			Name:        "near_debt_ceiling",
			Description: "Post-approval EMI load close to half of monthly salary",
			Expression:  "approved && (emi_total + installment) > 0.45 * monthly_salary",
			Reason:      "EMI load within 5 points of the affordability ceiling",
			Severity:    domain.SeverityReview,
			Enabled:     true,
		},
		{
			ID:          "thin-file",
			Name:        "thin_file",
			Description: "No repayment history to score against",
			Expression:  "active_loans == 0 && amount > 200000.0",
			Reason:      "no loan history for a sizeable principal",
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
		{
			ID:          "rate-shopping",
			Name:        "rate_shopping",
			Description: "Many eligibility checks in a short window",
			Expression:  "check_count > 5",
			Reason:      "repeated eligibility checks in the last hour",
			Severity:    domain.SeverityInfo,
			Enabled:     true,
		},
		{
			ID:          "limit-exhausted",
			Name:        "limit_exhausted",
			Description: "Outstanding debt already above the approved limit",
			Expression:  "total_debt > approved_limit",
			Reason:      "outstanding principal exceeds the approved limit",
			Severity:    domain.SeverityReview,
			Enabled:     true,
		},
	}
}
