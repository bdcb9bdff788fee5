package domain

import "time"

// Decision is the outcome of a loan eligibility evaluation. The scoring
// engine produces the approval fields; the API layer assigns the ID,
// timestamps it, and persists it as an audit record.
type Decision struct {
	ID         string `json:"decision_id,omitempty"`
	CustomerID int64  `json:"customer_id"`

	Approved    bool `json:"approval"`
	CreditScore int  `json:"credit_score"`

	// The four fields below are nil together whenever the request was
	// rejected, and all non-nil on approval.
	InterestRate       *float64 `json:"interest_rate"`
	CorrectedRate      *float64 `json:"corrected_interest_rate"`
	Tenure             *int     `json:"tenure"`
	MonthlyInstallment *float64 `json:"monthly_installment"`

	// RiskFlags are advisory annotations from the policy engine. They
	// never change the approval outcome.
	RiskFlags []string `json:"risk_flags,omitempty"`

	// LoanID is set when a loan was issued from this decision.
	LoanID *int64 `json:"loan_id,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Rejected reports whether the decision denied the request.
func (d *Decision) Rejected() bool {
	return !d.Approved
}
