package domain

import "time"

// Loan represents an issued loan. Loans are immutable once created; EMI
// tracking is out of scope for this service.
type Loan struct {
	ID         int64 `json:"loan_id"`
	CustomerID int64 `json:"customer_id,omitempty"`

	// Principal amount
	Amount float64 `json:"loan_amount"`

	// Tenure is the loan duration in months.
	Tenure int `json:"tenure"`

	// InterestRate is the annual rate in percent.
	InterestRate float64 `json:"interest_rate"`

	// MonthlyRepayment is the fixed EMI for this loan.
	MonthlyRepayment float64 `json:"monthly_repayment"`

	// EMIsPaidOnTime counts repayments made on schedule, never more than
	// the tenure.
	EMIsPaidOnTime int `json:"emis_paid_on_time"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// RepaymentsLeft returns the number of EMIs still outstanding.
func (l *Loan) RepaymentsLeft() int {
	return l.Tenure - l.EMIsPaidOnTime
}

// NewLoanTerm computes the start and end dates for a loan issued today.
// The end date uses a 30-day-month approximation, not calendar months.
func NewLoanTerm(today time.Time, tenureMonths int) (start, end time.Time) {
	start = today
	end = today.AddDate(0, 0, 30*tenureMonths)
	return start, end
}
