package domain

// PolicyRule is an operator-defined advisory check evaluated against every
// eligibility decision. Rules are CEL expressions over the evaluation
// context; a rule that evaluates to true raises its reason as a risk flag
// on the decision. Flags never alter the approval outcome.
type PolicyRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL expression that must evaluate to bool.
	Expression string `json:"expression"`

	// Reason is the flag text attached to the decision when the rule fires.
	Reason string `json:"reason"`

	// Severity classifies the flag: "info" or "review".
	Severity string `json:"severity"`

	Enabled bool `json:"enabled"`
}

// Policy rule severities.
const (
	SeverityInfo   = "info"
	SeverityReview = "review"
)
