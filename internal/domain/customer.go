// Package domain defines the core types and interfaces for the credit
// approval system.
package domain

import "math"

// approvedLimitGranularity is the rounding unit for the default approved
// credit limit (one lakh).
const approvedLimitGranularity = 100_000

// Customer represents a registered customer.
type Customer struct {
	ID            int64  `json:"customer_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Age           int    `json:"age"`
	PhoneNumber   int64  `json:"phone_number"`
	MonthlySalary int64  `json:"monthly_salary"`

	// ApprovedLimit is the ceiling on aggregate loan principal. It is set
	// exactly once, at registration, and never recomputed afterwards even
	// if the salary changes.
	ApprovedLimit int64 `json:"approved_limit"`
}

// NewCustomer builds a customer record. When approvedLimit is nil the
// default limit of 36x monthly salary, rounded to the nearest lakh, is
// computed here and stored as a plain immutable field.
func NewCustomer(firstName, lastName string, age int, phoneNumber, monthlySalary int64, approvedLimit *int64) *Customer {
	c := &Customer{
		FirstName:     firstName,
		LastName:      lastName,
		Age:           age,
		PhoneNumber:   phoneNumber,
		MonthlySalary: monthlySalary,
	}

	if approvedLimit != nil {
		c.ApprovedLimit = *approvedLimit
	} else {
		c.ApprovedLimit = DefaultApprovedLimit(monthlySalary)
	}

	return c
}

// DefaultApprovedLimit returns 36x the monthly salary rounded to the
// nearest lakh.
func DefaultApprovedLimit(monthlySalary int64) int64 {
	raw := float64(36 * monthlySalary)
	return int64(math.Round(raw/approvedLimitGranularity)) * approvedLimitGranularity
}

// Name returns the customer's display name.
func (c *Customer) Name() string {
	return c.FirstName + " " + c.LastName
}
