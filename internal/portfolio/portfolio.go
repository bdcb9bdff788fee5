// Package portfolio aggregates a customer's loan book.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/scoring"
)

// Service computes loan book aggregates for a customer.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewService creates a new portfolio service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Summary holds the loan book aggregates for a single customer.
type Summary struct {
	CustomerID       int64   `json:"customer_id"`
	TotalLoans       int     `json:"total_loans"`
	ActiveLoans      int     `json:"active_loans"`
	TotalDebt        float64 `json:"total_debt"`
	MonthlyEMILoad   float64 `json:"monthly_emi_load"`
	RepaymentsLeft   int     `json:"repayments_left"`
	CreditScore      int     `json:"credit_score"`
	ApprovedLimit    int64   `json:"approved_limit"`
	LimitUtilization float64 `json:"limit_utilization"`
}

// Summary builds the aggregates for a customer as of the reference date.
// Returns domain.ErrNotFound when the customer does not exist.
func (s *Service) Summary(ctx context.Context, customerID int64, now time.Time) (*Summary, error) {
	customer, err := s.getCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	loans, err := s.repo.ListLoansByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}

	summary := &Summary{
		CustomerID:    customerID,
		TotalLoans:    len(loans),
		ApprovedLimit: customer.ApprovedLimit,
		CreditScore:   scoring.CreditScore(customer, loans, now),
	}

	for _, loan := range loans {
		summary.TotalDebt += loan.Amount
		summary.MonthlyEMILoad += loan.MonthlyRepayment
		if left := loan.RepaymentsLeft(); left > 0 {
			summary.ActiveLoans++
			summary.RepaymentsLeft += left
		}
	}

	if customer.ApprovedLimit > 0 {
		summary.LimitUtilization = summary.TotalDebt / float64(customer.ApprovedLimit)
	}

	return summary, nil
}

// EMILoad returns the sum of monthly repayments across all of the
// customer's loans. Used to feed the affordability variables of the
// policy engine without building a full summary.
func (s *Service) EMILoad(ctx context.Context, customerID int64) (float64, error) {
	loans, err := s.repo.ListLoansByCustomer(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list loans: %w", err)
	}

	var total float64
	for _, loan := range loans {
		total += loan.MonthlyRepayment
	}
	return total, nil
}

// getCustomer checks the cache before the repository.
func (s *Service) getCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	if s.cache != nil {
		if customer, err := s.cache.GetCustomer(ctx, customerID); err == nil && customer != nil {
			return customer, nil
		}
	}

	customer, err := s.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetCustomer(ctx, customer, 5*time.Minute)
	}

	return customer, nil
}
