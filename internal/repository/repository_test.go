package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "credit-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	var customerID int64

	t.Run("CreateAndGetCustomer", func(t *testing.T) {
		c := domain.NewCustomer("John", "Doe", 30, 1234567890, 50000, nil)

		if err := repo.CreateCustomer(ctx, c); err != nil {
			t.Fatalf("CreateCustomer failed: %v", err)
		}
		if c.ID == 0 {
			t.Fatal("expected generated customer ID")
		}
		customerID = c.ID

		retrieved, err := repo.GetCustomer(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetCustomer failed: %v", err)
		}

		if retrieved.FirstName != "John" || retrieved.LastName != "Doe" {
			t.Errorf("expected John Doe, got %s %s", retrieved.FirstName, retrieved.LastName)
		}
		if retrieved.MonthlySalary != 50000 {
			t.Errorf("expected salary 50000, got %d", retrieved.MonthlySalary)
		}
		if retrieved.ApprovedLimit != 1_800_000 {
			t.Errorf("expected default approved limit 1800000, got %d", retrieved.ApprovedLimit)
		}
	})

	t.Run("SequentialCustomerIDs", func(t *testing.T) {
		a := domain.NewCustomer("Jane", "Smith", 28, 9876543210, 60000, nil)
		b := domain.NewCustomer("Jim", "Brown", 41, 5551234567, 30000, nil)

		if err := repo.CreateCustomer(ctx, a); err != nil {
			t.Fatalf("CreateCustomer failed: %v", err)
		}
		if err := repo.CreateCustomer(ctx, b); err != nil {
			t.Fatalf("CreateCustomer failed: %v", err)
		}
		if b.ID != a.ID+1 {
			t.Errorf("expected sequential IDs, got %d then %d", a.ID, b.ID)
		}
	})

	t.Run("CreateAndGetLoan", func(t *testing.T) {
		start := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
		l := &domain.Loan{
			CustomerID:       customerID,
			Amount:           100000,
			Tenure:           12,
			InterestRate:     12,
			MonthlyRepayment: 8884.88,
			EMIsPaidOnTime:   6,
			StartDate:        start,
			EndDate:          start.AddDate(0, 0, 360),
		}

		if err := repo.CreateLoan(ctx, l); err != nil {
			t.Fatalf("CreateLoan failed: %v", err)
		}
		if l.ID == 0 {
			t.Fatal("expected generated loan ID")
		}

		retrieved, err := repo.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("GetLoan failed: %v", err)
		}

		if retrieved.CustomerID != customerID {
			t.Errorf("expected customer %d, got %d", customerID, retrieved.CustomerID)
		}
		if retrieved.Amount != 100000 {
			t.Errorf("expected amount 100000, got %v", retrieved.Amount)
		}
		if retrieved.RepaymentsLeft() != 6 {
			t.Errorf("expected 6 repayments left, got %d", retrieved.RepaymentsLeft())
		}
		if !retrieved.StartDate.Equal(start) {
			t.Errorf("expected start %v, got %v", start, retrieved.StartDate)
		}
	})

	t.Run("UnownedLoan", func(t *testing.T) {
		start := time.Now().UTC()
		l := &domain.Loan{
			Amount:    5000,
			Tenure:    6,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 180),
		}

		if err := repo.CreateLoan(ctx, l); err != nil {
			t.Fatalf("CreateLoan failed: %v", err)
		}

		retrieved, err := repo.GetLoan(ctx, l.ID)
		if err != nil {
			t.Fatalf("GetLoan failed: %v", err)
		}
		if retrieved.CustomerID != 0 {
			t.Errorf("expected no owner, got customer %d", retrieved.CustomerID)
		}
	})

	t.Run("ListLoansByCustomer", func(t *testing.T) {
		start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
		second := &domain.Loan{
			CustomerID:       customerID,
			Amount:           25000,
			Tenure:           24,
			InterestRate:     10,
			MonthlyRepayment: 1153.74,
			EMIsPaidOnTime:   24,
			StartDate:        start,
			EndDate:          start.AddDate(0, 0, 720),
		}
		if err := repo.CreateLoan(ctx, second); err != nil {
			t.Fatalf("CreateLoan failed: %v", err)
		}

		loans, err := repo.ListLoansByCustomer(ctx, customerID)
		if err != nil {
			t.Fatalf("ListLoansByCustomer failed: %v", err)
		}
		if len(loans) != 2 {
			t.Fatalf("expected 2 loans, got %d", len(loans))
		}
		// Ordered by start date
		if loans[0].ID != second.ID {
			t.Errorf("expected oldest loan first, got loan %d", loans[0].ID)
		}
	})

	t.Run("ListLoansEmptyHistory", func(t *testing.T) {
		loans, err := repo.ListLoansByCustomer(ctx, 999999)
		if err != nil {
			t.Fatalf("ListLoansByCustomer failed: %v", err)
		}
		if len(loans) != 0 {
			t.Errorf("expected empty history, got %d loans", len(loans))
		}
	})

	t.Run("SaveAndGetDecision", func(t *testing.T) {
		rate := 10.0
		corrected := 12.0
		tenure := 12
		installment := 8884.88
		loanID := int64(42)

		d := &domain.Decision{
			ID:                 "dec-001",
			CustomerID:         customerID,
			Approved:           true,
			CreditScore:        72,
			InterestRate:       &rate,
			CorrectedRate:      &corrected,
			Tenure:             &tenure,
			MonthlyInstallment: &installment,
			RiskFlags:          []string{"high utilization"},
			LoanID:             &loanID,
			CreatedAt:          time.Now().UTC(),
		}

		if err := repo.SaveDecision(ctx, d); err != nil {
			t.Fatalf("SaveDecision failed: %v", err)
		}

		retrieved, err := repo.GetDecision(ctx, "dec-001")
		if err != nil {
			t.Fatalf("GetDecision failed: %v", err)
		}

		if !retrieved.Approved {
			t.Error("expected approved decision")
		}
		if retrieved.CreditScore != 72 {
			t.Errorf("expected score 72, got %d", retrieved.CreditScore)
		}
		if retrieved.CorrectedRate == nil || *retrieved.CorrectedRate != 12.0 {
			t.Errorf("expected corrected rate 12, got %v", retrieved.CorrectedRate)
		}
		if retrieved.LoanID == nil || *retrieved.LoanID != 42 {
			t.Errorf("expected loan ID 42, got %v", retrieved.LoanID)
		}
		if len(retrieved.RiskFlags) != 1 || retrieved.RiskFlags[0] != "high utilization" {
			t.Errorf("expected risk flags round trip, got %v", retrieved.RiskFlags)
		}
	})

	t.Run("RejectedDecisionNullFields", func(t *testing.T) {
		d := &domain.Decision{
			ID:          "dec-002",
			CustomerID:  customerID,
			Approved:    false,
			CreditScore: 0,
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveDecision(ctx, d); err != nil {
			t.Fatalf("SaveDecision failed: %v", err)
		}

		retrieved, err := repo.GetDecision(ctx, "dec-002")
		if err != nil {
			t.Fatalf("GetDecision failed: %v", err)
		}

		if retrieved.Approved {
			t.Error("expected rejected decision")
		}
		if retrieved.InterestRate != nil || retrieved.CorrectedRate != nil ||
			retrieved.Tenure != nil || retrieved.MonthlyInstallment != nil {
			t.Errorf("rejected decision must round-trip with nil fields, got %+v", retrieved)
		}
	})

	t.Run("PolicyRules", func(t *testing.T) {
		rule := &domain.PolicyRule{
			ID:         "large-request",
			Name:       "Large Request",
			Expression: "amount > 1000000.0",
			Reason:     "request exceeds one million",
			Severity:   domain.SeverityReview,
			Enabled:    true,
		}

		if err := repo.SavePolicyRule(ctx, rule); err != nil {
			t.Fatalf("SavePolicyRule failed: %v", err)
		}

		rules, err := repo.ListPolicyRules(ctx)
		if err != nil {
			t.Fatalf("ListPolicyRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(rules))
		}
		if rules[0].Expression != "amount > 1000000.0" {
			t.Errorf("unexpected expression %q", rules[0].Expression)
		}

		// Upsert: disabling removes it from the listing.
		rule.Enabled = false
		if err := repo.SavePolicyRule(ctx, rule); err != nil {
			t.Fatalf("SavePolicyRule update failed: %v", err)
		}

		rules, err = repo.ListPolicyRules(ctx)
		if err != nil {
			t.Fatalf("ListPolicyRules failed: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("expected no enabled rules, got %d", len(rules))
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetCustomer(ctx, 424242); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for customer, got: %v", err)
		}
		if _, err := repo.GetLoan(ctx, 424242); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for loan, got: %v", err)
		}
		if _, err := repo.GetDecision(ctx, "nonexistent"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for decision, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
