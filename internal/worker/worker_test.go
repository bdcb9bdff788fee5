package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/bus"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/policy"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/repository"
)

var testNow = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func newTestWorker(t *testing.T) (*Worker, domain.Repository, domain.EventBus) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "worker-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	policyEngine, err := policy.NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	if err := policyEngine.LoadRules(policy.DefaultRules()); err != nil {
		t.Fatalf("failed to load policy rules: %v", err)
	}
	t.Cleanup(func() { policyEngine.Close() })

	w := NewWorker(eventBus, repo, policyEngine)
	w.SetClock(func() time.Time { return testNow })
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	return w, repo, eventBus
}

// waitForDecision polls the repository until the decision shows up.
func waitForDecision(t *testing.T, repo domain.Repository, id string) *domain.Decision {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		decision, err := repo.GetDecision(context.Background(), id)
		if err == nil {
			return decision
		}
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("GetDecision failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("timeout waiting for decision %s", id)
	return nil
}

func publishApplication(t *testing.T, eventBus domain.EventBus, app *domain.ApplicationMessage) {
	t.Helper()

	payload, err := json.Marshal(app)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Allow the subscription goroutine to come up
	time.Sleep(10 * time.Millisecond)

	if err := eventBus.Publish(context.Background(), domain.TopicApplicationReceived, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}

func TestWorkerApprovesCleanApplication(t *testing.T) {
	_, repo, eventBus := newTestWorker(t)
	ctx := context.Background()

	customer := domain.NewCustomer("Priya", "Nair", 31, 9876500001, 50000, nil)
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	appID := uuid.New().String()
	publishApplication(t, eventBus, &domain.ApplicationMessage{
		ApplicationID: appID,
		CustomerID:    customer.ID,
		LoanAmount:    100000,
		InterestRate:  10,
		Tenure:        12,
	})

	decision := waitForDecision(t, repo, appID)

	if !decision.Approved {
		t.Fatalf("expected approval, got %+v", decision)
	}
	if decision.CreditScore != 100 {
		t.Errorf("expected score 100 with no history, got %d", decision.CreditScore)
	}
	if decision.LoanID == nil {
		t.Fatal("expected loan to be issued")
	}

	loan, err := repo.GetLoan(ctx, *decision.LoanID)
	if err != nil {
		t.Fatalf("GetLoan failed: %v", err)
	}
	if loan.CustomerID != customer.ID {
		t.Errorf("expected loan owner %d, got %d", customer.ID, loan.CustomerID)
	}
	if loan.Amount != 100000 {
		t.Errorf("expected principal 100000, got %f", loan.Amount)
	}
	if !loan.StartDate.Equal(testNow) {
		t.Errorf("expected start date %v, got %v", testNow, loan.StartDate)
	}
	if !loan.EndDate.Equal(testNow.AddDate(0, 0, 360)) {
		t.Errorf("expected end date %v, got %v", testNow.AddDate(0, 0, 360), loan.EndDate)
	}
	if loan.EMIsPaidOnTime != 0 {
		t.Errorf("expected no EMIs paid on a fresh loan, got %d", loan.EMIsPaidOnTime)
	}
}

func TestWorkerRejectsOverLimitApplication(t *testing.T) {
	_, repo, eventBus := newTestWorker(t)
	ctx := context.Background()

	customer := domain.NewCustomer("Vikram", "Singh", 45, 9876500002, 50000, nil)
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	// Outstanding principal above the approved limit forces score 0
	existing := &domain.Loan{
		CustomerID:       customer.ID,
		Amount:           2000000,
		Tenure:           60,
		InterestRate:     11,
		MonthlyRepayment: 43485.95,
		EMIsPaidOnTime:   60,
		StartDate:        testNow.AddDate(-5, 0, 0),
		EndDate:          testNow.AddDate(0, 0, -10),
	}
	if err := repo.CreateLoan(ctx, existing); err != nil {
		t.Fatalf("failed to create loan: %v", err)
	}

	appID := uuid.New().String()
	publishApplication(t, eventBus, &domain.ApplicationMessage{
		ApplicationID: appID,
		CustomerID:    customer.ID,
		LoanAmount:    50000,
		InterestRate:  15,
		Tenure:        12,
	})

	decision := waitForDecision(t, repo, appID)

	if decision.Approved {
		t.Fatalf("expected rejection, got %+v", decision)
	}
	if decision.CreditScore != 0 {
		t.Errorf("expected score 0 over the limit, got %d", decision.CreditScore)
	}
	if decision.LoanID != nil {
		t.Error("rejected application must not issue a loan")
	}
	if decision.MonthlyInstallment != nil {
		t.Error("rejected application must not carry an installment")
	}

	// Debt above the approved limit should raise the advisory flag
	found := false
	for _, flag := range decision.RiskFlags {
		if flag == "limit_exhausted" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected limit_exhausted flag, got %v", decision.RiskFlags)
	}
}

func TestWorkerUnknownCustomer(t *testing.T) {
	_, repo, eventBus := newTestWorker(t)

	appID := uuid.New().String()
	publishApplication(t, eventBus, &domain.ApplicationMessage{
		ApplicationID: appID,
		CustomerID:    99999,
		LoanAmount:    50000,
		InterestRate:  10,
		Tenure:        12,
	})

	decision := waitForDecision(t, repo, appID)

	if decision.Approved {
		t.Error("expected rejection for unknown customer")
	}
	if len(decision.RiskFlags) == 0 || decision.RiskFlags[0] != "customer not found" {
		t.Errorf("expected customer not found marker, got %v", decision.RiskFlags)
	}
}

func TestWorkerPublishesOutcome(t *testing.T) {
	_, repo, eventBus := newTestWorker(t)
	ctx := context.Background()

	customer := domain.NewCustomer("Anita", "Rao", 27, 9876500003, 80000, nil)
	if err := repo.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	approvedCh := make(chan *domain.Message, 1)
	eventBus.Subscribe(ctx, domain.TopicLoanApproved, func(ctx context.Context, msg *domain.Message) error {
		select {
		case approvedCh <- msg:
		default:
		}
		return nil
	})

	appID := uuid.New().String()
	publishApplication(t, eventBus, &domain.ApplicationMessage{
		ApplicationID: appID,
		CustomerID:    customer.ID,
		LoanAmount:    200000,
		InterestRate:  14,
		Tenure:        24,
	})

	select {
	case msg := <-approvedCh:
		var decision domain.Decision
		if err := json.Unmarshal(msg.Payload, &decision); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if decision.ID != appID {
			t.Errorf("expected decision ID %s, got %s", appID, decision.ID)
		}
		if !decision.Approved {
			t.Error("expected approved decision on the approved topic")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for approved event")
	}
}

func TestWorkerStats(t *testing.T) {
	w, _, _ := newTestWorker(t)

	stats := w.GetStats()
	if stats.SubscriptionCount != 1 {
		t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
	}
	if len(stats.Topics) != 1 || stats.Topics[0] != domain.TopicApplicationReceived {
		t.Errorf("unexpected topics: %v", stats.Topics)
	}
}
