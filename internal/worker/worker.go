// Package worker provides async loan application processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/policy"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/scoring"
)

// Worker processes loan applications asynchronously from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	policy *policy.Engine

	// clock supplies the reference date for scoring and loan terms.
	clock func() time.Time

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker. The policy engine may be nil when
// no advisory rules are configured.
func NewWorker(bus domain.EventBus, repo domain.Repository, policyEngine *policy.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		policy: policyEngine,
		clock:  func() time.Time { return time.Now().UTC() },
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetClock overrides the reference date source. Tests use this to get
// deterministic scoring.
func (w *Worker) SetClock(clock func() time.Time) {
	w.clock = clock
}

// Start subscribes to the application topic and begins processing.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicApplicationReceived, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started",
		"topic", domain.TopicApplicationReceived,
	)

	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processApplication(ctx, msg)
}

// processApplication evaluates a queued application through the pipeline.
func (w *Worker) processApplication(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var app domain.ApplicationMessage
	if err := json.Unmarshal(msg.Payload, &app); err != nil {
		slog.Error("failed to parse application message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing application",
		"application_id", app.ApplicationID,
		"customer_id", app.CustomerID,
	)

	now := w.clock()

	// 1. Load customer and history
	customer, err := w.repo.GetCustomer(ctx, app.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return w.saveFailure(ctx, &app, now, "customer not found")
		}
		slog.Error("failed to load customer",
			"application_id", app.ApplicationID,
			"error", err,
		)
		return err
	}

	loans, err := w.repo.ListLoansByCustomer(ctx, app.CustomerID)
	if err != nil {
		slog.Error("failed to load loan history",
			"application_id", app.ApplicationID,
			"error", err,
		)
		return err
	}

	// 2. Run the eligibility check
	decision := scoring.Evaluate(customer, loans, scoring.Request{
		Amount:       app.LoanAmount,
		InterestRate: app.InterestRate,
		Tenure:       app.Tenure,
	}, now)
	decision.ID = app.ApplicationID
	decision.CreatedAt = now

	// 3. Issue the loan on approval. The stored EMI uses the requested
	// rate, matching the synchronous create-loan path.
	if decision.Approved {
		startDate, endDate := domain.NewLoanTerm(now, app.Tenure)
		loan := &domain.Loan{
			CustomerID:       app.CustomerID,
			Amount:           app.LoanAmount,
			Tenure:           app.Tenure,
			InterestRate:     app.InterestRate,
			MonthlyRepayment: scoring.MonthlyInstallment(app.LoanAmount, app.Tenure, app.InterestRate),
			StartDate:        startDate,
			EndDate:          endDate,
		}
		if err := w.repo.CreateLoan(ctx, loan); err != nil {
			slog.Error("failed to create loan",
				"application_id", app.ApplicationID,
				"error", err,
			)
			return err
		}
		decision.LoanID = &loan.ID
	}

	// 4. Attach advisory policy flags
	w.attachFlags(ctx, customer, loans, &app, decision)

	// 5. Persist the decision under the application ID
	if err := w.repo.SaveDecision(ctx, decision); err != nil {
		slog.Error("failed to save decision",
			"application_id", app.ApplicationID,
			"error", err,
		)
		return err
	}

	// 6. Publish outcome
	payload, _ := json.Marshal(decision)
	if err := w.bus.Publish(ctx, domain.TopicDecision, payload); err != nil {
		slog.Error("failed to publish decision",
			"application_id", app.ApplicationID,
			"error", err,
		)
	}

	outcomeTopic := domain.TopicLoanRejected
	if decision.Approved {
		outcomeTopic = domain.TopicLoanApproved
	}
	if err := w.bus.Publish(ctx, outcomeTopic, payload); err != nil {
		slog.Error("failed to publish outcome",
			"application_id", app.ApplicationID,
			"error", err,
		)
	}

	slog.Info("application processed",
		"application_id", app.ApplicationID,
		"customer_id", app.CustomerID,
		"approved", decision.Approved,
		"credit_score", decision.CreditScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// attachFlags runs the advisory policy rules. Flags never change the
// approval outcome.
func (w *Worker) attachFlags(ctx context.Context, customer *domain.Customer, loans []*domain.Loan, app *domain.ApplicationMessage, decision *domain.Decision) {
	if w.policy == nil || w.policy.RulesCount() == 0 {
		return
	}

	var totalDebt, emiTotal float64
	activeLoans := 0
	for _, l := range loans {
		totalDebt += l.Amount
		emiTotal += l.MonthlyRepayment
		if l.RepaymentsLeft() > 0 {
			activeLoans++
		}
	}

	input := &policy.Input{
		Amount:        app.LoanAmount,
		Tenure:        app.Tenure,
		InterestRate:  app.InterestRate,
		CreditScore:   decision.CreditScore,
		Approved:      decision.Approved,
		Age:           customer.Age,
		MonthlySalary: float64(customer.MonthlySalary),
		ApprovedLimit: float64(customer.ApprovedLimit),
		ActiveLoans:   activeLoans,
		TotalDebt:     totalDebt,
		EMITotal:      emiTotal,
	}
	if decision.CorrectedRate != nil {
		input.CorrectedRate = *decision.CorrectedRate
	}
	if decision.MonthlyInstallment != nil {
		input.Installment = *decision.MonthlyInstallment
	}

	flags, err := w.policy.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed",
			"application_id", app.ApplicationID,
			"error", err,
		)
		return
	}

	for _, f := range flags {
		decision.RiskFlags = append(decision.RiskFlags, f.Name)
	}
}

// saveFailure records a rejected decision for an application that could
// not be evaluated.
func (w *Worker) saveFailure(ctx context.Context, app *domain.ApplicationMessage, now time.Time, reason string) error {
	decision := &domain.Decision{
		ID:         app.ApplicationID,
		CustomerID: app.CustomerID,
		CreatedAt:  now,
		RiskFlags:  []string{reason},
	}
	return w.repo.SaveDecision(ctx, decision)
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscription_count"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
