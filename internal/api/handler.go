package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/policy"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/portfolio"
	"github.com/srihari-sirisipalli/credit-approval-system/internal/scoring"
)

// checkCountWindow is the sliding window for eligibility-check counters.
const checkCountWindow = time.Hour

var validate = validator.New()

// Handler holds dependencies for API handlers.
type Handler struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	policy       *policy.Engine
	portfolio    *portfolio.Service
	version      string
	asyncEnabled bool

	// clock supplies the reference date for scoring and loan terms.
	clock func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, policyEngine *policy.Engine, portfolioSvc *portfolio.Service, version string, asyncEnabled bool) *Handler {
	return &Handler{
		repo:         repo,
		cache:        cache,
		bus:          bus,
		policy:       policyEngine,
		portfolio:    portfolioSvc,
		version:      version,
		asyncEnabled: asyncEnabled,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the reference date source. Tests use this to get
// deterministic scoring and loan terms.
func (h *Handler) SetClock(clock func() time.Time) {
	h.clock = clock
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// RegisterRequest is the request body for POST /register.
type RegisterRequest struct {
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Age           int    `json:"age" validate:"required,gte=18,lte=120"`
	MonthlyIncome int64  `json:"monthly_income" validate:"required,gt=0"`
	PhoneNumber   int64  `json:"phone_number" validate:"required,gt=0"`
}

// RegisterResponse is the response for POST /register.
type RegisterResponse struct {
	CustomerID    int64  `json:"customer_id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	MonthlyIncome int64  `json:"monthly_income"`
	PhoneNumber   int64  `json:"phone_number"`
	ApprovedLimit int64  `json:"approved_limit"`
}

// Register handles POST /register. The approved limit is computed once
// here and never recalculated.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer := domain.NewCustomer(req.FirstName, req.LastName, req.Age, req.PhoneNumber, req.MonthlyIncome, nil)
	if err := h.repo.CreateCustomer(ctx, customer); err != nil {
		slog.Error("failed to create customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}

	if h.cache != nil {
		_ = h.cache.SetCustomer(ctx, customer, 5*time.Minute)
	}

	slog.Info("customer registered",
		"customer_id", customer.ID,
		"approved_limit", customer.ApprovedLimit,
	)

	writeJSON(w, http.StatusCreated, RegisterResponse{
		CustomerID:    customer.ID,
		Name:          customer.Name(),
		Age:           customer.Age,
		MonthlyIncome: customer.MonthlySalary,
		PhoneNumber:   customer.PhoneNumber,
		ApprovedLimit: customer.ApprovedLimit,
	})
}

// LoanRequest is the shared body for eligibility checks, loan creation,
// and async applications.
type LoanRequest struct {
	CustomerID   int64   `json:"customer_id" validate:"required,gt=0"`
	LoanAmount   float64 `json:"loan_amount" validate:"required,gt=0"`
	InterestRate float64 `json:"interest_rate" validate:"required,gt=0"`
	Tenure       int     `json:"tenure" validate:"required,gt=0"`
}

// EligibilityResponse is the response for POST /check-eligibility.
type EligibilityResponse struct {
	CustomerID         int64    `json:"customer_id"`
	Approval           bool     `json:"approval"`
	InterestRate       float64  `json:"interest_rate"`
	CorrectedRate      *float64 `json:"corrected_interest_rate"`
	Tenure             int      `json:"tenure"`
	MonthlyInstallment *float64 `json:"monthly_installment"`
	RiskFlags          []string `json:"risk_flags,omitempty"`
	DecisionID         string   `json:"decision_id"`
}

// CheckEligibility handles POST /check-eligibility.
func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, customer, loans, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}

	now := h.clock()
	decision := scoring.Evaluate(customer, loans, scoring.Request{
		Amount:       req.LoanAmount,
		InterestRate: req.InterestRate,
		Tenure:       req.Tenure,
	}, now)
	decision.ID = uuid.New().String()
	decision.CreatedAt = now

	h.attachFlags(ctx, customer, loans, req, decision)

	if err := h.repo.SaveDecision(ctx, decision); err != nil {
		slog.Error("failed to save decision", "decision_id", decision.ID, "error", err)
	}

	resp := EligibilityResponse{
		CustomerID:         req.CustomerID,
		Approval:           decision.Approved,
		InterestRate:       req.InterestRate,
		Tenure:             req.Tenure,
		MonthlyInstallment: decision.MonthlyInstallment,
		RiskFlags:          decision.RiskFlags,
		DecisionID:         decision.ID,
	}

	// When a correction applies, the corrected rate replaces the requested
	// rate in the response. This mirrors the long-standing API contract.
	if corrected, applicable := scoring.CorrectRate(decision.CreditScore, req.InterestRate); applicable {
		resp.CorrectedRate = &corrected
		if corrected != req.InterestRate {
			resp.InterestRate = corrected
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateLoanResponse is the response for POST /create-loan.
type CreateLoanResponse struct {
	LoanID             *int64   `json:"loan_id"`
	CustomerID         int64    `json:"customer_id"`
	LoanApproved       bool     `json:"loan_approved"`
	Message            string   `json:"message"`
	MonthlyInstallment *float64 `json:"monthly_installment"`
}

// CreateLoan handles POST /create-loan. On approval the stored EMI is
// computed from the REQUESTED rate, not the corrected one; the correction
// only gates approval. This matches the established contract.
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, customer, loans, ok := h.loadEvaluation(w, r)
	if !ok {
		return
	}

	now := h.clock()
	decision := scoring.Evaluate(customer, loans, scoring.Request{
		Amount:       req.LoanAmount,
		InterestRate: req.InterestRate,
		Tenure:       req.Tenure,
	}, now)
	decision.ID = uuid.New().String()
	decision.CreatedAt = now

	resp := CreateLoanResponse{
		CustomerID:   req.CustomerID,
		LoanApproved: decision.Approved,
	}

	if decision.Approved {
		startDate, endDate := domain.NewLoanTerm(now, req.Tenure)
		installment := scoring.MonthlyInstallment(req.LoanAmount, req.Tenure, req.InterestRate)
		loan := &domain.Loan{
			CustomerID:       req.CustomerID,
			Amount:           req.LoanAmount,
			Tenure:           req.Tenure,
			InterestRate:     req.InterestRate,
			MonthlyRepayment: installment,
			StartDate:        startDate,
			EndDate:          endDate,
		}
		if err := h.repo.CreateLoan(ctx, loan); err != nil {
			slog.Error("failed to create loan", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create loan")
			return
		}

		decision.LoanID = &loan.ID
		resp.LoanID = &loan.ID
		resp.MonthlyInstallment = &installment
		resp.Message = "loan approved"

		slog.Info("loan created",
			"loan_id", loan.ID,
			"customer_id", req.CustomerID,
			"amount", req.LoanAmount,
		)
	} else {
		resp.Message = rejectionMessage(decision, req)
	}

	h.attachFlags(ctx, customer, loans, req, decision)

	if err := h.repo.SaveDecision(ctx, decision); err != nil {
		slog.Error("failed to save decision", "decision_id", decision.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// rejectionMessage explains why a loan was not approved. Mirrors the
// checks of the scoring engine in order.
func rejectionMessage(d *domain.Decision, req *LoanRequest) string {
	corrected, applicable := scoring.CorrectRate(d.CreditScore, req.InterestRate)
	if !applicable {
		return "loan not approved: credit score too low"
	}

	approvedByBand := d.CreditScore > 50 ||
		(d.CreditScore > 30 && corrected > 12) ||
		(d.CreditScore > 10 && d.CreditScore <= 30 && corrected > 16)
	if !approvedByBand {
		return fmt.Sprintf("loan not approved: interest rate below the floor for credit score %d", d.CreditScore)
	}

	return "loan not approved: total EMI load exceeds half of monthly salary"
}

// LoanDetailResponse is the response for GET /view-loan/{loanID}.
type LoanDetailResponse struct {
	LoanID             int64            `json:"loan_id"`
	Customer           *CustomerSummary `json:"customer,omitempty"`
	LoanAmount         float64          `json:"loan_amount"`
	InterestRate       float64          `json:"interest_rate"`
	MonthlyInstallment float64          `json:"monthly_installment"`
	Tenure             int              `json:"tenure"`
}

// CustomerSummary is the embedded customer block in loan views.
type CustomerSummary struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber int64  `json:"phone_number"`
	Age         int    `json:"age"`
}

// ViewLoan handles GET /view-loan/{loanID}.
func (h *Handler) ViewLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loanID, ok := parseID(w, chi.URLParam(r, "loanID"), "loan id")
	if !ok {
		return
	}

	loan, err := h.repo.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "loan not found")
			return
		}
		slog.Error("failed to get loan", "loan_id", loanID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get loan")
		return
	}

	resp := LoanDetailResponse{
		LoanID:             loan.ID,
		LoanAmount:         loan.Amount,
		InterestRate:       loan.InterestRate,
		MonthlyInstallment: loan.MonthlyRepayment,
		Tenure:             loan.Tenure,
	}

	if loan.CustomerID != 0 {
		if customer, err := h.getCustomer(ctx, loan.CustomerID); err == nil {
			resp.Customer = &CustomerSummary{
				ID:          customer.ID,
				FirstName:   customer.FirstName,
				LastName:    customer.LastName,
				PhoneNumber: customer.PhoneNumber,
				Age:         customer.Age,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// LoanListItem is one entry in the GET /view-loans response.
type LoanListItem struct {
	LoanID             int64   `json:"loan_id"`
	LoanAmount         float64 `json:"loan_amount"`
	InterestRate       float64 `json:"interest_rate"`
	MonthlyInstallment float64 `json:"monthly_installment"`
	RepaymentsLeft     int     `json:"repayments_left"`
}

// ViewLoans handles GET /view-loans/{customerID}. An unknown customer is
// 404; a known customer with no loans gets an empty list.
func (h *Handler) ViewLoans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, ok := parseID(w, chi.URLParam(r, "customerID"), "customer id")
	if !ok {
		return
	}

	if _, err := h.getCustomer(ctx, customerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		slog.Error("failed to get customer", "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	loans, err := h.repo.ListLoansByCustomer(ctx, customerID)
	if err != nil {
		slog.Error("failed to list loans", "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}

	items := make([]LoanListItem, 0, len(loans))
	for _, loan := range loans {
		items = append(items, LoanListItem{
			LoanID:             loan.ID,
			LoanAmount:         loan.Amount,
			InterestRate:       loan.InterestRate,
			MonthlyInstallment: loan.MonthlyRepayment,
			RepaymentsLeft:     loan.RepaymentsLeft(),
		})
	}

	writeJSON(w, http.StatusOK, items)
}

// GetCustomer handles GET /customers/{customerID}.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, ok := parseID(w, chi.URLParam(r, "customerID"), "customer id")
	if !ok {
		return
	}

	customer, err := h.getCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		slog.Error("failed to get customer", "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// GetPortfolio handles GET /portfolio/{customerID}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, ok := parseID(w, chi.URLParam(r, "customerID"), "customer id")
	if !ok {
		return
	}

	summary, err := h.portfolio.Summary(ctx, customerID, h.clock())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		slog.Error("failed to build portfolio", "customer_id", customerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build portfolio")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetDecision handles GET /decisions/{decisionID}.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decisionID := chi.URLParam(r, "decisionID")
	if decisionID == "" {
		writeError(w, http.StatusBadRequest, "decision id is required")
		return
	}

	decision, err := h.repo.GetDecision(ctx, decisionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "decision not found")
			return
		}
		slog.Error("failed to get decision", "decision_id", decisionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get decision")
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// SubmitApplication handles POST /applications. The request is validated
// and queued; evaluation happens in the worker. Poll GET /decisions/{id}
// with the returned application ID for the outcome.
func (h *Handler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.asyncEnabled || h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "async processing is not enabled")
		return
	}

	var req LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.getCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		slog.Error("failed to get customer", "customer_id", req.CustomerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	applicationID := uuid.New().String()
	payload, _ := json.Marshal(&domain.ApplicationMessage{
		ApplicationID: applicationID,
		CustomerID:    req.CustomerID,
		LoanAmount:    req.LoanAmount,
		InterestRate:  req.InterestRate,
		Tenure:        req.Tenure,
	})

	if err := h.bus.Publish(ctx, domain.TopicApplicationReceived, payload); err != nil {
		slog.Error("failed to queue application", "application_id", applicationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue application")
		return
	}

	slog.Info("application queued",
		"application_id", applicationID,
		"customer_id", req.CustomerID,
	)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"application_id": applicationID,
		"status":         "queued",
	})
}

// ListPolicies returns all rules loaded in the policy engine.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	if h.policy == nil {
		writeError(w, http.StatusServiceUnavailable, "policy engine not available")
		return
	}

	loaded := h.policy.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": loaded,
		"count":    len(loaded),
		"source":   "database",
	})
}

// CreatePolicyRequest is the request body for creating a policy rule.
type CreatePolicyRequest struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression" validate:"required"`
	Reason      string `json:"reason,omitempty"`
	Severity    string `json:"severity,omitempty" validate:"omitempty,oneof=info review"`
	Enabled     bool   `json:"enabled"`
}

// CreatePolicy creates a new policy rule and saves it to the database.
// After saving, call POST /policies/reload to hot-reload the engine.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.policy == nil {
		writeError(w, http.StatusServiceUnavailable, "policy engine not available")
		return
	}

	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Severity == "" {
		req.Severity = domain.SeverityInfo
	}

	rule := &domain.PolicyRule{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Reason:      req.Reason,
		Severity:    req.Severity,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression before persisting
	if err := h.policy.ValidateRule(rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid CEL expression: "+err.Error())
		return
	}

	if err := h.repo.SavePolicyRule(ctx, rule); err != nil {
		slog.Error("failed to save policy rule", "id", rule.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save policy rule")
		return
	}

	slog.Info("policy rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"policy":  rule,
		"message": "Policy created. Call POST /policies/reload to apply changes.",
	})
}

// ReloadPolicies reloads all policy rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.policy == nil {
		writeError(w, http.StatusServiceUnavailable, "policy engine not available")
		return
	}

	dbRules, err := h.repo.ListPolicyRules(ctx)
	if err != nil {
		slog.Error("failed to list policy rules from database", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load policy rules from database")
		return
	}

	if err := h.policy.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload policy rules into engine", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload policy rules: "+err.Error())
		return
	}

	slog.Info("policy rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "policy rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// loadEvaluation decodes and validates a loan request and loads the
// customer and loan history. Writes the error response itself and returns
// ok=false when the request cannot proceed.
func (h *Handler) loadEvaluation(w http.ResponseWriter, r *http.Request) (*LoanRequest, *domain.Customer, []*domain.Loan, bool) {
	ctx := r.Context()

	var req LoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return nil, nil, nil, false
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, nil, nil, false
	}

	customer, err := h.getCustomer(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return nil, nil, nil, false
		}
		slog.Error("failed to get customer", "customer_id", req.CustomerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return nil, nil, nil, false
	}

	loans, err := h.repo.ListLoansByCustomer(ctx, req.CustomerID)
	if err != nil {
		slog.Error("failed to list loans", "customer_id", req.CustomerID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list loans")
		return nil, nil, nil, false
	}

	return &req, customer, loans, true
}

// attachFlags runs the advisory policy rules and appends any hits to the
// decision. Flags never change the approval outcome.
func (h *Handler) attachFlags(ctx context.Context, customer *domain.Customer, loans []*domain.Loan, req *LoanRequest, decision *domain.Decision) {
	if h.policy == nil {
		return
	}

	var totalDebt, emiTotal float64
	activeLoans := 0
	for _, loan := range loans {
		totalDebt += loan.Amount
		emiTotal += loan.MonthlyRepayment
		if loan.RepaymentsLeft() > 0 {
			activeLoans++
		}
	}

	var installment float64
	if decision.MonthlyInstallment != nil {
		installment = *decision.MonthlyInstallment
	}
	var correctedRate float64
	if decision.CorrectedRate != nil {
		correctedRate = *decision.CorrectedRate
	}

	var checkCount int64
	if h.cache != nil {
		key := "checks:" + strconv.FormatInt(req.CustomerID, 10)
		if n, err := h.cache.IncrementCounter(ctx, key, checkCountWindow); err == nil {
			checkCount = n
		}
	}

	flags, err := h.policy.Evaluate(ctx, &policy.Input{
		Amount:        req.LoanAmount,
		Tenure:        req.Tenure,
		InterestRate:  req.InterestRate,
		CorrectedRate: correctedRate,
		Installment:   installment,
		CreditScore:   decision.CreditScore,
		Approved:      decision.Approved,
		Age:           customer.Age,
		MonthlySalary: float64(customer.MonthlySalary),
		ApprovedLimit: float64(customer.ApprovedLimit),
		TotalDebt:     totalDebt,
		EMITotal:      emiTotal,
		ActiveLoans:   activeLoans,
		CheckCount:    checkCount,
	})
	if err != nil {
		slog.Warn("policy evaluation failed", "decision_id", decision.ID, "error", err)
		return
	}
	for _, flag := range flags {
		decision.RiskFlags = append(decision.RiskFlags, flag.Name)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseID parses a positive integer path parameter.
func parseID(w http.ResponseWriter, raw, what string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, what+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// getCustomer checks the cache before the repository.
func (h *Handler) getCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	if h.cache != nil {
		if customer, err := h.cache.GetCustomer(ctx, customerID); err == nil && customer != nil {
			return customer, nil
		}
	}

	customer, err := h.repo.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.SetCustomer(ctx, customer, 5*time.Minute)
	}

	return customer, nil
}
