// Package policy provides the CEL-Go based advisory policy engine.
//
// Policy rules flag loan applications for human review. They never change
// the approval outcome, which is decided by the scoring engine alone.
package policy

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
)

// Engine compiles and evaluates policy rules against loan applications.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.PolicyRule
	Program cel.Program
}

// Flag is a single policy hit for an application.
type Flag struct {
	RuleID   string `json:"rule_id"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// NewEngine creates a new policy engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// Create CEL environment with application variables
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("tenure", cel.IntType),
		cel.Variable("interest_rate", cel.DoubleType),
		cel.Variable("corrected_rate", cel.DoubleType),
		cel.Variable("installment", cel.DoubleType),
		cel.Variable("credit_score", cel.IntType),
		cel.Variable("approved", cel.BoolType),
		cel.Variable("age", cel.IntType),
		cel.Variable("monthly_salary", cel.DoubleType),
		cel.Variable("approved_limit", cel.DoubleType),
		cel.Variable("active_loans", cel.IntType),
		cel.Variable("total_debt", cel.DoubleType),
		cel.Variable("emi_total", cel.DoubleType),
		cel.Variable("check_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(rule *domain.PolicyRule) error {
	if rule == nil {
		return fmt.Errorf("policy rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(rule *domain.PolicyRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(rules []*domain.PolicyRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// Input holds the application facts for policy evaluation.
type Input struct {
	Amount        float64
	Tenure        int
	InterestRate  float64
	CorrectedRate float64
	Installment   float64
	CreditScore   int
	Approved      bool
	Age           int
	MonthlySalary float64
	ApprovedLimit float64
	ActiveLoans   int
	TotalDebt     float64
	EMITotal      float64
	CheckCount    int64
}

// Evaluate runs all loaded rules in parallel and returns the flags raised.
func (e *Engine) Evaluate(ctx context.Context, input *Input) ([]Flag, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := map[string]any{
		"amount":         input.Amount,
		"tenure":         input.Tenure,
		"interest_rate":  input.InterestRate,
		"corrected_rate": input.CorrectedRate,
		"installment":    input.Installment,
		"credit_score":   input.CreditScore,
		"approved":       input.Approved,
		"age":            input.Age,
		"monthly_salary": input.MonthlySalary,
		"approved_limit": input.ApprovedLimit,
		"active_loans":   input.ActiveLoans,
		"total_debt":     input.TotalDebt,
		"emi_total":      input.EMITotal,
		"check_count":    input.CheckCount,
	}

	// Parallel evaluation using worker pool pattern
	hits := make([]*Flag, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			hits[idx] = e.evaluateRule(r, activation)
		}(i, rule)
	}

	wg.Wait()

	flags := make([]Flag, 0, len(hits))
	for _, hit := range hits {
		if hit != nil {
			flags = append(flags, *hit)
		}
	}

	return flags, nil
}

// evaluateRule evaluates a single rule. Returns nil when the rule does not fire.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any) *Flag {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		// An expression error never blocks the application
		return &Flag{
			RuleID:   rule.Rule.ID,
			Name:     rule.Rule.Name,
			Reason:   fmt.Sprintf("evaluation error: %v", err),
			Severity: domain.SeverityInfo,
		}
	}

	if !toBool(out) {
		return nil
	}

	return &Flag{
		RuleID:   rule.Rule.ID,
		Name:     rule.Rule.Name,
		Reason:   rule.Rule.Reason,
		Severity: rule.Rule.Severity,
	}
}

// toBool converts a CEL value to a fired/not-fired outcome.
func toBool(val ref.Val) bool {
	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Double:
		return float64(v) != 0
	case types.Int:
		return int64(v) != 0
	default:
		return false
	}
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(rules []*domain.PolicyRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rules.
func (e *Engine) GetLoadedRules() []*domain.PolicyRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.PolicyRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.PolicyRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", rule.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
