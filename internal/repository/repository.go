// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/srihari-sirisipalli/credit-approval-system/internal/domain"
)

// Sentinel errors re-exported for callers that only import this package.
var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidInput = domain.ErrInvalidInput
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas(r.driver) {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// CreateCustomer stores a customer and assigns its generated ID.
func (r *SQLRepository) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if c == nil {
		return fmt.Errorf("%w: customer is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	if r.driver == "postgres" {
		query := `
			INSERT INTO customers (first_name, last_name, age, phone_number, monthly_salary, approved_limit, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING customer_id
		`
		return r.db.QueryRowContext(ctx, query,
			c.FirstName, c.LastName, c.Age, c.PhoneNumber,
			c.MonthlySalary, c.ApprovedLimit, now,
		).Scan(&c.ID)
	}

	query := `
		INSERT INTO customers (first_name, last_name, age, phone_number, monthly_salary, approved_limit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		c.FirstName, c.LastName, c.Age, c.PhoneNumber,
		c.MonthlySalary, c.ApprovedLimit, now,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetCustomer retrieves a customer by ID.
func (r *SQLRepository) GetCustomer(ctx context.Context, customerID int64) (*domain.Customer, error) {
	query := `
		SELECT customer_id, first_name, last_name, age, phone_number, monthly_salary, approved_limit
		FROM customers
		WHERE customer_id = ?
	`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, r.rebind(query), customerID).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Age,
		&c.PhoneNumber, &c.MonthlySalary, &c.ApprovedLimit,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CreateLoan stores a loan and assigns its generated ID.
func (r *SQLRepository) CreateLoan(ctx context.Context, l *domain.Loan) error {
	if l == nil {
		return fmt.Errorf("%w: loan is required", ErrInvalidInput)
	}

	now := time.Now().UTC()

	// A loan may transiently have no owner; store NULL rather than 0.
	var customerID sql.NullInt64
	if l.CustomerID != 0 {
		customerID = sql.NullInt64{Int64: l.CustomerID, Valid: true}
	}

	if r.driver == "postgres" {
		query := `
			INSERT INTO loans (customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING loan_id
		`
		return r.db.QueryRowContext(ctx, query,
			customerID, l.Amount, l.Tenure, l.InterestRate,
			l.MonthlyRepayment, l.EMIsPaidOnTime, l.StartDate, l.EndDate, now,
		).Scan(&l.ID)
	}

	query := `
		INSERT INTO loans (customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		customerID, l.Amount, l.Tenure, l.InterestRate,
		l.MonthlyRepayment, l.EMIsPaidOnTime, l.StartDate, l.EndDate, now,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

// GetLoan retrieves a loan by ID.
func (r *SQLRepository) GetLoan(ctx context.Context, loanID int64) (*domain.Loan, error) {
	query := `
		SELECT loan_id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date
		FROM loans
		WHERE loan_id = ?
	`

	var l domain.Loan
	var customerID sql.NullInt64

	err := r.db.QueryRowContext(ctx, r.rebind(query), loanID).Scan(
		&l.ID, &customerID, &l.Amount, &l.Tenure, &l.InterestRate,
		&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l.CustomerID = customerID.Int64
	return &l, nil
}

// ListLoansByCustomer retrieves the complete loan history for a customer in
// a single query, ordered by start date. The result is the consistent
// snapshot the scoring engine evaluates against.
func (r *SQLRepository) ListLoansByCustomer(ctx context.Context, customerID int64) ([]*domain.Loan, error) {
	query := `
		SELECT loan_id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date
		FROM loans
		WHERE customer_id = ?
		ORDER BY start_date, loan_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*domain.Loan
	for rows.Next() {
		var l domain.Loan
		var owner sql.NullInt64

		if err := rows.Scan(
			&l.ID, &owner, &l.Amount, &l.Tenure, &l.InterestRate,
			&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
		); err != nil {
			return nil, err
		}

		l.CustomerID = owner.Int64
		loans = append(loans, &l)
	}

	return loans, rows.Err()
}

// SaveDecision stores an eligibility decision audit record.
func (r *SQLRepository) SaveDecision(ctx context.Context, d *domain.Decision) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("%w: decision with id is required", ErrInvalidInput)
	}

	flags, _ := json.Marshal(d.RiskFlags)

	approved := 0
	if d.Approved {
		approved = 1
	}

	query := `
		INSERT INTO decisions (
			id, customer_id, approved, credit_score, interest_rate,
			corrected_rate, tenure, monthly_installment, risk_flags, loan_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		d.ID, d.CustomerID, approved, d.CreditScore,
		nullFloat(d.InterestRate), nullFloat(d.CorrectedRate),
		nullInt(d.Tenure), nullFloat(d.MonthlyInstallment),
		string(flags), nullInt64(d.LoanID), d.CreatedAt,
	)
	return err
}

// GetDecision retrieves a decision audit record by ID.
func (r *SQLRepository) GetDecision(ctx context.Context, decisionID string) (*domain.Decision, error) {
	query := `
		SELECT id, customer_id, approved, credit_score, interest_rate,
			   corrected_rate, tenure, monthly_installment, risk_flags, loan_id, created_at
		FROM decisions
		WHERE id = ?
	`

	var d domain.Decision
	var approved int
	var rate, corrected, installment sql.NullFloat64
	var tenure, loanID sql.NullInt64
	var flags string

	err := r.db.QueryRowContext(ctx, r.rebind(query), decisionID).Scan(
		&d.ID, &d.CustomerID, &approved, &d.CreditScore,
		&rate, &corrected, &tenure, &installment, &flags, &loanID, &d.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d.Approved = approved == 1
	if rate.Valid {
		d.InterestRate = &rate.Float64
	}
	if corrected.Valid {
		d.CorrectedRate = &corrected.Float64
	}
	if tenure.Valid {
		t := int(tenure.Int64)
		d.Tenure = &t
	}
	if installment.Valid {
		d.MonthlyInstallment = &installment.Float64
	}
	if loanID.Valid {
		d.LoanID = &loanID.Int64
	}
	if flags != "" {
		json.Unmarshal([]byte(flags), &d.RiskFlags)
	}

	return &d, nil
}

// SavePolicyRule stores a policy rule, replacing any prior version.
func (r *SQLRepository) SavePolicyRule(ctx context.Context, rule *domain.PolicyRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: policy rule with id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO policy_rules (id, name, description, expression, reason, severity, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			reason = excluded.reason,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.Reason, rule.Severity, enabled, now, now,
	)
	return err
}

// ListPolicyRules retrieves all enabled policy rules.
func (r *SQLRepository) ListPolicyRules(ctx context.Context) ([]*domain.PolicyRule, error) {
	query := `
		SELECT id, name, description, expression, reason, severity, enabled
		FROM policy_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.PolicyRule
	for rows.Next() {
		var rule domain.PolicyRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Description, &rule.Expression,
			&rule.Reason, &rule.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
