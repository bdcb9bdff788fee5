package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Customer operations
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)

	// Loan operations. ListLoansByCustomer returns the complete history in
	// a single query so the scoring engine always sees a consistent
	// snapshot.
	CreateLoan(ctx context.Context, l *Loan) error
	GetLoan(ctx context.Context, loanID int64) (*Loan, error)
	ListLoansByCustomer(ctx context.Context, customerID int64) ([]*Loan, error)

	// Decision audit records
	SaveDecision(ctx context.Context, d *Decision) error
	GetDecision(ctx context.Context, decisionID string) (*Decision, error)

	// Policy rule configuration
	SavePolicyRule(ctx context.Context, rule *PolicyRule) error
	ListPolicyRules(ctx context.Context) ([]*PolicyRule, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
