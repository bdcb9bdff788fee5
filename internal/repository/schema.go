package repository

import "strings"

// Schema definitions for the credit approval database.
// Compatible with both SQLite and PostgreSQL; the only divergence is the
// auto-increment primary key syntax, patched in per driver.

const pkPlaceholder = "__PK__"

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    customer_id __PK__,
    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    age INTEGER NOT NULL,
    phone_number BIGINT NOT NULL,
    monthly_salary BIGINT NOT NULL,
    approved_limit BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaLoans = `
CREATE TABLE IF NOT EXISTS loans (
    loan_id __PK__,
    customer_id BIGINT,
    loan_amount REAL NOT NULL,
    tenure INTEGER NOT NULL,
    interest_rate REAL NOT NULL,
    monthly_repayment REAL NOT NULL,
    emis_paid_on_time INTEGER NOT NULL,
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_loans_customer ON loans(customer_id);
CREATE INDEX IF NOT EXISTS idx_loans_start_date ON loans(start_date);
`

const schemaDecisions = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    customer_id BIGINT NOT NULL,
    approved INTEGER NOT NULL,
    credit_score INTEGER NOT NULL,
    interest_rate REAL,
    corrected_rate REAL,
    tenure INTEGER,
    monthly_installment REAL,
    risk_flags TEXT,
    loan_id BIGINT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_customer ON decisions(customer_id);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
`

const schemaPolicyRules = `
CREATE TABLE IF NOT EXISTS policy_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    reason TEXT NOT NULL,
    severity TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_policy_rules_enabled ON policy_rules(enabled);
`

// AllSchemas returns all schema statements in order, with the
// auto-increment primary key syntax for the given driver.
func AllSchemas(driver string) []string {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	schemas := []string{
		schemaCustomers,
		schemaLoans,
		schemaDecisions,
		schemaPolicyRules,
	}

	out := make([]string, len(schemas))
	for i, s := range schemas {
		out[i] = strings.ReplaceAll(s, pkPlaceholder, pk)
	}
	return out
}
