package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/brojonat/txnview/service/store"
	"github.com/brojonat/txnview/viewer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Schema creates the tables used by Store. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS employees (
	seq        BIGSERIAL,
	id         TEXT PRIMARY KEY,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL REFERENCES employees(id),
	amount      NUMERIC(14, 2) NOT NULL,
	merchant    TEXT NOT NULL,
	date        DATE NOT NULL,
	approved    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS transactions_employee_id_idx ON transactions (employee_id, seq);
`

const selectTransactions = `
SELECT t.id, t.amount::text, t.merchant, to_char(t.date, 'YYYY-MM-DD'), t.approved,
       e.id, e.first_name, e.last_name
FROM transactions t
JOIN employees e ON e.id = t.employee_id
`

// Store is a Postgres-backed store.Store. Transactions are ordered by
// insertion sequence.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Seed inserts the fixture's employees and transactions in one database
// transaction. Rows that already exist are left untouched.
func (s *Store) Seed(ctx context.Context, f *store.Fixture) error {
	employees, transactions, err := f.Resolve()
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, e := range employees {
		batch.Queue(`INSERT INTO employees (id, first_name, last_name) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`, e.ID, e.FirstName, e.LastName)
	}
	for _, t := range transactions {
		batch.Queue(`INSERT INTO transactions (id, employee_id, amount, merchant, date, approved)
			VALUES ($1, $2, $3::numeric, $4, $5::date, $6)
			ON CONFLICT (id) DO NOTHING`, t.ID, t.Employee.ID, t.Amount.String(), t.Merchant, t.Date, t.Approved)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed fixture: %w", err)
	}

	return tx.Commit(ctx)
}

// CountTransactions returns the number of stored transactions.
func (s *Store) CountTransactions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transactions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListEmployees implements store.Store.
func (s *Store) ListEmployees(ctx context.Context) ([]viewer.Employee, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, first_name, last_name FROM employees ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (viewer.Employee, error) {
		var e viewer.Employee
		err := row.Scan(&e.ID, &e.FirstName, &e.LastName)
		return e, err
	})
}

// ListTransactions implements store.Store.
func (s *Store) ListTransactions(ctx context.Context, offset, limit int) ([]viewer.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactions+`ORDER BY t.seq LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTransaction)
}

// ListTransactionsByEmployee implements store.Store.
func (s *Store) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]viewer.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectTransactions+`WHERE t.employee_id = $1 ORDER BY t.seq`, employeeID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTransaction)
}

// SetTransactionApproval implements store.Store.
func (s *Store) SetTransactionApproval(ctx context.Context, transactionID string, value bool) (viewer.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
WITH updated AS (
	UPDATE transactions SET approved = $2 WHERE id = $1 RETURNING *
)
SELECT t.id, t.amount::text, t.merchant, to_char(t.date, 'YYYY-MM-DD'), t.approved,
       e.id, e.first_name, e.last_name
FROM updated t
JOIN employees e ON e.id = t.employee_id`, transactionID, value)
	if err != nil {
		return viewer.Transaction{}, err
	}

	txn, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return viewer.Transaction{}, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, transactionID)
	}
	return txn, err
}

// scanTransaction converts a row of selectTransactions to a viewer.Transaction.
func scanTransaction(row pgx.CollectableRow) (viewer.Transaction, error) {
	var (
		t      viewer.Transaction
		amount string
	)
	if err := row.Scan(&t.ID, &amount, &t.Merchant, &t.Date, &t.Approved,
		&t.Employee.ID, &t.Employee.FirstName, &t.Employee.LastName); err != nil {
		return t, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("invalid amount %q for transaction %s: %w", amount, t.ID, err)
	}
	t.Amount = d
	return t, nil
}
