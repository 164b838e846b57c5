// Package store defines the storage contract of the transaction API and an
// in-memory implementation seeded from fixtures.
package store

import (
	"context"
	"errors"

	"github.com/brojonat/txnview/viewer"
)

var (
	// ErrTransactionNotFound is returned when an approval targets an unknown transaction.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrEmployeeNotFound is returned when a fixture references an unknown employee.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// Store is the data layer behind the HTTP API. Transactions are returned in a
// stable order so offset pagination never repeats or skips rows.
type Store interface {
	ListEmployees(ctx context.Context) ([]viewer.Employee, error)

	// ListTransactions returns up to limit transactions starting at offset.
	ListTransactions(ctx context.Context, offset, limit int) ([]viewer.Transaction, error)

	ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]viewer.Transaction, error)

	// SetTransactionApproval updates the flag and returns the updated
	// transaction, or ErrTransactionNotFound.
	SetTransactionApproval(ctx context.Context, transactionID string, value bool) (viewer.Transaction, error)
}
