package server

import (
	"context"
	"time"

	"github.com/brojonat/txnview/service/metrics"
	"github.com/brojonat/txnview/service/store"
	"github.com/brojonat/txnview/viewer"
)

// instrumentedStore records the duration and outcome of every store call.
type instrumentedStore struct {
	store.Store
	metrics *metrics.Metrics
}

func (s *instrumentedStore) ListEmployees(ctx context.Context) ([]viewer.Employee, error) {
	start := time.Now()
	employees, err := s.Store.ListEmployees(ctx)
	s.metrics.RecordStoreQuery("list_employees", time.Since(start).Seconds(), err)
	return employees, err
}

func (s *instrumentedStore) ListTransactions(ctx context.Context, offset, limit int) ([]viewer.Transaction, error) {
	start := time.Now()
	txns, err := s.Store.ListTransactions(ctx, offset, limit)
	s.metrics.RecordStoreQuery("list_transactions", time.Since(start).Seconds(), err)
	return txns, err
}

func (s *instrumentedStore) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]viewer.Transaction, error) {
	start := time.Now()
	txns, err := s.Store.ListTransactionsByEmployee(ctx, employeeID)
	s.metrics.RecordStoreQuery("list_transactions_by_employee", time.Since(start).Seconds(), err)
	return txns, err
}

func (s *instrumentedStore) SetTransactionApproval(ctx context.Context, transactionID string, value bool) (viewer.Transaction, error) {
	start := time.Now()
	txn, err := s.Store.SetTransactionApproval(ctx, transactionID, value)
	s.metrics.RecordStoreQuery("set_transaction_approval", time.Since(start).Seconds(), err)
	return txn, err
}
