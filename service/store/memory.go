package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/brojonat/txnview/viewer"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and hands
// out copies, so callers cannot modify stored data. Data is lost on restart.
type MemoryStore struct {
	mu           sync.RWMutex
	employees    []viewer.Employee
	transactions []viewer.Transaction
	index        map[string]int
}

// NewMemoryStore creates a store holding the fixture's data.
func NewMemoryStore(f *Fixture) (*MemoryStore, error) {
	employees, transactions, err := f.Resolve()
	if err != nil {
		return nil, err
	}

	s := &MemoryStore{
		employees:    employees,
		transactions: transactions,
		index:        make(map[string]int, len(transactions)),
	}
	for i, t := range transactions {
		if _, dup := s.index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate transaction id %q", t.ID)
		}
		s.index[t.ID] = i
	}
	return s, nil
}

// ListEmployees implements Store.
func (s *MemoryStore) ListEmployees(ctx context.Context) ([]viewer.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.employees), nil
}

// ListTransactions implements Store.
func (s *MemoryStore) ListTransactions(ctx context.Context, offset, limit int) ([]viewer.Transaction, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid offset %d or limit %d", offset, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.transactions) {
		return []viewer.Transaction{}, nil
	}
	end := min(offset+limit, len(s.transactions))
	return slices.Clone(s.transactions[offset:end]), nil
}

// ListTransactionsByEmployee implements Store.
func (s *MemoryStore) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]viewer.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txns := make([]viewer.Transaction, 0)
	for _, t := range s.transactions {
		if t.Employee.ID == employeeID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

// SetTransactionApproval implements Store.
func (s *MemoryStore) SetTransactionApproval(ctx context.Context, transactionID string, value bool) (viewer.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[transactionID]
	if !ok {
		return viewer.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	s.transactions[i].Approved = value
	return s.transactions[i], nil
}
