package viewer

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// fakeBackend serves canned pages and employee sets and records every call.
type fakeBackend struct {
	mu sync.Mutex

	employees  []Employee
	pages      map[string]*Page // keyed by cursor, "" for the first page
	byEmployee map[string][]Transaction

	employeesErr error
	pageErr      error
	employeeErr  error
	approvalErr  error

	// gate, when set, blocks page and employee requests until it is closed or
	// receives a value. started is signalled when a gated request begins.
	gate    chan struct{}
	started chan struct{}

	// rosterGate and approvalGate work the same way for employee roster and
	// approval requests. approvalGate holds only the next approval request.
	rosterGate      chan struct{}
	rosterStarted   chan struct{}
	approvalGate    chan struct{}
	approvalStarted chan struct{}

	// approvalErrs, when non-empty, are returned by successive approval
	// requests before falling back to approvalErr.
	approvalErrs []error

	cursors     []*string
	employeeIDs []string
	approvals   []approvalCall
	rosterCalls int
}

type approvalCall struct {
	id    string
	value bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages:      make(map[string]*Page),
		byEmployee: make(map[string][]Transaction),
	}
}

func (f *fakeBackend) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, started := f.gate, f.started
	f.mu.Unlock()
	return waitOn(ctx, gate, started)
}

func waitOn(ctx context.Context, gate, started chan struct{}) error {
	if gate == nil {
		return nil
	}
	if started != nil {
		started <- struct{}{}
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) ListEmployees(ctx context.Context) ([]Employee, error) {
	f.mu.Lock()
	f.rosterCalls++
	gate, started := f.rosterGate, f.rosterStarted
	f.mu.Unlock()

	if err := waitOn(ctx, gate, started); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.employeesErr != nil {
		return nil, f.employeesErr
	}
	return append([]Employee(nil), f.employees...), nil
}

func (f *fakeBackend) ListTransactions(ctx context.Context, cursor *string) (*Page, error) {
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	key := ""
	if cursor != nil {
		key = *cursor
	}
	page, ok := f.pages[key]
	if !ok {
		return nil, fmt.Errorf("unknown cursor %q", key)
	}
	return copyPage(page), nil
}

func (f *fakeBackend) ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]Transaction, error) {
	f.mu.Lock()
	f.employeeIDs = append(f.employeeIDs, employeeID)
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.employeeErr != nil {
		return nil, f.employeeErr
	}
	return append([]Transaction(nil), f.byEmployee[employeeID]...), nil
}

func (f *fakeBackend) SetTransactionApproval(ctx context.Context, transactionID string, value bool) error {
	f.mu.Lock()
	f.approvals = append(f.approvals, approvalCall{id: transactionID, value: value})
	err := f.approvalErr
	if len(f.approvalErrs) > 0 {
		err = f.approvalErrs[0]
		f.approvalErrs = f.approvalErrs[1:]
	}
	gate, started := f.approvalGate, f.approvalStarted
	f.approvalGate, f.approvalStarted = nil, nil
	f.mu.Unlock()

	if waitErr := waitOn(ctx, gate, started); waitErr != nil {
		return waitErr
	}
	return err
}

func (f *fakeBackend) pageRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cursors)
}

func (f *fakeBackend) employeeRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.employeeIDs)
}

func (f *fakeBackend) setGate(gate, started chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
	f.started = started
}

func txn(id string, approved bool) Transaction {
	return Transaction{
		ID:       id,
		Amount:   decimal.RequireFromString("12.50"),
		Merchant: "Acme",
		Date:     "2021-03-01",
		Approved: approved,
	}
}

func empTxn(id, employeeID string, approved bool) Transaction {
	t := txn(id, approved)
	t.Employee = Employee{ID: employeeID, FirstName: "E", LastName: employeeID}
	return t
}

func cursor(s string) *string {
	return &s
}

func ids(txns []Transaction) []string {
	out := make([]string, len(txns))
	for i, t := range txns {
		out[i] = t.ID
	}
	return out
}

// scenarioBackend returns the two-page dataset used across controller tests:
// page 1 [t1 (false), t2 (true)] -> "p2", page 2 [t3 (false)] -> end,
// and employee e5 owning [t2, t9].
func scenarioBackend() *fakeBackend {
	f := newFakeBackend()
	f.employees = []Employee{
		{ID: "e1", FirstName: "James", LastName: "Smith"},
		{ID: "e5", FirstName: "Mary", LastName: "Jones"},
	}
	f.pages[""] = &Page{Data: []Transaction{txn("t1", false), txn("t2", true)}, NextPage: cursor("p2")}
	f.pages["p2"] = &Page{Data: []Transaction{txn("t3", false)}}
	f.byEmployee["e5"] = []Transaction{empTxn("t2", "e5", true), empTxn("t9", "e5", false)}
	return f
}
