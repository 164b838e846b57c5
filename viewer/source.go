package viewer

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Backend is the request/response contract of the transaction API.
// client.Client implements it over HTTP.
type Backend interface {
	// ListEmployees returns every employee, in display order.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// ListTransactions returns the page identified by cursor. A nil cursor
	// requests the first page.
	ListTransactions(ctx context.Context, cursor *string) (*Page, error)

	// ListTransactionsByEmployee returns the complete, unpaginated set of
	// transactions for one employee.
	ListTransactionsByEmployee(ctx context.Context, employeeID string) ([]Transaction, error)

	// SetTransactionApproval persists an approval flag.
	SetTransactionApproval(ctx context.Context, transactionID string, value bool) error
}

// resource holds the cached result of one data source together with its
// loading flag. Every invalidation starts a new epoch; a fetch that resolves in
// an older epoch is discarded instead of stored.
type resource[T any] struct {
	mu      sync.Mutex
	data    T
	present bool
	loading bool
	epoch   uint64
}

// begin marks a fetch in epoch as in flight. It returns ErrStale when the
// resource has been invalidated since epoch was read. guard runs under the lock
// with the current data and may veto the fetch.
func (r *resource[T]) begin(epoch uint64, guard func(current T, present bool) error) (uint64, T, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if epoch != r.epoch {
		return 0, zero, false, ErrStale
	}
	if r.loading {
		return 0, zero, false, ErrFetchInFlight
	}
	if guard != nil {
		if err := guard(r.data, r.present); err != nil {
			return 0, zero, false, err
		}
	}
	r.loading = true
	return r.epoch, r.data, r.present, nil
}

// finish resolves a fetch started in epoch. The loading flag of the current
// epoch is always cleared, whether the fetch failed or not.
func (r *resource[T]) finish(epoch uint64, data T, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return ErrStale
	}
	r.loading = false
	if err != nil {
		return err
	}
	r.data = data
	r.present = true
	return nil
}

func (r *resource[T]) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	r.data = zero
	r.present = false
	r.loading = false
	r.epoch++
}

func (r *resource[T]) currentEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

func (r *resource[T]) snapshot() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data, r.present
}

func (r *resource[T]) isLoading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// PaginatedSource is the global transaction listing, fetched one page at a time.
type PaginatedSource struct {
	backend Backend
	res     resource[*Page]
}

// NewPaginatedSource creates a paginated source with no data.
func NewPaginatedSource(backend Backend) *PaginatedSource {
	return &PaginatedSource{backend: backend}
}

// FetchAll requests the page after the last stored one, or the first page when
// nothing is stored. The fetched page replaces the stored one.
func (s *PaginatedSource) FetchAll(ctx context.Context) (*Page, error) {
	return s.fetchIn(ctx, s.res.currentEpoch())
}

// fetchIn is FetchAll pinned to epoch: once the source has been invalidated
// after epoch, it returns ErrStale without a request.
func (s *PaginatedSource) fetchIn(ctx context.Context, epoch uint64) (*Page, error) {
	epoch, current, present, err := s.res.begin(epoch, func(current *Page, present bool) error {
		if present && current.Exhausted() {
			return ErrNoMorePages
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var cursor *string
	if present && current != nil {
		cursor = current.NextPage
	}

	page, err := s.backend.ListTransactions(ctx, cursor)
	if err == nil && page == nil {
		page = &Page{}
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch transactions page: %w", err)
	}
	if err := s.res.finish(epoch, page, err); err != nil {
		return nil, err
	}
	return copyPage(page), nil
}

// Data returns the last fetched page, or nil when nothing is stored.
func (s *PaginatedSource) Data() *Page {
	page, present := s.res.snapshot()
	if !present {
		return nil
	}
	return copyPage(page)
}

// Loading reports whether a page request is in flight.
func (s *PaginatedSource) Loading() bool {
	return s.res.isLoading()
}

// Exhausted reports whether the last fetched page had no successor.
func (s *PaginatedSource) Exhausted() bool {
	page, present := s.res.snapshot()
	return present && page.Exhausted()
}

// InvalidateData drops the stored page and cursor without making a request.
// The next FetchAll starts again from the first page.
func (s *PaginatedSource) InvalidateData() {
	s.res.invalidate()
}

// EmployeeSource is the unpaginated listing of one employee's transactions.
type EmployeeSource struct {
	backend Backend
	res     resource[employeeSet]
}

type employeeSet struct {
	employeeID   string
	transactions []Transaction
}

// NewEmployeeSource creates a by-employee source with no data.
func NewEmployeeSource(backend Backend) *EmployeeSource {
	return &EmployeeSource{backend: backend}
}

// FetchByID requests every transaction of employeeID and replaces the stored set.
func (s *EmployeeSource) FetchByID(ctx context.Context, employeeID string) ([]Transaction, error) {
	return s.fetchIn(ctx, employeeID, s.res.currentEpoch())
}

func (s *EmployeeSource) fetchIn(ctx context.Context, employeeID string, epoch uint64) ([]Transaction, error) {
	if employeeID == "" {
		return nil, fmt.Errorf("employee id cannot be empty: %w", ErrInvalidArgument)
	}

	epoch, _, _, err := s.res.begin(epoch, nil)
	if err != nil {
		return nil, err
	}

	txns, err := s.backend.ListTransactionsByEmployee(ctx, employeeID)
	if err == nil && txns == nil {
		txns = []Transaction{}
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch transactions for employee %s: %w", employeeID, err)
	}
	set := employeeSet{employeeID: employeeID, transactions: txns}
	if err := s.res.finish(epoch, set, err); err != nil {
		return nil, err
	}
	return slices.Clone(txns), nil
}

// Data returns the stored set, or nil when nothing is stored.
func (s *EmployeeSource) Data() []Transaction {
	set, present := s.res.snapshot()
	if !present {
		return nil
	}
	return slices.Clone(set.transactions)
}

// EmployeeID returns the employee whose transactions are stored, or "" when
// nothing is stored.
func (s *EmployeeSource) EmployeeID() string {
	set, _ := s.res.snapshot()
	return set.employeeID
}

// Loading reports whether a request is in flight.
func (s *EmployeeSource) Loading() bool {
	return s.res.isLoading()
}

// InvalidateData drops the stored set without making a request.
func (s *EmployeeSource) InvalidateData() {
	s.res.invalidate()
}

// EmployeeRoster is the list of employees offered by the selector.
type EmployeeRoster struct {
	backend Backend
	res     resource[[]Employee]
}

// NewEmployeeRoster creates an empty roster.
func NewEmployeeRoster(backend Backend) *EmployeeRoster {
	return &EmployeeRoster{backend: backend}
}

// FetchAll loads the roster.
func (r *EmployeeRoster) FetchAll(ctx context.Context) ([]Employee, error) {
	epoch, _, _, err := r.res.begin(r.res.currentEpoch(), nil)
	if err != nil {
		return nil, err
	}

	employees, err := r.backend.ListEmployees(ctx)
	if err == nil && employees == nil {
		employees = []Employee{}
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch employees: %w", err)
	}
	if err := r.res.finish(epoch, employees, err); err != nil {
		return nil, err
	}
	return slices.Clone(employees), nil
}

// Data returns the roster, or nil before it has been loaded.
func (r *EmployeeRoster) Data() []Employee {
	employees, present := r.res.snapshot()
	if !present {
		return nil
	}
	return slices.Clone(employees)
}

// Loaded reports whether the roster has been fetched.
func (r *EmployeeRoster) Loaded() bool {
	_, present := r.res.snapshot()
	return present
}

// Loading reports whether the roster request is in flight.
func (r *EmployeeRoster) Loading() bool {
	return r.res.isLoading()
}

func copyPage(p *Page) *Page {
	if p == nil {
		return nil
	}
	return &Page{Data: slices.Clone(p.Data), NextPage: p.NextPage}
}
