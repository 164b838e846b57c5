package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Source labels used in logs and metrics.
const (
	SourcePaginated = "paginated"
	SourceEmployee  = "employee"
	SourceRoster    = "roster"
	SourceApproval  = "approval"
)

// ApprovalPolicy decides what happens to a local override when the backend
// rejects the approval mutation.
type ApprovalPolicy int

const (
	// ApprovalKeep leaves the override in place and only reports the error.
	ApprovalKeep ApprovalPolicy = iota
	// ApprovalRollback restores the override that existed before the call.
	ApprovalRollback
)

// Options configures a Controller. The zero value is usable.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder

	// OverlayRetention bounds the edit overlay; see NewOverlay.
	OverlayRetention int
	ApprovalPolicy   ApprovalPolicy
}

// Controller drives the visible transaction list. It picks the active data
// source from the employee filter, merges fetched batches with the edit
// overlay and publishes every state change to its observers.
//
// Methods block for the duration of their network calls and may be called
// from multiple goroutines. Every fetch is tagged with the generation that
// was current when it was issued; results that resolve after a filter change
// are discarded.
type Controller struct {
	backend    Backend
	roster     *EmployeeRoster
	paginated  *PaginatedSource
	byEmployee *EmployeeSource
	overlay    *Overlay
	logger     *slog.Logger
	recorder   Recorder
	policy     ApprovalPolicy

	mu           sync.Mutex
	visible      List
	filter       Employee
	rosterLoads  int
	generation   uint64
	observers    map[int]Observer
	nextObserver int
}

// NewController creates a controller in its initial state: no employees,
// all-transactions mode and an empty list.
func NewController(backend Backend, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Controller{
		backend:    backend,
		roster:     NewEmployeeRoster(backend),
		paginated:  NewPaginatedSource(backend),
		byEmployee: NewEmployeeSource(backend),
		overlay:    NewOverlay(opts.OverlayRetention),
		logger:     logger,
		recorder:   recorder,
		policy:     opts.ApprovalPolicy,
		filter:     EmptyEmployee,
		observers:  make(map[int]Observer),
	}
}

// Subscribe registers fn for state-change events and returns a function that
// removes it.
func (c *Controller) Subscribe(fn Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// CanLoadMore reports whether LoadMore would issue a request.
func (c *Controller) CanLoadMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canLoadMoreLocked()
}

// EmployeeOptions returns the selector entries: the no-filter sentinel followed
// by the roster, or nothing before the roster is loaded.
func (c *Controller) EmployeeOptions() []Employee {
	employees := c.roster.Data()
	if employees == nil {
		return []Employee{}
	}
	return append([]Employee{EmptyEmployee}, employees...)
}

// SelectEmployee switches the filter. The visible list and both sources are
// reset before the new mode loads, so pagination restarts from the first page.
// Pass EmptyEmployee to show all transactions.
func (c *Controller) SelectEmployee(ctx context.Context, employee Employee) error {
	c.mu.Lock()
	c.resetLocked(employee)
	state := c.stateLocked()
	c.mu.Unlock()

	c.logger.Debug("employee filter selected", "employee_id", employee.ID)
	c.notify(Event{Type: EventReset, State: state})

	if employee.IsEmpty() {
		return c.LoadAll(ctx)
	}
	return c.LoadForEmployee(ctx, employee.ID)
}

// LoadAll loads the roster if needed and appends the next page of all
// transactions. The by-employee source is invalidated first. If the filter
// changes while the roster loads, no page is requested.
func (c *Controller) LoadAll(ctx context.Context) error {
	c.mu.Lock()
	if !c.filter.IsEmpty() {
		c.resetLocked(EmptyEmployee)
	}
	c.byEmployee.InvalidateData()
	gen := c.generation
	epoch := c.paginated.res.currentEpoch()
	c.mu.Unlock()

	if !c.roster.Loaded() {
		if err := c.loadRoster(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	page, err := c.paginated.fetchIn(ctx, epoch)
	if err != nil {
		return c.fetchFailed(SourcePaginated, start, err)
	}
	c.recorder.RecordFetch(SourcePaginated, "success", time.Since(start).Seconds())

	return c.apply(gen, SourcePaginated, page.Data)
}

// LoadForEmployee replaces the visible data with every transaction of one
// employee. The paginated source is invalidated first.
func (c *Controller) LoadForEmployee(ctx context.Context, employeeID string) error {
	if employeeID == "" {
		return fmt.Errorf("load for employee: employee id cannot be empty: %w", ErrInvalidArgument)
	}

	c.mu.Lock()
	if c.filter.ID != employeeID {
		c.resetLocked(c.lookupEmployee(employeeID))
	}
	c.paginated.InvalidateData()
	gen := c.generation
	epoch := c.byEmployee.res.currentEpoch()
	c.mu.Unlock()

	start := time.Now()
	txns, err := c.byEmployee.fetchIn(ctx, employeeID, epoch)
	if err != nil {
		return c.fetchFailed(SourceEmployee, start, err)
	}
	c.recorder.RecordFetch(SourceEmployee, "success", time.Since(start).Seconds())

	return c.apply(gen, SourceEmployee, txns)
}

// LoadMore fetches the next batch for the current filter. It returns
// ErrLoadMoreUnavailable without a request when a fetch is in flight, the
// paginated source is exhausted, or the employee set is already complete.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if !c.canLoadMoreLocked() {
		c.mu.Unlock()
		return ErrLoadMoreUnavailable
	}
	filter := c.filter
	c.mu.Unlock()

	if filter.IsEmpty() {
		return c.LoadAll(ctx)
	}
	return c.LoadForEmployee(ctx, filter.ID)
}

// SetApproval records an approval override, applies it to the visible list and
// then sends it to the backend. A backend failure is returned; whether the
// override survives it depends on the ApprovalPolicy.
func (c *Controller) SetApproval(ctx context.Context, transactionID string, value bool) error {
	if transactionID == "" {
		return fmt.Errorf("set approval: transaction id cannot be empty: %w", ErrInvalidArgument)
	}

	c.mu.Lock()
	prev, had := c.overlay.Get(transactionID)
	revision := c.overlay.Set(transactionID, value)
	c.visible = Reapply(c.visible, c.overlay.Snapshot())
	state := c.stateLocked()
	c.mu.Unlock()

	c.recorder.SetOverlaySize(c.overlay.Len())
	c.notify(Event{Type: EventApproval, State: state})

	start := time.Now()
	err := c.backend.SetTransactionApproval(ctx, transactionID, value)
	if err == nil {
		c.recorder.RecordFetch(SourceApproval, "success", time.Since(start).Seconds())
		return nil
	}
	c.recorder.RecordFetch(SourceApproval, "error", time.Since(start).Seconds())
	err = fmt.Errorf("failed to set approval for transaction %s: %w", transactionID, err)

	if c.policy == ApprovalRollback {
		c.mu.Lock()
		// A later SetApproval for the same id wins over this rollback.
		if c.overlay.Revert(transactionID, revision, prev, had) {
			c.visible = Reapply(c.visible, c.overlay.Snapshot())
		}
		c.mu.Unlock()
		c.recorder.SetOverlaySize(c.overlay.Len())
		c.logger.Warn("approval rolled back", "transaction_id", transactionID, "error", err)
	}

	c.notify(Event{Type: EventError, State: c.State(), Err: err})
	return err
}

// loadRoster fetches the employee roster while IsLoading is set. IsLoading
// stays set until every overlapping call has returned.
func (c *Controller) loadRoster(ctx context.Context) error {
	c.trackRosterLoad(1)
	start := time.Now()
	_, err := c.roster.FetchAll(ctx)
	c.trackRosterLoad(-1)

	switch {
	case err == nil:
		c.recorder.RecordFetch(SourceRoster, "success", time.Since(start).Seconds())
		return nil
	case errors.Is(err, ErrFetchInFlight):
		// Another load is already fetching the roster.
		return nil
	default:
		return c.fetchFailed(SourceRoster, start, err)
	}
}

// fetchFailed records a failed or discarded fetch. Stale results are not an
// error for the caller.
func (c *Controller) fetchFailed(source string, start time.Time, err error) error {
	if errors.Is(err, ErrStale) {
		c.discardStale(source)
		return nil
	}

	status := "error"
	if errors.Is(err, ErrNoMorePages) || errors.Is(err, ErrFetchInFlight) {
		status = "skipped"
	}
	c.recorder.RecordFetch(source, status, time.Since(start).Seconds())
	c.logger.Debug("fetch failed", "source", source, "error", err)
	c.notify(Event{Type: EventError, State: c.State(), Err: err})
	return err
}

// apply merges batch into the visible list unless the generation moved on
// while the batch was in flight.
func (c *Controller) apply(gen uint64, source string, batch []Transaction) error {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.discardStale(source)
		return nil
	}
	next, res := Merge(c.visible, batch, c.overlay.Snapshot())
	c.visible = next
	evicted := c.overlay.Observe(batch, next.Contains)
	state := c.stateLocked()
	c.mu.Unlock()

	c.recorder.RecordMerge(source, res.Appended, res.Duplicates)
	c.recorder.SetOverlaySize(c.overlay.Len())
	c.logger.Debug("batch merged",
		"source", source,
		"appended", res.Appended,
		"duplicates", res.Duplicates,
		"overridden", res.Overridden,
		"evicted_overrides", evicted,
		"visible", next.Len(),
	)
	if res.Duplicates > 0 {
		c.logger.Warn("dropped duplicate transactions", "source", source, "count", res.Duplicates)
	}

	c.notify(Event{Type: EventMerged, State: state})
	return nil
}

func (c *Controller) discardStale(source string) {
	c.recorder.RecordStaleDiscard(source)
	c.logger.Info("discarded stale fetch result", "source", source)
	c.notify(Event{Type: EventStale, State: c.State()})
}

func (c *Controller) trackRosterLoad(delta int) {
	c.mu.Lock()
	c.rosterLoads += delta
	state := c.stateLocked()
	c.mu.Unlock()
	c.notify(Event{Type: EventLoading, State: state})
}

// resetLocked starts a new mode session for filter.
func (c *Controller) resetLocked(filter Employee) {
	c.generation++
	c.visible = List{}
	c.filter = filter
	c.paginated.InvalidateData()
	c.byEmployee.InvalidateData()
}

func (c *Controller) lookupEmployee(id string) Employee {
	for _, e := range c.roster.Data() {
		if e.ID == id {
			return e
		}
	}
	return Employee{ID: id}
}

func (c *Controller) canLoadMoreLocked() bool {
	if c.paginated.Loading() || c.byEmployee.Loading() {
		return false
	}
	if c.filter.IsEmpty() {
		return !c.paginated.Exhausted()
	}
	return c.byEmployee.Data() == nil
}

func (c *Controller) stateLocked() State {
	mode := ModeAllTransactions
	if !c.filter.IsEmpty() {
		mode = ModeByEmployee
	}
	items := c.visible.Items()
	if items == nil {
		items = []Transaction{}
	}
	return State{
		Mode:             mode,
		Filter:           c.filter,
		Employees:        c.roster.Data(),
		Transactions:     items,
		IsLoading:        c.rosterLoads > 0,
		PaginatedLoading: c.paginated.Loading(),
		EmployeeLoading:  c.byEmployee.Loading(),
		CanLoadMore:      c.canLoadMoreLocked(),
		ShowLoadMore:     len(items) > 0,
	}
}

func (c *Controller) notify(ev Event) {
	c.mu.Lock()
	observers := make([]Observer, 0, len(c.observers))
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		observers = append(observers, c.observers[id])
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
