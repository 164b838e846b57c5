package viewer

// EventType names a state change published by the Controller.
type EventType string

const (
	EventReset    EventType = "reset"    // visible list cleared by a filter change
	EventLoading  EventType = "loading"  // a loading flag changed
	EventMerged   EventType = "merged"   // a batch was appended
	EventApproval EventType = "approval" // an override changed the visible list
	EventStale    EventType = "stale"    // a fetch result was discarded
	EventError    EventType = "error"    // a fetch or mutation failed
)

// Event is delivered to observers after every state change.
type Event struct {
	Type  EventType
	State State
	Err   error
}

// Observer receives controller events. Observers run synchronously on the
// goroutine that caused the change, after the controller lock is released.
type Observer func(Event)

// State is an immutable snapshot of everything a presentation layer renders.
type State struct {
	Mode   Mode
	Filter Employee

	// Employees is nil until the roster has been loaded.
	Employees    []Employee
	Transactions []Transaction

	// IsLoading spans the roster fetch and disables the employee selector.
	IsLoading        bool
	PaginatedLoading bool
	EmployeeLoading  bool

	CanLoadMore  bool
	ShowLoadMore bool
}

// Recorder receives synchronization measurements. metrics.Metrics implements it.
type Recorder interface {
	RecordFetch(source, status string, durationSeconds float64)
	RecordMerge(source string, appended, duplicates int)
	RecordStaleDiscard(source string)
	SetOverlaySize(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, string, float64) {}
func (nopRecorder) RecordMerge(string, int, int)        {}
func (nopRecorder) RecordStaleDiscard(string)           {}
func (nopRecorder) SetOverlaySize(int)                  {}
