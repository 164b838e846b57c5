package viewer

import (
	"maps"
	"sync"
)

// Overrides is a point-in-time copy of the overlay, keyed by transaction id.
type Overrides map[string]bool

// Apply returns t with its approval flag replaced by the override, if any.
func (o Overrides) Apply(t Transaction) Transaction {
	if v, ok := o[t.ID]; ok {
		t.Approved = v
	}
	return t
}

// Overlay records approval flags the user toggled locally. Entries outlive
// fetches: whenever a transaction is fetched again its override is re-applied.
//
// With a retention of zero the overlay is session-scoped and never evicts.
// With a positive retention N, an entry is evicted once its id has been absent
// from the last N observed batches and is no longer listed.
type Overlay struct {
	mu        sync.RWMutex
	values    map[string]bool
	revisions map[string]uint64
	lastSeen  map[string]uint64
	revision  uint64
	batches   uint64
	retention uint64
}

// NewOverlay creates an empty overlay. retention <= 0 disables eviction.
func NewOverlay(retention int) *Overlay {
	o := &Overlay{
		values:    make(map[string]bool),
		revisions: make(map[string]uint64),
		lastSeen:  make(map[string]uint64),
	}
	if retention > 0 {
		o.retention = uint64(retention)
	}
	return o
}

// Set records or overwrites the override for transactionID and returns the
// revision of the new entry.
func (o *Overlay) Set(transactionID string, value bool) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.setLocked(transactionID, value)
}

func (o *Overlay) setLocked(transactionID string, value bool) uint64 {
	o.revision++
	o.values[transactionID] = value
	o.revisions[transactionID] = o.revision
	o.lastSeen[transactionID] = o.batches
	return o.revision
}

// Get returns the override for transactionID and whether one exists.
func (o *Overlay) Get(transactionID string) (bool, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[transactionID]
	return v, ok
}

// Delete removes the override for transactionID.
func (o *Overlay) Delete(transactionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deleteLocked(transactionID)
}

func (o *Overlay) deleteLocked(transactionID string) {
	delete(o.values, transactionID)
	delete(o.revisions, transactionID)
	delete(o.lastSeen, transactionID)
}

// Revert undoes the Set that produced revision: the entry goes back to prev,
// or is removed when had is false. It does nothing and returns false when a
// later Set replaced the entry or the entry is gone.
func (o *Overlay) Revert(transactionID string, revision uint64, prev, had bool) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cur, ok := o.revisions[transactionID]; !ok || cur != revision {
		return false
	}
	if had {
		o.setLocked(transactionID, prev)
	} else {
		o.deleteLocked(transactionID)
	}
	return true
}

// Len returns the number of overrides held.
func (o *Overlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.values)
}

// Snapshot returns a copy of all overrides.
func (o *Overlay) Snapshot() Overrides {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return maps.Clone(o.values)
}

// Observe records that batch has been fetched and evicts the entries outside
// the retention window. Entries mentioned by batch, or for which listed
// reports true, count as seen. listed may be nil. It returns the number of
// evicted entries.
func (o *Overlay) Observe(batch []Transaction, listed func(id string) bool) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.batches++
	for _, t := range batch {
		if _, ok := o.values[t.ID]; ok {
			o.lastSeen[t.ID] = o.batches
		}
	}
	if listed != nil {
		for id := range o.values {
			if listed(id) {
				o.lastSeen[id] = o.batches
			}
		}
	}

	if o.retention == 0 {
		return 0
	}

	evicted := 0
	for id, seen := range o.lastSeen {
		if o.batches-seen >= o.retention {
			o.deleteLocked(id)
			evicted++
		}
	}
	return evicted
}
