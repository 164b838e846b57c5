package viewer

import (
	"maps"
	"slices"
)

// List is the ordered sequence of transactions shown to the user. It is a
// value: merging returns a new List and never mutates the receiver.
type List struct {
	items   []Transaction
	fetched []bool // approval flags as fetched, before overrides
	index   map[string]int
}

// Len returns the number of transactions in the list.
func (l List) Len() int {
	return len(l.items)
}

// Items returns a copy of the transactions in display order.
func (l List) Items() []Transaction {
	return slices.Clone(l.items)
}

// Contains reports whether a transaction with id is in the list.
func (l List) Contains(id string) bool {
	_, ok := l.index[id]
	return ok
}

// Get returns the transaction with id.
func (l List) Get(id string) (Transaction, bool) {
	i, ok := l.index[id]
	if !ok {
		return Transaction{}, false
	}
	return l.items[i], true
}

// MergeResult describes what a merge did to the list.
type MergeResult struct {
	Appended   int
	Duplicates int
	Overridden int
}

// SelectBatch picks the incoming batch from whichever source holds data. The
// two sources are mutually exclusive, so at most one is non-nil; the paginated
// page wins if both are set. It returns nil when neither has data.
func SelectBatch(page *Page, byEmployee []Transaction) []Transaction {
	if page != nil {
		return page.Data
	}
	return byEmployee
}

// Merge appends batch to prev with overrides applied, preserving batch order.
// Transactions whose id is already listed are dropped and counted as
// duplicates. An empty batch returns prev unchanged.
func Merge(prev List, batch []Transaction, overrides Overrides) (List, MergeResult) {
	var res MergeResult
	if len(batch) == 0 {
		return prev, res
	}

	next := List{
		items:   slices.Grow(slices.Clone(prev.items), len(batch)),
		fetched: slices.Grow(slices.Clone(prev.fetched), len(batch)),
		index:   make(map[string]int, len(prev.items)+len(batch)),
	}
	maps.Copy(next.index, prev.index)

	for _, t := range batch {
		if _, ok := next.index[t.ID]; ok {
			res.Duplicates++
			continue
		}
		merged := overrides.Apply(t)
		if merged.Approved != t.Approved {
			res.Overridden++
		}
		next.index[t.ID] = len(next.items)
		next.items = append(next.items, merged)
		next.fetched = append(next.fetched, t.Approved)
		res.Appended++
	}

	if res.Appended == 0 {
		return prev, res
	}
	return next, res
}

// Reconcile selects the incoming batch from the two sources and merges it into
// prev. With no incoming data it is a no-op.
func Reconcile(prev List, page *Page, byEmployee []Transaction, overrides Overrides) (List, MergeResult) {
	return Merge(prev, SelectBatch(page, byEmployee), overrides)
}

// Reapply returns l with the current overrides applied to every listed
// transaction. Transactions without an override show their fetched flag again.
// Order and membership are unchanged.
func Reapply(l List, overrides Overrides) List {
	if len(l.items) == 0 {
		return l
	}
	next := List{
		items:   make([]Transaction, len(l.items)),
		fetched: l.fetched,
		index:   l.index,
	}
	for i, t := range l.items {
		t.Approved = l.fetched[i]
		next.items[i] = overrides.Apply(t)
	}
	return next
}
