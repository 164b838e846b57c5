package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlay_SetOverwrites(t *testing.T) {
	o := NewOverlay(0)

	_, ok := o.Get("t1")
	assert.False(t, ok)

	o.Set("t1", true)
	o.Set("t1", false)
	v, ok := o.Get("t1")
	assert.True(t, ok)
	assert.False(t, v)
	assert.Equal(t, 1, o.Len())
}

func TestOverlay_SnapshotIsACopy(t *testing.T) {
	o := NewOverlay(0)
	o.Set("t1", true)

	snap := o.Snapshot()
	o.Set("t2", true)
	snap["t3"] = false

	assert.Len(t, snap, 2)
	assert.Equal(t, 2, o.Len())
	_, ok := o.Get("t3")
	assert.False(t, ok)
}

func TestOverlay_UnboundedNeverEvicts(t *testing.T) {
	o := NewOverlay(0)
	o.Set("t1", true)

	for i := 0; i < 100; i++ {
		assert.Zero(t, o.Observe([]Transaction{txn("other", false)}, nil))
	}
	_, ok := o.Get("t1")
	assert.True(t, ok)
}

func TestOverlay_RetentionEvictsUnseenEntries(t *testing.T) {
	o := NewOverlay(2)
	o.Set("seen", true)
	o.Set("gone", true)

	assert.Zero(t, o.Observe([]Transaction{txn("seen", false)}, nil))
	assert.Equal(t, 1, o.Observe([]Transaction{txn("seen", false)}, nil))

	_, ok := o.Get("seen")
	assert.True(t, ok)
	_, ok = o.Get("gone")
	assert.False(t, ok)
}

func TestOverlay_RetentionKeepsListedEntries(t *testing.T) {
	o := NewOverlay(1)
	o.Set("listed", true)
	o.Set("gone", true)

	listed := func(id string) bool { return id == "listed" }
	assert.Equal(t, 1, o.Observe([]Transaction{txn("other", false)}, listed))
	assert.Zero(t, o.Observe([]Transaction{txn("other", false)}, listed))

	_, ok := o.Get("listed")
	assert.True(t, ok)
	_, ok = o.Get("gone")
	assert.False(t, ok)

	// Once no longer listed, the entry ages out like any other.
	assert.Equal(t, 1, o.Observe([]Transaction{txn("other", false)}, nil))
	assert.Zero(t, o.Len())
}

func TestOverlay_RevertOnlyUndoesItsOwnRevision(t *testing.T) {
	o := NewOverlay(0)

	first := o.Set("t1", true)
	second := o.Set("t1", true)
	assert.False(t, o.Revert("t1", first, false, false), "a later Set wins")
	v, ok := o.Get("t1")
	assert.True(t, ok)
	assert.True(t, v)

	assert.True(t, o.Revert("t1", second, false, true))
	v, ok = o.Get("t1")
	assert.True(t, ok)
	assert.False(t, v)

	rev := o.Set("t2", true)
	assert.True(t, o.Revert("t2", rev, false, false))
	_, ok = o.Get("t2")
	assert.False(t, ok)
	assert.False(t, o.Revert("t2", rev, false, false))
}

func TestOverrides_Apply(t *testing.T) {
	overrides := Overrides{"t1": true}

	assert.True(t, overrides.Apply(txn("t1", false)).Approved)
	assert.False(t, overrides.Apply(txn("t2", false)).Approved)
	assert.True(t, overrides.Apply(txn("t2", true)).Approved)
}
