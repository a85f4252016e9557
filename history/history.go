// Package history implements the append-only history list described in
// spec §3/§4.3: O(1) snapshot, truncating rollback, and a counter
// specialization that collapses adjacent unsnapshotted updates.
package history

import "fmt"

// Snapshot is an opaque handle returned by List.Snapshot, redeemable only
// by List.Rollback on the same list, and only in LIFO order with any
// other outstanding snapshot.
type Snapshot int

// entry pairs a value with caller-supplied metadata, as required by spec
// §3 ("Append-only sequence of (value, metadata) pairs").
type entry[V any, M any] struct {
	value    V
	meta     M
	snapID   int // snapshot epoch active when this entry was pushed
}

// List is a generic append-only history log over value type V with
// metadata type M.
type List[V any, M any] struct {
	entries []entry[V, M]
	epoch   int // incremented by every Snapshot call
}

// New constructs an empty history list.
func New[V any, M any]() *List[V, M] {
	return &List[V, M]{}
}

// Snapshot returns the current length in O(1). The returned value must be
// rolled back in LIFO order relative to any other live snapshot.
func (l *List[V, M]) Snapshot() Snapshot {
	l.epoch++
	return Snapshot(len(l.entries))
}

// Rollback truncates the list to length n. It is fatal (panics) to roll
// back to a length greater than the current length — per spec §4.3, this
// is a programming error in the caller, not a recoverable condition. Only
// that upper bound is checked: a length that was never returned by
// Snapshot is accepted.
func (l *List[V, M]) Rollback(n Snapshot) {
	if int(n) > len(l.entries) {
		panic(fmt.Sprintf("history: rollback target %d exceeds current length %d", n, len(l.entries)))
	}
	l.entries = l.entries[:n]
}

// Len reports the current length (equivalent to what Snapshot would return).
func (l *List[V, M]) Len() int { return len(l.entries) }

// Push appends a new (value, metadata) pair.
func (l *List[V, M]) Push(v V, m M) {
	l.entries = append(l.entries, entry[V, M]{value: v, meta: m, snapID: l.epoch})
}

// Top returns the most recently pushed value and whether the list is
// non-empty.
func (l *List[V, M]) Top() (V, M, bool) {
	var zv V
	var zm M
	if len(l.entries) == 0 {
		return zv, zm, false
	}
	top := l.entries[len(l.entries)-1]
	return top.value, top.meta, true
}

// At returns the (value, metadata) pair at a given index, where index is
// in [0, Len()).
func (l *List[V, M]) At(i int) (V, M) {
	e := l.entries[i]
	return e.value, e.meta
}

// All returns every (value, metadata) pair currently retained, oldest
// first. Used by the storage cache (C5) during rollback to look for
// earlier entries of the same key.
func (l *List[V, M]) All(f func(v V, m M)) {
	for _, e := range l.entries {
		f(e.value, e.meta)
	}
}

// Counter specializes List for the single-slot-of-latest-value case
// described in spec §4.3: update(v) either overwrites the top entry (if
// no snapshot has occurred since it was pushed) or pushes a fresh entry,
// avoiding log bloat from same-frame repeated updates while still giving
// older frames a rollback target.
type Counter[V any, M any] struct {
	list *List[V, M]
}

// NewCounter constructs an empty Counter.
func NewCounter[V any, M any]() *Counter[V, M] {
	return &Counter[V, M]{list: New[V, M]()}
}

// Snapshot delegates to the underlying list.
func (c *Counter[V, M]) Snapshot() Snapshot { return c.list.Snapshot() }

// Rollback delegates to the underlying list.
func (c *Counter[V, M]) Rollback(n Snapshot) { c.list.Rollback(n) }

// Update overwrites the top entry in place if it was pushed in the
// current epoch (no snapshot taken since), otherwise pushes a new entry.
func (c *Counter[V, M]) Update(v V, m M) {
	if len(c.list.entries) > 0 {
		top := &c.list.entries[len(c.list.entries)-1]
		if top.snapID == c.list.epoch {
			top.value = v
			top.meta = m
			return
		}
	}
	c.list.Push(v, m)
}

// Top returns the current value, or the zero value and false if never set.
func (c *Counter[V, M]) Top() (V, M, bool) { return c.list.Top() }
