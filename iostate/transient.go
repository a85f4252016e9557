package iostate

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/history"
)

// TransientCache is component C6. Same (address, key) -> value shape as
// the storage cache, but: no oracle backing (default value is zero
// rather than a witnessed value), cleared entirely at transaction
// boundaries regardless of frame nesting, and writes contribute zero
// pubdata (spec §4.5).
type TransientCache struct {
	slots   map[WarmStorageKey]common.Hash
	history *history.List[transientRollbackEntry, struct{}]
}

type transientRollbackEntry struct {
	Key           WarmStorageKey
	PreviousValue common.Hash
	existedBefore bool
}

// NewTransientCache constructs an empty TransientCache.
func NewTransientCache() *TransientCache {
	return &TransientCache{
		slots:   make(map[WarmStorageKey]common.Hash),
		history: history.New[transientRollbackEntry, struct{}](),
	}
}

// Snapshot returns the current history length.
func (c *TransientCache) Snapshot() history.Snapshot { return c.history.Snapshot() }

// Read returns the value at (addr, key), defaulting to the zero hash if
// never written. Transient reads never mutate cache state, so — per
// spec §9 Open Questions — there is no rollback entry to produce and no
// "rollback_read" path exists in this implementation at all; reads are
// simply not represented in history.
func (c *TransientCache) Read(addr common.Address, key common.Hash) common.Hash {
	return c.slots[WarmStorageKey{Address: addr, Key: key}]
}

// Write sets the value at (addr, key), recording enough to undo it.
func (c *TransientCache) Write(addr common.Address, key common.Hash, value common.Hash) {
	k := WarmStorageKey{Address: addr, Key: key}
	prev, existed := c.slots[k]
	c.history.Push(transientRollbackEntry{Key: k, PreviousValue: prev, existedBefore: existed}, struct{}{})
	c.slots[k] = value
}

// Rollback truncates the history to snap, restoring each written slot to
// its previous value (or removing it if it didn't exist before).
func (c *TransientCache) Rollback(snap history.Snapshot) {
	for c.history.Len() > int(snap) {
		idx := c.history.Len() - 1
		entry, _ := c.history.At(idx)
		c.history.Rollback(history.Snapshot(idx))

		if entry.existedBefore {
			c.slots[entry.Key] = entry.PreviousValue
		} else {
			delete(c.slots, entry.Key)
		}
	}
}

// BeginNewTx clears all transient state unconditionally, per spec §4.5 —
// unlike the storage cache, this is a full reset and does not participate
// in the snapshot/rollback discipline at all.
func (c *TransientCache) BeginNewTx() {
	c.slots = make(map[WarmStorageKey]common.Hash)
	c.history = history.New[transientRollbackEntry, struct{}]()
}
