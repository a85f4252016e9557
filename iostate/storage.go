package iostate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/execore/bootloader/history"
	"github.com/execore/bootloader/oracle"
)

// WarmStorageKey identifies a storage slot by (address, key), per spec §3.
type WarmStorageKey struct {
	Address common.Address
	Key     common.Hash
}

// WarmStorageValue is the per-slot state tracked by the storage cache,
// exactly the attribute list from spec §3's "Warm storage slot":
// initial_value, current_value, value_at_start_of_tx,
// changes_stack_depth, last_accessed_at_tx_number?, pubdata_diff_bytes,
// initial_value_used, is_new_storage_slot.
type WarmStorageValue struct {
	InitialValue          common.Hash
	CurrentValue          common.Hash
	ValueAtStartOfTx       common.Hash
	ChangesStackDepth      uint32
	LastAccessedAtTxNumber *uint64
	PubdataDiffBytes       uint64
	InitialValueUsed       bool
	IsNewStorageSlot       bool
}

// RollbackKind distinguishes a storage-cache history entry produced by a
// read from one produced by a write, per spec §4.4.
type RollbackKind uint8

const (
	RollbackRead RollbackKind = iota
	RollbackWrite
)

// storageRollbackEntry is the "GenericPlainStorageRollbackData" of spec
// §4.4: a history-list entry recording enough to undo either a Read's
// warming or a Write's mutation.
type storageRollbackEntry struct {
	Key  WarmStorageKey
	Kind RollbackKind

	// Populated only for RollbackWrite entries.
	PreviousValue            common.Hash
	PreviousUsedTxNumber     *uint64
	PreviousPubdataDiffBytes uint64
}

// StorageCache is component C5: the warm-slot map keyed by
// (address, storage-key), merging initial witness values with in-block
// writes and computing the pubdata diff for each mutated slot.
type StorageCache struct {
	slots    map[WarmStorageKey]*Record[WarmStorageValue]
	history  *history.List[storageRollbackEntry, struct{}]
	oracle   oracle.Oracle
	txNumber uint64

	// warmAddresses tracks every address with at least one slot touched
	// in the block, an EIP-2929-style access-list view exposed through
	// WarmAddresses. An address stays in the set after a rollback makes
	// its slots cold again.
	warmAddresses mapset.Set[common.Address]
}

// NewStorageCache constructs an empty StorageCache backed by the given oracle.
func NewStorageCache(o oracle.Oracle) *StorageCache {
	return &StorageCache{
		slots:         make(map[WarmStorageKey]*Record[WarmStorageValue]),
		history:       history.New[storageRollbackEntry, struct{}](),
		oracle:        o,
		warmAddresses: mapset.NewSet[common.Address](),
	}
}

// WarmAddresses returns the set of addresses with at least one slot
// touched so far in the block.
func (c *StorageCache) WarmAddresses() mapset.Set[common.Address] {
	return c.warmAddresses.Clone()
}

// Snapshot returns the current history length (spec §4.7's frame snapshot
// component for C5).
func (c *StorageCache) Snapshot() history.Snapshot { return c.history.Snapshot() }

// coldRead implements spec §4.4's cold-read protocol: query
// InitialStorageSlot, seed the record, mark Retrieved, push a Read
// rollback entry. Returns the now-warm record.
func (c *StorageCache) coldRead(k WarmStorageKey) (*Record[WarmStorageValue], error) {
	resp, err := c.oracle.InitialStorageSlot(k.Address, k.Key)
	if err != nil {
		return nil, fmt.Errorf("iostate: cold read %v: %w", k, err)
	}
	rec := &Record[WarmStorageValue]{
		Value: WarmStorageValue{
			InitialValue:     resp.Value,
			CurrentValue:     resp.Value,
			ValueAtStartOfTx: resp.Value,
			InitialValueUsed: true,
			IsNewStorageSlot: resp.IsNewSlot,
		},
	}
	rec.MarkRetrieved()
	c.slots[k] = rec
	c.warmAddresses.Add(k.Address)
	c.history.Push(storageRollbackEntry{Key: k, Kind: RollbackRead}, struct{}{})
	return rec, nil
}

// Read returns the current value at (addr, key), warming the slot via the
// oracle on a cold miss. The second return reports whether this read was
// cold (useful for the IO façade's gas accounting).
func (c *StorageCache) Read(addr common.Address, key common.Hash) (common.Hash, bool, error) {
	k := WarmStorageKey{Address: addr, Key: key}
	rec, ok := c.slots[k]
	if ok {
		return rec.Value.CurrentValue, false, nil
	}
	rec, err := c.coldRead(k)
	if err != nil {
		return common.Hash{}, false, err
	}
	return rec.Value.CurrentValue, true, nil
}

// Write sets the current value at (addr, key), warming the slot first if
// necessary (the caller is charged for that warming by the IO façade).
// It returns whether the underlying read was cold and the slot's new
// pubdata diff byte count.
func (c *StorageCache) Write(addr common.Address, key common.Hash, value common.Hash) (cold bool, pubdataDiffBytes uint64, err error) {
	k := WarmStorageKey{Address: addr, Key: key}
	rec, ok := c.slots[k]
	if !ok {
		rec, err = c.coldRead(k)
		if err != nil {
			return false, 0, err
		}
		cold = true
	}

	c.history.Push(storageRollbackEntry{
		Key:                      k,
		Kind:                     RollbackWrite,
		PreviousValue:            rec.Value.CurrentValue,
		PreviousUsedTxNumber:     rec.Value.LastAccessedAtTxNumber,
		PreviousPubdataDiffBytes: rec.Value.PubdataDiffBytes,
	}, struct{}{})

	rec.Value.CurrentValue = value
	rec.Value.ChangesStackDepth++
	rec.MarkUpdated()
	rec.Value.PubdataDiffBytes = pubdataDiffBytesFor(rec.Value)
	txn := c.txNumber
	rec.Value.LastAccessedAtTxNumber = &txn

	return cold, rec.Value.PubdataDiffBytes, nil
}

// pubdataDiffBytesFor computes spec §4.4's pubdata metric: the minimal
// big-endian byte-length of current_value XOR initial_value, with the
// fresh-slot special case (a fixed cost) when the oracle reported this
// slot as newly created AND the write actually sets it to a nonzero
// value — a fresh slot written back to its implicit zero costs nothing,
// since nothing new needs to be published.
func pubdataDiffBytesFor(v WarmStorageValue) uint64 {
	if v.IsNewStorageSlot && v.CurrentValue != (common.Hash{}) {
		return freshSlotPubdataBytes
	}
	var diff common.Hash
	for i := range diff {
		diff[i] = v.CurrentValue[i] ^ v.InitialValue[i]
	}
	return minimalBigEndianLength(diff)
}

// freshSlotPubdataBytes is the fixed cost model for a brand-new slot,
// distinct from the XOR-diff cost of mutating an already-witnessed slot.
const freshSlotPubdataBytes = 32

func minimalBigEndianLength(h common.Hash) uint64 {
	for i := 0; i < len(h); i++ {
		if h[i] != 0 {
			return uint64(len(h) - i)
		}
	}
	return 0
}

// BeginNewTx implements spec §4.4's transaction-boundary update: for
// every warm slot, value_at_start_of_tx <- current_value, and advances
// the tx-number counter used to stamp LastAccessedAtTxNumber.
func (c *StorageCache) BeginNewTx() {
	c.txNumber++
	for _, rec := range c.slots {
		rec.Value.ValueAtStartOfTx = rec.Value.CurrentValue
	}
}

// Rollback truncates the history to snap, undoing every Read/Write
// pushed since, per spec §4.4's rollback rule:
//   - Read: appearance resets to Unset iff this was the slot's first
//     touch (no earlier entry for the same key remains in history).
//   - Write: restores current_value, used_tx_number, pubdata_diff_bytes,
//     and decrements changes_stack_depth.
func (c *StorageCache) Rollback(snap history.Snapshot) {
	for c.history.Len() > int(snap) {
		idx := c.history.Len() - 1
		entry, _ := c.history.At(idx)
		c.history.Rollback(history.Snapshot(idx))

		rec, ok := c.slots[entry.Key]
		if !ok {
			continue
		}
		switch entry.Kind {
		case RollbackWrite:
			rec.Value.CurrentValue = entry.PreviousValue
			rec.Value.LastAccessedAtTxNumber = entry.PreviousUsedTxNumber
			rec.Value.PubdataDiffBytes = entry.PreviousPubdataDiffBytes
			if rec.Value.ChangesStackDepth > 0 {
				rec.Value.ChangesStackDepth--
			}
		case RollbackRead:
			if !c.hasEarlierEntryFor(entry.Key) {
				rec.Appearance = Unset
				delete(c.slots, entry.Key)
			}
		}
	}
}

// hasEarlierEntryFor reports whether any entry for key remains in the
// (already truncated) history — used to detect "this was the first
// touch" when unwinding a Read.
func (c *StorageCache) hasEarlierEntryFor(key WarmStorageKey) bool {
	found := false
	c.history.All(func(v storageRollbackEntry, _ struct{}) {
		if v.Key == key {
			found = true
		}
	})
	return found
}

// Diffs streams (address, key, current_value) for every slot whose
// current value differs from its initial value, per spec §4.4's block-seal
// iteration, in arbitrary map order (the result keeper is responsible for
// any caller-visible ordering requirements, e.g. deterministic replay).
func (c *StorageCache) Diffs(f func(addr common.Address, key common.Hash, value common.Hash)) {
	for k, rec := range c.slots {
		if rec.Value.CurrentValue != rec.Value.InitialValue {
			f(k.Address, k.Key, rec.Value.CurrentValue)
		}
	}
}

// Get returns the raw cached value for a slot, if warm. Exposed for
// diagnostics and tests; execution should go through Read/Write.
func (c *StorageCache) Get(addr common.Address, key common.Hash) (WarmStorageValue, bool) {
	rec, ok := c.slots[WarmStorageKey{Address: addr, Key: key}]
	if !ok {
		return WarmStorageValue{}, false
	}
	return rec.Value, true
}
