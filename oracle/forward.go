package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/semaphore"
)

// StorageReader is the real persistence layer's read surface in forward
// mode (spec §1: "the host persistence layer in forward mode" is an
// external collaborator). Narrow on purpose, mirroring handlers.BlockProvider
// / SnapshotProvider in the teacher's sync/handlers package.
type StorageReader interface {
	ReadStorageSlot(addr common.Address, key common.Hash) (value common.Hash, isNewSlot bool, err error)
	ReadPreimage(hash common.Hash) ([]byte, bool, error)
	ReadBlockHash(blockNumber uint64) (common.Hash, error)
	ReadAccountProperties(addr common.Address) (AccountProperties, error)
	ReadMerkleProof(treeIndex uint64) (MerkleProof, error)
}

// TxSource supplies the next transaction in forward mode — e.g. a mempool
// or a replayed block's transaction list — in place of the proving
// witness tape's NextTx entries.
type TxSource interface {
	NextTx() (NextTxResponse, error)
}

// maxInFlightReads bounds concurrent prefetch requests issued to the real
// storage backend before results are hashed into the (logically
// single-threaded) core — grounded on peer/network.go's
// semaphore.Weighted-gated activeAppRequests.
const maxInFlightReads = 32

// ForwardOracle adapts a live StorageReader + TxSource to the Oracle
// interface for native (non-proving) execution. A bounded LRU fronts cold
// reads so repeated InitialStorageSlot queries for hot slots within a
// block don't re-hit the backing store — the storage cache above it
// still applies the canonical warm/cold semantics of spec §4.4; this LRU
// is purely a forward-mode performance optimization and has no bearing
// on the oracle's correctness contract.
type ForwardOracle struct {
	store StorageReader
	txs   TxSource
	cache *lru.Cache // key: storageSlotKey -> InitialStorageSlotResponse
	sem   *semaphore.Weighted
}

type storageSlotKey struct {
	addr common.Address
	key  common.Hash
}

// NewForwardOracle constructs a ForwardOracle with an LRU of the given size.
func NewForwardOracle(store StorageReader, txs TxSource, cacheSize int) (*ForwardOracle, error) {
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("oracle: building forward-mode LRU: %w", err)
	}
	return &ForwardOracle{
		store: store,
		txs:   txs,
		cache: c,
		sem:   semaphore.NewWeighted(maxInFlightReads),
	}, nil
}

func (f *ForwardOracle) NextTx() (NextTxResponse, error) {
	return f.txs.NextTx()
}

func (f *ForwardOracle) InitialStorageSlot(addr common.Address, key common.Hash) (InitialStorageSlotResponse, error) {
	ctx := context.Background()
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return InitialStorageSlotResponse{}, fmt.Errorf("oracle: acquiring read slot: %w", err)
	}
	defer f.sem.Release(1)

	k := storageSlotKey{addr: addr, key: key}
	if v, ok := f.cache.Get(k); ok {
		return v.(InitialStorageSlotResponse), nil
	}
	value, isNewSlot, err := f.store.ReadStorageSlot(addr, key)
	if err != nil {
		return InitialStorageSlotResponse{}, fmt.Errorf("oracle: reading storage slot: %w", err)
	}
	resp := InitialStorageSlotResponse{Value: value, IsNewSlot: isNewSlot, IsNewValueProvable: true}
	f.cache.Add(k, resp)
	return resp, nil
}

func (f *ForwardOracle) PreimageFor(hash common.Hash) ([]byte, bool, error) {
	b, ok, err := f.store.ReadPreimage(hash)
	if err != nil {
		return nil, false, fmt.Errorf("oracle: reading preimage: %w", err)
	}
	return b, ok, nil
}

func (f *ForwardOracle) BlockHash(blockNumber uint64) (common.Hash, error) {
	h, err := f.store.ReadBlockHash(blockNumber)
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: reading block hash: %w", err)
	}
	return h, nil
}

func (f *ForwardOracle) MerkleProof(treeIndex uint64) (MerkleProof, error) {
	mp, err := f.store.ReadMerkleProof(treeIndex)
	if err != nil {
		return MerkleProof{}, fmt.Errorf("oracle: reading merkle proof: %w", err)
	}
	return mp, nil
}

func (f *ForwardOracle) AccountProperties(addr common.Address) (AccountProperties, error) {
	props, err := f.store.ReadAccountProperties(addr)
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: reading account properties: %w", err)
	}
	return props, nil
}

// HashToPrime has no forward-mode backing store surface defined by spec
// §6; forward mode never needs it since it isn't producing a proof.
func (f *ForwardOracle) HashToPrime(entropyRegion []byte) (HashToPrimeResponse, error) {
	return HashToPrimeResponse{}, nil
}
