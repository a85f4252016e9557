package oracle

import (
	"github.com/ethereum/go-ethereum/common"
)

// TestOracle is a map-backed Oracle for unit tests across the module,
// mirroring the teacher's core/state/test_statedb.go convention of a
// small constructor that hands back a ready-to-use fake.
type TestOracle struct {
	Slots      map[[52]byte]InitialStorageSlotResponse
	Preimages  map[common.Hash][]byte
	BlockHashes map[uint64]common.Hash
	Accounts   map[common.Address]AccountProperties
	Txs        []NextTxResponse
	nextTx     int
}

// NewTestOracle constructs an empty TestOracle.
func NewTestOracle() *TestOracle {
	return &TestOracle{
		Slots:       make(map[[52]byte]InitialStorageSlotResponse),
		Preimages:   make(map[common.Hash][]byte),
		BlockHashes: make(map[uint64]common.Hash),
		Accounts:    make(map[common.Address]AccountProperties),
	}
}

func slotKey(addr common.Address, key common.Hash) [52]byte {
	var k [52]byte
	copy(k[:20], addr[:])
	copy(k[20:], key[:])
	return k
}

// SetSlot registers the witness value an InitialStorageSlot query should
// return for (addr, key).
func (o *TestOracle) SetSlot(addr common.Address, key common.Hash, value common.Hash, isNewSlot bool) {
	o.Slots[slotKey(addr, key)] = InitialStorageSlotResponse{Value: value, IsNewSlot: isNewSlot, IsNewValueProvable: true}
}

// SetPreimage registers bytes the oracle should return for hash.
func (o *TestOracle) SetPreimage(hash common.Hash, b []byte) {
	o.Preimages[hash] = b
}

// QueueTx appends a transaction to be returned by NextTx, in order.
func (o *TestOracle) QueueTx(txBytes []byte) {
	o.Txs = append(o.Txs, NextTxResponse{TxBytes: txBytes})
}

func (o *TestOracle) NextTx() (NextTxResponse, error) {
	if o.nextTx >= len(o.Txs) {
		return NextTxResponse{SealBatch: true}, nil
	}
	tx := o.Txs[o.nextTx]
	o.nextTx++
	return tx, nil
}

func (o *TestOracle) InitialStorageSlot(addr common.Address, key common.Hash) (InitialStorageSlotResponse, error) {
	if v, ok := o.Slots[slotKey(addr, key)]; ok {
		return v, nil
	}
	// Undeclared slots witness as an untouched, new slot with zero value,
	// matching the default state of a never-written storage key.
	return InitialStorageSlotResponse{IsNewSlot: true, IsNewValueProvable: true}, nil
}

func (o *TestOracle) PreimageFor(hash common.Hash) ([]byte, bool, error) {
	b, ok := o.Preimages[hash]
	return b, ok, nil
}

func (o *TestOracle) BlockHash(blockNumber uint64) (common.Hash, error) {
	return o.BlockHashes[blockNumber], nil
}

func (o *TestOracle) MerkleProof(treeIndex uint64) (MerkleProof, error) {
	return MerkleProof{}, nil
}

func (o *TestOracle) AccountProperties(addr common.Address) (AccountProperties, error) {
	return o.Accounts[addr], nil
}

func (o *TestOracle) HashToPrime(entropyRegion []byte) (HashToPrimeResponse, error) {
	return HashToPrimeResponse{}, nil
}
