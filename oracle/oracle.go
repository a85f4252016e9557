// Package oracle defines the typed, synchronous query/response protocol
// (spec §4.2, §6) by which the core obtains all non-deterministic inputs:
// the next transaction, storage witnesses, preimages, block hashes,
// Merkle proofs, account properties, and hash-to-prime certificates.
//
// The protocol is single-threaded and strictly request/response (spec §5):
// there are no unsolicited pushes, and for a fixed oracle state and query
// sequence, responses must be reproducible — this is the provability root.
package oracle

import (
	"github.com/ethereum/go-ethereum/common"
)

// QueryKind enumerates the recognized oracle query classes from spec §4.2.
type QueryKind uint8

const (
	QueryNextTx QueryKind = iota
	QueryInitialStorageSlot
	QueryPreimageFor
	QueryBlockHash
	QueryMerkleProof
	QueryAccountProperties
	QueryHashToPrime
)

func (k QueryKind) String() string {
	switch k {
	case QueryNextTx:
		return "NextTx"
	case QueryInitialStorageSlot:
		return "InitialStorageSlot"
	case QueryPreimageFor:
		return "PreimageFor"
	case QueryBlockHash:
		return "BlockHash"
	case QueryMerkleProof:
		return "MerkleProof"
	case QueryAccountProperties:
		return "AccountProperties"
	case QueryHashToPrime:
		return "HashToPrime"
	default:
		return "Unknown"
	}
}

// NextTxResponse is either a pending transaction's raw wire bytes, or a
// SealBatch signal telling the block driver (C13) to close the block.
type NextTxResponse struct {
	SealBatch bool
	TxBytes   []byte
}

// InitialStorageSlotResponse answers a cold storage read, per spec §4.4's
// cold-read protocol.
type InitialStorageSlotResponse struct {
	Value               common.Hash
	IsNewSlot           bool
	IsNewValueProvable  bool
}

// AccountProperties answers an AccountProperties query.
type AccountProperties struct {
	Nonce         uint64
	Balance       []byte // big-endian, matches the AA tx wire's u256 convention
	CodeHash      common.Hash
	CodeLen       uint64
	ArtifactsLen  uint64
}

// MerkleProof answers a MerkleProof query: a leaf value plus its sibling path.
type MerkleProof struct {
	Leaf      common.Hash
	Siblings  []common.Hash
}

// HashToPrimeResponse answers a HashToPrime query. Per spec §9 Open
// Questions, the certificate format is unspecified in-source; this core
// treats it as an opaque byte blob forwarded uninterpreted to the caller
// (see SPEC_FULL.md §9.1.3).
type HashToPrimeResponse struct {
	Found       bool
	Certificate []byte
}

// Oracle is the narrow capability interface the core consults for every
// non-deterministic input. It corresponds to spec §9's "IOOracle" /
// "PreimageSource" / "TxSource" / "ReadStorageTree" capabilities,
// collapsed into one façade per spec §9 ("re-express as a single record
// of opaque capability objects").
//
// Implementations: a deterministic witness-tape reader (proving mode) or
// a live-DB-backed adapter (forward mode). Both must honor the
// determinism contract for a fixed query sequence; forward mode is
// permitted to block on disk/network but the core treats every call as
// synchronous (spec §5).
type Oracle interface {
	NextTx() (NextTxResponse, error)
	InitialStorageSlot(addr common.Address, key common.Hash) (InitialStorageSlotResponse, error)
	PreimageFor(hash common.Hash) ([]byte, bool, error)
	BlockHash(blockNumber uint64) (common.Hash, error)
	MerkleProof(treeIndex uint64) (MerkleProof, error)
	AccountProperties(addr common.Address) (AccountProperties, error)
	HashToPrime(entropyRegion []byte) (HashToPrimeResponse, error)
}
