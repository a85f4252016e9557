// Package txtypes implements the transaction envelope and wire decoder
// (spec §3 "Transaction envelope", §4.8, §6). Four tx_type values are
// recognized: 0x00 legacy, 0x01 EIP-2930, 0x02 EIP-1559 (all three
// Ethereum RLP, delegated to go-ethereum's own codec), and 0x71 the
// "EIP-712-like" account-abstraction type carrying paymaster input and
// factory deps, which uses a narrow ABI-tuple-shaped encoding specific to
// this one struct (not the general-purpose Solidity ABI codec, which is
// out of this core's scope per spec §1).
package txtypes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Type is the wire discriminator byte, spec §6.
type Type uint8

const (
	LegacyType       Type = 0x00
	AccessListType   Type = 0x01
	DynamicFeeType   Type = 0x02
	AccountAbstractionType Type = 0x71
)

func (t Type) String() string {
	switch t {
	case LegacyType:
		return "Legacy"
	case AccessListType:
		return "EIP-2930"
	case DynamicFeeType:
		return "EIP-1559"
	case AccountAbstractionType:
		return "AA"
	default:
		return "Unknown"
	}
}

// Transaction is the in-memory, versioned envelope of spec §3. It holds
// every field listed there; fields not meaningful to a given tx_type are
// left at their zero value. The Raw bytes are retained to support the
// round-trip property of spec §8 without needing the encoder to be a
// perfect byte-for-byte reimplementation of every legacy RLP edge case —
// re-encoding legacy/2930/1559 types returns these captured bytes
// unchanged.
type Transaction struct {
	Type Type

	From                 common.Address
	To                   *common.Address
	GasLimit             uint64
	GasPerPubdata        *uint256.Int
	MaxFeePerGas         *uint256.Int
	MaxPriorityFeePerGas *uint256.Int
	Paymaster            *common.Address
	Nonce                uint64
	Value                *uint256.Int
	Calldata             []byte
	Signature            []byte
	Reserved             [4]*uint256.Int
	FactoryDeps          []common.Hash
	PaymasterInput       []byte
	ReservedDynamic      []byte

	ChainID uint64

	raw        []byte
	hash       common.Hash
	signedHash common.Hash
}

// Raw returns the exact bytes this transaction was decoded from.
func (tx *Transaction) Raw() []byte { return tx.raw }

// Hash returns tx_hash, the identifier used for receipts/logs (spec §3).
func (tx *Transaction) Hash() common.Hash { return tx.hash }

// SignedHash returns the digest the sender's signature commits to
// (spec §4.8's "recover sender" step hashes this, not Hash()).
func (tx *Transaction) SignedHash() common.Hash { return tx.signedHash }

// IsAA reports whether this is the 0x71 account-abstraction type.
func (tx *Transaction) IsAA() bool { return tx.Type == AccountAbstractionType }

// RequiresPaymaster reports whether fee payment is deferred to a paymaster.
func (tx *Transaction) RequiresPaymaster() bool {
	return tx.Paymaster != nil && *tx.Paymaster != (common.Address{})
}
