// Package resultkeeper implements component C12, the sink of spec §4.11:
// one tx_processed per transaction, streamed events/logs/storage
// diffs/new preimages, and a per-block pubdata total plus block_sealed.
package resultkeeper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/execution"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/txtypes"
)

// Output is the successful result of a processed transaction.
type Output struct {
	TxHash     common.Hash
	Exit       execution.ExitCode
	ReturnData []byte
	GasUsed    uint64
}

// TxResult is Result<Output, InvalidTransaction> of spec §4.11: exactly
// one of Output/InvalidErr is set.
type TxResult struct {
	Output      *Output
	InvalidErr  error
}

// StorageDiff is a single (address, key) -> value mutation surviving to
// block end, per spec §4.4's Diffs iteration.
type StorageDiff struct {
	Address common.Address
	Key     common.Hash
	Value   common.Hash
}

// BlockHeader is the minimal sealed-block summary the driver computes at
// SealBatch; a forward-mode keeper may render it into a real block.
type BlockHeader struct {
	Number       uint64
	TxCount      int
	PubdataBytes uint64
}

// Keeper is the narrow capability interface (ResultKeeperExt of spec
// §9) the driver pushes results through, in the exact order spec §4.11
// names: per tx, TxProcessed then its events/logs/diffs/preimages; per
// block, Pubdata then BlockSealed.
type Keeper interface {
	TxProcessed(tx *txtypes.Transaction, result TxResult)
	EmitLog(addr common.Address, topics []common.Hash, data []byte)
	StorageDiff(d StorageDiff)
	NewPreimage(p iostate.NewPreimage)
	Pubdata(bytes uint64)
	BlockSealed(header BlockHeader)
}

// Nop is the proving-mode keeper: every call is a no-op, since in
// proving mode the only externally observable output is the proof
// itself, not a side channel of receipts (spec §4.11).
type Nop struct{}

func (Nop) TxProcessed(*txtypes.Transaction, TxResult)               {}
func (Nop) EmitLog(common.Address, []common.Hash, []byte)            {}
func (Nop) StorageDiff(StorageDiff)                                  {}
func (Nop) NewPreimage(iostate.NewPreimage)                          {}
func (Nop) Pubdata(uint64)                                           {}
func (Nop) BlockSealed(BlockHeader)                                  {}

var _ Keeper = Nop{}
