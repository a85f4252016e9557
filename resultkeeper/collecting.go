package resultkeeper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/txtypes"
)

// LogEntry is a single emitted event/log, keyed for forward-mode receipt
// construction the way the teacher's miner/worker.go accumulates
// *types.Log across a block's transactions.
type LogEntry struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Collecting is the forward-mode Keeper of spec §4.11: it accumulates
// everything in memory for the caller (e.g. a forward-mode RPC server or
// block builder) to read back after the block seals, mirroring
// miner/worker.go's environment{receipts, logs, tcount} accumulation.
type Collecting struct {
	Results  []TxEntry
	Logs     []LogEntry
	Diffs    []StorageDiff
	Preimages    []iostate.NewPreimage
	PubdataBytes uint64
	Header       BlockHeader
}

// TxEntry pairs a processed transaction with its result, in the order
// TxProcessed was called.
type TxEntry struct {
	Tx     *txtypes.Transaction
	Result TxResult
}

func NewCollecting() *Collecting {
	return &Collecting{}
}

func (c *Collecting) TxProcessed(tx *txtypes.Transaction, result TxResult) {
	c.Results = append(c.Results, TxEntry{Tx: tx, Result: result})
}

func (c *Collecting) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	c.Logs = append(c.Logs, LogEntry{Address: addr, Topics: topics, Data: data})
}

func (c *Collecting) StorageDiff(d StorageDiff) {
	c.Diffs = append(c.Diffs, d)
}

func (c *Collecting) NewPreimage(p iostate.NewPreimage) {
	c.Preimages = append(c.Preimages, p)
}

func (c *Collecting) Pubdata(bytes uint64) {
	c.PubdataBytes = bytes
}

func (c *Collecting) BlockSealed(header BlockHeader) {
	c.Header = header
}

var _ Keeper = (*Collecting)(nil)
