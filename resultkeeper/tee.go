package resultkeeper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/txtypes"
)

// Tee forwards every call to each of its members in order, so a forward-mode
// run can accumulate a Collecting summary for the final report while also
// feeding a Streaming keeper for the status RPC's websocket fan-out.
type Tee []Keeper

func (t Tee) TxProcessed(tx *txtypes.Transaction, result TxResult) {
	for _, k := range t {
		k.TxProcessed(tx, result)
	}
}

func (t Tee) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	for _, k := range t {
		k.EmitLog(addr, topics, data)
	}
}

func (t Tee) StorageDiff(d StorageDiff) {
	for _, k := range t {
		k.StorageDiff(d)
	}
}

func (t Tee) NewPreimage(p iostate.NewPreimage) {
	for _, k := range t {
		k.NewPreimage(p)
	}
}

func (t Tee) Pubdata(bytes uint64) {
	for _, k := range t {
		k.Pubdata(bytes)
	}
}

func (t Tee) BlockSealed(header BlockHeader) {
	for _, k := range t {
		k.BlockSealed(header)
	}
}

var _ Keeper = Tee{}
