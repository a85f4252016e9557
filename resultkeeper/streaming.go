package resultkeeper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/iostate"
	"github.com/execore/bootloader/txtypes"
)

// Event is the union type pushed down a Streaming keeper's channel, for
// rpcstatus (§6.1 expansion) to fan out to connected websocket clients.
type Event struct {
	TxProcessed *TxEntry
	Log         *LogEntry
	Diff        *StorageDiff
	Preimage    *iostate.NewPreimage
	Pubdata     *uint64
	Sealed      *BlockHeader
}

// Streaming is a forward-mode Keeper that pushes every call onto a
// bounded channel instead of (or in addition to) accumulating it, so a
// long-lived process (the status RPC server) can observe a live block
// as it's built rather than waiting for BlockSealed.
type Streaming struct {
	Events chan Event
}

// NewStreaming constructs a Streaming keeper with the given channel
// buffer depth. A full channel drops the event rather than blocking the
// driver — the status stream is best-effort, not part of the consensus
// data path.
func NewStreaming(buffer int) *Streaming {
	return &Streaming{Events: make(chan Event, buffer)}
}

func (s *Streaming) push(e Event) {
	select {
	case s.Events <- e:
	default:
	}
}

func (s *Streaming) TxProcessed(tx *txtypes.Transaction, result TxResult) {
	s.push(Event{TxProcessed: &TxEntry{Tx: tx, Result: result}})
}

func (s *Streaming) EmitLog(addr common.Address, topics []common.Hash, data []byte) {
	e := LogEntry{Address: addr, Topics: topics, Data: data}
	s.push(Event{Log: &e})
}

func (s *Streaming) StorageDiff(d StorageDiff) {
	s.push(Event{Diff: &d})
}

func (s *Streaming) NewPreimage(p iostate.NewPreimage) {
	s.push(Event{Preimage: &p})
}

func (s *Streaming) Pubdata(bytes uint64) {
	s.push(Event{Pubdata: &bytes})
}

func (s *Streaming) BlockSealed(header BlockHeader) {
	s.push(Event{Sealed: &header})
}

var _ Keeper = (*Streaming)(nil)
