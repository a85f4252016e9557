package iostate

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/history"
	"github.com/execore/bootloader/oracle"
	"github.com/execore/bootloader/resources"
)

// FrameID is the opaque handle returned by System.BeginFrame, redeemable
// by System.FinishFrame in LIFO order — the "frame" of spec §3/§4.7.
type FrameID int

type frameState struct {
	storageSnap   history.Snapshot
	transientSnap history.Snapshot
	preimageSnap  int
	resourcesErgs uint64
	pubdataBytes  uint64
}

// GasSchedule parameterizes the IO façade's gas accounting so it stays
// independent of any one execution environment's opcode pricing.
type GasSchedule struct {
	ColdReadErgs  uint64
	GasPerPubdata uint64
}

// System is component C8, the snapshot controller, fronting C5/C6/C7 with
// a single frame-scoped begin/commit/rollback surface — the same shape as
// the teacher's core/state.StateDB.Snapshot()/RevertToSnapshot(), as used
// by miner/worker.go's applyTransaction. This is also the "IO façade" of
// spec §6, exposed to execution environments.
type System struct {
	Storage   *StorageCache
	Transient *TransientCache
	Preimages *PreimageCache
	Resources *resources.Resources
	Schedule  GasSchedule

	frames []frameState
}

// NewSystem wires a fresh System over the given oracle and resource budget.
func NewSystem(o oracle.Oracle, ergsBudget uint64, preimageCacheBytes int, schedule GasSchedule) *System {
	return &System{
		Storage:   NewStorageCache(o),
		Transient: NewTransientCache(),
		Preimages: NewPreimageCache(o, preimageCacheBytes),
		Resources: resources.New(ergsBudget),
		Schedule:  schedule,
	}
}

// BeginFrame records a snapshot triple across C5/C6/C7 plus the resource
// and pubdata counters, per spec §4.7.
func (s *System) BeginFrame() FrameID {
	s.frames = append(s.frames, frameState{
		storageSnap:   s.Storage.Snapshot(),
		transientSnap: s.Transient.Snapshot(),
		preimageSnap:  s.Preimages.NewOnesSnapshot(),
		resourcesErgs: s.Resources.ErgsLeft(),
		pubdataBytes:  s.Resources.PubdataBytes(),
	})
	return FrameID(len(s.frames) - 1)
}

// FinishFrame commits (rollback == false) or rolls back to the given frame.
// The LIFO invariant is enforced: finishing any frame other than the most
// recently begun one is a fatal programming error (spec §4.7).
func (s *System) FinishFrame(id FrameID, rollback bool) {
	if int(id) != len(s.frames)-1 {
		panic(fmt.Sprintf("iostate: frame LIFO violation: finishing %d but top is %d", id, len(s.frames)-1))
	}
	f := s.frames[id]
	s.frames = s.frames[:id]

	if !rollback {
		return
	}
	s.Storage.Rollback(f.storageSnap)
	s.Transient.Rollback(f.transientSnap)
	s.Preimages.RollbackNewOnes(f.preimageSnap)
	// Ergs already spent inside the reverted frame are not refunded: a
	// Revert/OutOfGas exit consumes whatever gas was spent up to that
	// point (spec §4.10's exit codes), it only undoes the IO caches.
}

// BeginNewTx propagates the transaction boundary to C5 (advances
// value_at_start_of_tx) and C6 (full reset), per spec §4.7.
func (s *System) BeginNewTx() {
	s.Storage.BeginNewTx()
	s.Transient.BeginNewTx()
}

// StorageRead implements the IO façade's storage_read, charging the cold
// read cost when the slot was not already warm.
func (s *System) StorageRead(addr common.Address, key common.Hash) (common.Hash, bool, error) {
	value, cold, err := s.Storage.Read(addr, key)
	if err != nil {
		return common.Hash{}, false, err
	}
	if cold {
		if err := s.Resources.SpendGas(s.Schedule.ColdReadErgs); err != nil {
			return common.Hash{}, false, err
		}
	}
	return value, cold, nil
}

// StorageWrite implements the IO façade's storage_write, charging the
// cold-read cost (if applicable) plus the pubdata cost of the resulting diff.
func (s *System) StorageWrite(addr common.Address, key common.Hash, value common.Hash) (bool, error) {
	cold, diffBytes, err := s.Storage.Write(addr, key, value)
	if err != nil {
		return false, err
	}
	if cold {
		if err := s.Resources.SpendGas(s.Schedule.ColdReadErgs); err != nil {
			return false, err
		}
	}
	if err := s.Resources.SpendPubdata(diffBytes, s.Schedule.GasPerPubdata); err != nil {
		return false, err
	}
	return cold, nil
}

// TransientRead/TransientWrite implement the IO façade's transient_read/write.
func (s *System) TransientRead(addr common.Address, key common.Hash) common.Hash {
	return s.Transient.Read(addr, key)
}

func (s *System) TransientWrite(addr common.Address, key common.Hash, value common.Hash) {
	s.Transient.Write(addr, key, value)
}

// PreimageFor implements the IO façade's preimage_for.
func (s *System) PreimageFor(hash common.Hash) ([]byte, error) {
	return s.Preimages.Get(hash)
}
