package iostate

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/oracle"
	"github.com/stretchr/testify/require"
)

func newTestSystem() *System {
	o := oracle.NewTestOracle()
	return NewSystem(o, 10_000_000, 1<<20, GasSchedule{ColdReadErgs: 2100, GasPerPubdata: 20})
}

// TestSSTOREThenRevert mirrors spec §8 scenario 3: a contract writes slot
// k=1 to v=0xdead then reverts. Expect no storage diff.
func TestSSTOREThenRevert(t *testing.T) {
	s := newTestSystem()
	addr := common.HexToAddress("0x1")
	key := common.HexToHash("0x1")

	frame := s.BeginFrame()
	_, err := s.StorageWrite(addr, key, common.HexToHash("0xdead"))
	require.NoError(t, err)
	s.FinishFrame(frame, true)

	diffCount := 0
	s.Storage.Diffs(func(a common.Address, k common.Hash, v common.Hash) { diffCount++ })
	require.Equal(t, 0, diffCount)
}

// TestNestedCallRollback mirrors spec §8 scenario 4: outer frame writes
// (addr,k1)->v1; inner call writes (addr,k2)->v2 then reverts. Expect k2
// unchanged, k1 present in diffs.
func TestNestedCallRollback(t *testing.T) {
	s := newTestSystem()
	addr := common.HexToAddress("0x1")
	k1 := common.HexToHash("0x1")
	k2 := common.HexToHash("0x2")

	outer := s.BeginFrame()
	_, err := s.StorageWrite(addr, k1, common.HexToHash("0xaa"))
	require.NoError(t, err)

	inner := s.BeginFrame()
	_, err = s.StorageWrite(addr, k2, common.HexToHash("0xbb"))
	require.NoError(t, err)
	s.FinishFrame(inner, true)

	s.FinishFrame(outer, false)

	diffs := map[common.Hash]common.Hash{}
	s.Storage.Diffs(func(a common.Address, k common.Hash, v common.Hash) { diffs[k] = v })
	require.Equal(t, common.HexToHash("0xaa"), diffs[k1])
	_, present := diffs[k2]
	require.False(t, present)
}

func TestFrameLIFOViolationPanics(t *testing.T) {
	s := newTestSystem()
	f1 := s.BeginFrame()
	f2 := s.BeginFrame()
	require.Panics(t, func() {
		s.FinishFrame(f1, false)
	})
	s.FinishFrame(f2, false)
	s.FinishFrame(f1, false)
}

func TestColdReadChargesErgsOnce(t *testing.T) {
	s := newTestSystem()
	addr := common.HexToAddress("0x2")
	key := common.HexToHash("0x9")
	before := s.Resources.ErgsLeft()

	_, cold, err := s.StorageRead(addr, key)
	require.NoError(t, err)
	require.True(t, cold)
	require.Equal(t, before-s.Schedule.ColdReadErgs, s.Resources.ErgsLeft())

	afterFirst := s.Resources.ErgsLeft()
	_, cold, err = s.StorageRead(addr, key)
	require.NoError(t, err)
	require.False(t, cold)
	require.Equal(t, afterFirst, s.Resources.ErgsLeft())
}

func TestTransientClearedAtTxBoundaryNotFrame(t *testing.T) {
	s := newTestSystem()
	addr := common.HexToAddress("0x3")
	key := common.HexToHash("0x1")

	frame := s.BeginFrame()
	s.TransientWrite(addr, key, common.HexToHash("0xff"))
	s.FinishFrame(frame, false)
	require.Equal(t, common.HexToHash("0xff"), s.TransientRead(addr, key))

	s.BeginNewTx()
	require.Equal(t, common.Hash{}, s.TransientRead(addr, key))
}
