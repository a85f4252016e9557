package iostate

import (
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/oracle"
	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"
)

type diffEntry struct {
	Addr  common.Address
	Key   common.Hash
	Value common.Hash
}

func TestColdReadThenWarmRead(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xaa")
	key := common.HexToHash("0x01")
	o.SetSlot(addr, key, common.HexToHash("0x42"), false)

	c := NewStorageCache(o)
	v, cold, err := c.Read(addr, key)
	require.NoError(t, err)
	require.True(t, cold)
	require.Equal(t, common.HexToHash("0x42"), v)

	v, cold, err = c.Read(addr, key)
	require.NoError(t, err)
	require.False(t, cold)
	require.Equal(t, common.HexToHash("0x42"), v)
}

func TestWriteIdempotentPubdataUnchanged(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xaa")
	key := common.HexToHash("0x01")
	o.SetSlot(addr, key, common.HexToHash("0x42"), false)

	c := NewStorageCache(o)
	_, _, err := c.Write(addr, key, common.HexToHash("0x42"))
	require.NoError(t, err)
	v1, _ := c.Get(addr, key)

	_, _, err = c.Write(addr, key, common.HexToHash("0x42"))
	require.NoError(t, err)
	v2, _ := c.Get(addr, key)

	require.Equal(t, v1.PubdataDiffBytes, v2.PubdataDiffBytes)
}

func TestRollbackReadInvisibleAfterRevert(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xbb")
	key := common.HexToHash("0x02")
	o.SetSlot(addr, key, common.HexToHash("0x7"), false)

	c := NewStorageCache(o)
	snap := c.Snapshot()
	_, cold, err := c.Read(addr, key)
	require.NoError(t, err)
	require.True(t, cold)

	c.Rollback(snap)
	_, ok := c.Get(addr, key)
	require.False(t, ok, "slot must be cold again after rollback")

	_, cold, err = c.Read(addr, key)
	require.NoError(t, err)
	require.True(t, cold, "re-reading after rollback must be cold")
}

func TestRollbackWriteRestoresPreviousValue(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xcc")
	key := common.HexToHash("0x03")
	o.SetSlot(addr, key, common.HexToHash("0x1"), false)

	c := NewStorageCache(o)
	_, _, err := c.Write(addr, key, common.HexToHash("0x2"))
	require.NoError(t, err)

	snap := c.Snapshot()
	_, _, err = c.Write(addr, key, common.HexToHash("0x3"))
	require.NoError(t, err)

	c.Rollback(snap)
	v, ok := c.Get(addr, key)
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0x2"), v.CurrentValue)
}

func TestLIFOSnapshotNesting(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xdd")
	k1 := common.HexToHash("0x1")
	k2 := common.HexToHash("0x2")
	o.SetSlot(addr, k1, common.Hash{}, true)
	o.SetSlot(addr, k2, common.Hash{}, true)

	c := NewStorageCache(o)
	outer := c.Snapshot()
	_, _, err := c.Write(addr, k1, common.HexToHash("0xaa"))
	require.NoError(t, err)

	inner := c.Snapshot()
	_, _, err = c.Write(addr, k2, common.HexToHash("0xbb"))
	require.NoError(t, err)
	c.Rollback(inner)

	v2, ok := c.Get(addr, k2)
	require.False(t, ok || v2.CurrentValue == common.HexToHash("0xbb"))

	v1, ok := c.Get(addr, k1)
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0xaa"), v1.CurrentValue)

	c.Rollback(outer)
	_, ok = c.Get(addr, k1)
	require.False(t, ok)
}

func TestFreshSlotPubdataSpecialCase(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xee")
	key := common.HexToHash("0x9")
	o.SetSlot(addr, key, common.Hash{}, true) // fresh slot, initial unused

	c := NewStorageCache(o)
	_, _, err := c.Write(addr, key, common.HexToHash("0xdead"))
	require.NoError(t, err)
	v, _ := c.Get(addr, key)
	require.Equal(t, uint64(freshSlotPubdataBytes), v.PubdataDiffBytes)
}

func TestDiffsIterationMatchesWrites(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0x10")
	k1 := common.HexToHash("0x1")
	k2 := common.HexToHash("0x2")
	o.SetSlot(addr, k1, common.Hash{}, false)
	o.SetSlot(addr, k2, common.Hash{}, false)

	c := NewStorageCache(o)
	_, _, err := c.Write(addr, k1, common.HexToHash("0xaa"))
	require.NoError(t, err)
	_, _, err = c.Write(addr, k2, common.HexToHash("0xbb"))
	require.NoError(t, err)

	var got []diffEntry
	c.Diffs(func(addr common.Address, key common.Hash, value common.Hash) {
		got = append(got, diffEntry{Addr: addr, Key: key, Value: value})
	})
	sort.Slice(got, func(i, j int) bool { return got[i].Key.Hex() < got[j].Key.Hex() })

	want := []diffEntry{
		{Addr: addr, Key: k1, Value: common.HexToHash("0xaa")},
		{Addr: addr, Key: k2, Value: common.HexToHash("0xbb")},
	}
	if diff := pretty.Compare(want, got); diff != "" {
		t.Fatalf("Diffs() mismatch (-want +got):\n%s", diff)
	}
}

func TestBeginNewTxAdvancesValueAtStartOfTx(t *testing.T) {
	o := oracle.NewTestOracle()
	addr := common.HexToAddress("0xff")
	key := common.HexToHash("0x5")
	o.SetSlot(addr, key, common.HexToHash("0x1"), false)

	c := NewStorageCache(o)
	_, _, err := c.Write(addr, key, common.HexToHash("0x2"))
	require.NoError(t, err)

	c.BeginNewTx()
	v, ok := c.Get(addr, key)
	require.True(t, ok)
	require.Equal(t, common.HexToHash("0x2"), v.ValueAtStartOfTx)
}
