package resultkeeper

import (
	"testing"

	"github.com/execore/bootloader/execution"
	"github.com/stretchr/testify/require"
)

func TestCollectingAccumulatesInCallOrder(t *testing.T) {
	c := NewCollecting()
	c.TxProcessed(nil, TxResult{Output: &Output{Exit: execution.Success}})
	c.StorageDiff(StorageDiff{})
	c.Pubdata(128)
	c.BlockSealed(BlockHeader{Number: 1, TxCount: 1, PubdataBytes: 128})

	require.Len(t, c.Results, 1)
	require.Len(t, c.Diffs, 1)
	require.Equal(t, uint64(128), c.PubdataBytes)
	require.Equal(t, uint64(1), c.Header.Number)
}

func TestNopDiscardsEverything(t *testing.T) {
	var k Keeper = Nop{}
	k.TxProcessed(nil, TxResult{})
	k.Pubdata(1)
	k.BlockSealed(BlockHeader{})
}

func TestStreamingDropsOnFullBuffer(t *testing.T) {
	s := NewStreaming(1)
	s.Pubdata(1)
	s.Pubdata(2) // buffer full, dropped rather than blocking
	require.Len(t, s.Events, 1)
	ev := <-s.Events
	require.NotNil(t, ev.Pubdata)
	require.Equal(t, uint64(1), *ev.Pubdata)
}
