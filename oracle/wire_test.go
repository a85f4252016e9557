package oracle

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func words(ws ...uint64) []byte {
	buf := make([]byte, len(ws)*wordSize)
	for i, w := range ws {
		binary.LittleEndian.PutUint64(buf[i*wordSize:], w)
	}
	return buf
}

func TestDecodeTapeRejectsNonWordAligned(t *testing.T) {
	_, err := DecodeTape([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestReadBytesRejectsNonZeroPadding(t *testing.T) {
	// length=1, but the padding byte after it is non-zero.
	buf := words(1, 0)
	buf[8+1] = 0xff // corrupt the pad byte inside the single payload word
	tape, err := DecodeTape(buf)
	require.NoError(t, err)
	_, err = tape.ReadBytes()
	require.Error(t, err)
}

func TestReadBytesRoundTrip(t *testing.T) {
	buf := words(3, 0) // length=3, payload word holds "abc" + 5 zero pad bytes
	binary.LittleEndian.PutUint64(buf[8:], uint64('a')<<56|uint64('b')<<48|uint64('c')<<40)
	tape, err := DecodeTape(buf)
	require.NoError(t, err)
	b, err := tape.ReadBytes()
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), b)
}

func TestTapeOracleNextTxSealBatch(t *testing.T) {
	tape, err := DecodeTape(words(0))
	require.NoError(t, err)
	o := NewTapeOracle(tape)
	resp, err := o.NextTx()
	require.NoError(t, err)
	require.True(t, resp.SealBatch)
}
