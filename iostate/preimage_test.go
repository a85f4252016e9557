package iostate

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/execore/bootloader/oracle"
	"github.com/stretchr/testify/require"
)

func TestPreimageVerifiedAgainstHash(t *testing.T) {
	o := oracle.NewTestOracle()
	code := []byte{0x60, 0x01, 0x60, 0x02}
	hash := crypto.Keccak256Hash(code)
	o.SetPreimage(hash, code)

	c := NewPreimageCache(o, 1<<16)
	got, err := c.Get(hash)
	require.NoError(t, err)
	require.Equal(t, code, got)
}

func TestPreimageMismatchIsOracleCorrupted(t *testing.T) {
	o := oracle.NewTestOracle()
	code := []byte{0xde, 0xad, 0xbe, 0xef}
	wrongHash := crypto.Keccak256Hash([]byte("not the code"))
	o.SetPreimage(wrongHash, code)

	c := NewPreimageCache(o, 1<<16)
	_, err := c.Get(wrongHash)
	require.Error(t, err)
	var corrupted *ErrOracleCorrupted
	require.ErrorAs(t, err, &corrupted)
}

func TestRecordPreimageQueuesForKeeper(t *testing.T) {
	o := oracle.NewTestOracle()
	c := NewPreimageCache(o, 1<<16)
	code := []byte{0x01, 0x02, 0x03}
	hash := c.RecordPreimage(code)

	got, err := c.Get(hash)
	require.NoError(t, err)
	require.Equal(t, code, got)

	drained := c.DrainNewPreimages()
	require.Len(t, drained, 1)
	require.Equal(t, hash, drained[0].Hash)

	require.Empty(t, c.DrainNewPreimages())
}

func TestRollbackNewOnesUndoesRegistrationNotBytes(t *testing.T) {
	o := oracle.NewTestOracle()
	c := NewPreimageCache(o, 1<<16)
	snap := c.NewOnesSnapshot()
	hash := c.RecordPreimage([]byte{0xaa})
	c.RollbackNewOnes(snap)

	require.Empty(t, c.DrainNewPreimages())
	// Bytes remain resolvable even though the registration was undone.
	got, err := c.Get(hash)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, got)
}
