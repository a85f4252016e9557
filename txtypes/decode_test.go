package txtypes

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestDecodeLegacyRecoversSender(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	signer := types.NewEIP155Signer(big.NewInt(1))
	inner := types.NewTransaction(3, common.HexToAddress("0xaa"), big.NewInt(100), 21000, big.NewInt(1_000_000_000), nil)
	signed, err := types.SignTx(inner, signer, key)
	require.NoError(t, err)

	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	tx, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, LegacyType, tx.Type)
	require.Equal(t, from, tx.From)
	require.Equal(t, uint64(3), tx.Nonce)

	reenc, err := Encode(tx)
	require.NoError(t, err)
	require.Equal(t, raw, reenc)
}

func buildAA(t *testing.T, mutate func(*Transaction)) []byte {
	t.Helper()
	tx := &Transaction{
		Type:                 AccountAbstractionType,
		From:                 common.HexToAddress("0x1111"),
		GasLimit:             100000,
		GasPerPubdata:        uint256.NewInt(800),
		MaxFeePerGas:         uint256.NewInt(1_500_000_000),
		MaxPriorityFeePerGas: uint256.NewInt(100_000_000),
		Nonce:                7,
		Value:                uint256.NewInt(0),
		Calldata:             []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		Signature:            make([]byte, 65),
		FactoryDeps:          []common.Hash{common.HexToHash("0xabc"), common.HexToHash("0xdef")},
		PaymasterInput:       []byte{0xaa, 0xbb},
		ReservedDynamic:      nil,
	}
	for i := range tx.Reserved {
		tx.Reserved[i] = uint256.NewInt(0)
	}
	if mutate != nil {
		mutate(tx)
	}
	b, err := encodeAA(tx)
	require.NoError(t, err)
	return b
}

func TestDecodeAARoundTrip(t *testing.T) {
	raw := buildAA(t, nil)

	tx, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, AccountAbstractionType, tx.Type)
	require.Equal(t, common.HexToAddress("0x1111"), tx.From)
	require.Equal(t, uint64(7), tx.Nonce)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, tx.Calldata)
	require.Len(t, tx.FactoryDeps, 2)
	require.Equal(t, common.HexToHash("0xabc"), tx.FactoryDeps[0])

	reenc, err := Encode(tx)
	require.NoError(t, err)
	require.Equal(t, raw, reenc)
}

func TestDecodeAAEmptyDynamicFields(t *testing.T) {
	raw := buildAA(t, func(tx *Transaction) {
		tx.Calldata = nil
		tx.FactoryDeps = nil
		tx.PaymasterInput = nil
	})
	tx, err := Decode(raw)
	require.NoError(t, err)
	require.Empty(t, tx.Calldata)
	require.Empty(t, tx.FactoryDeps)
}

func TestDecodeAARejectsNonZeroPadding(t *testing.T) {
	raw := buildAA(t, nil)
	// Corrupt a padding byte in the calldata's tail padding region: after
	// the type byte, the head words and the calldata length word come the
	// 5 calldata bytes, then zero padding up to the word boundary.
	raw[1+aaHeadWords*abiWordSize+abiWordSize+5] ^= 0xff
	_, err := Decode(raw)
	require.Error(t, err)
}

func TestDecodeAASignedHashExcludesSignature(t *testing.T) {
	raw1 := buildAA(t, func(tx *Transaction) {
		tx.Signature = make([]byte, 65)
	})
	raw2 := buildAA(t, func(tx *Transaction) {
		tx.Signature = append([]byte{0x01}, make([]byte, 64)...)
	})
	tx1, err := Decode(raw1)
	require.NoError(t, err)
	tx2, err := Decode(raw2)
	require.NoError(t, err)
	require.Equal(t, tx1.SignedHash(), tx2.SignedHash())
	require.NotEqual(t, tx1.Hash(), tx2.Hash())
}
