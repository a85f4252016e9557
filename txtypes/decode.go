package txtypes

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// aaHeadWords is the fixed number of 32-byte head slots in the AA tuple:
// 10 static scalars, 4 reserved words, then 5 dynamic-field offsets.
const aaHeadWords = 10 + 4 + 5

// Decode parses the wire bytes of a single transaction, dispatching on
// the leading tx_type byte per spec §6. Legacy/2930/1559 are standard
// Ethereum RLP and are delegated to go-ethereum's own transaction codec;
// 0x71 uses the fixed ABI-tuple-shaped layout of decodeAA below.
func Decode(b []byte) (*Transaction, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("txtypes: empty transaction bytes")
	}
	switch Type(b[0]) {
	case AccountAbstractionType:
		return decodeAA(b)
	default:
		return decodeEthereumRLP(b)
	}
}

func decodeEthereumRLP(b []byte) (*Transaction, error) {
	var inner types.Transaction
	if err := inner.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("txtypes: rlp decode: %w", err)
	}

	signer := types.LatestSignerForChainID(inner.ChainId())
	from, err := types.Sender(signer, &inner)
	if err != nil {
		return nil, fmt.Errorf("txtypes: recover sender: %w", err)
	}

	var typ Type
	switch inner.Type() {
	case types.LegacyTxType:
		typ = LegacyType
	case types.AccessListTxType:
		typ = AccessListType
	case types.DynamicFeeTxType:
		typ = DynamicFeeType
	default:
		return nil, fmt.Errorf("txtypes: unsupported ethereum tx type %d", inner.Type())
	}

	v, r, s := inner.RawSignatureValues()
	sig := make([]byte, 65)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v.Uint64())

	tx := &Transaction{
		Type:                 typ,
		From:                 from,
		To:                   inner.To(),
		GasLimit:             inner.Gas(),
		GasPerPubdata:        uint256.NewInt(0),
		MaxFeePerGas:         uint256.MustFromBig(capGasFee(inner.GasFeeCap())),
		MaxPriorityFeePerGas: uint256.MustFromBig(capGasFee(inner.GasTipCap())),
		Nonce:                inner.Nonce(),
		Value:                uint256.MustFromBig(inner.Value()),
		Calldata:             append([]byte(nil), inner.Data()...),
		Signature:            sig,
		ChainID:              inner.ChainId().Uint64(),
		raw:                  append([]byte(nil), b...),
		hash:                 inner.Hash(),
		signedHash:           signer.Hash(&inner),
	}
	return tx, nil
}

func capGasFee(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func decodeAA(b []byte) (*Transaction, error) {
	if len(b) < 1+aaHeadWords*abiWordSize {
		return nil, fmt.Errorf("txtypes: AA transaction too short")
	}
	r := &wordReader{buf: b[1:]}

	offset := uint64(0)
	next := func() uint64 {
		o := offset
		offset += abiWordSize
		return o
	}

	typWord, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	if Type(typWord) != AccountAbstractionType {
		return nil, fmt.Errorf("txtypes: AA tuple tx_type field %d does not match prefix", typWord)
	}
	from, err := r.addressAt(next())
	if err != nil {
		return nil, err
	}
	toWord, err := r.addressAt(next())
	if err != nil {
		return nil, err
	}
	gasLimit, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	gasPerPubdata, err := r.uint256At(next())
	if err != nil {
		return nil, err
	}
	maxFee, err := r.uint256At(next())
	if err != nil {
		return nil, err
	}
	maxPriority, err := r.uint256At(next())
	if err != nil {
		return nil, err
	}
	paymaster, err := r.addressAt(next())
	if err != nil {
		return nil, err
	}
	nonce, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	value, err := r.uint256At(next())
	if err != nil {
		return nil, err
	}
	var reserved [4]*uint256.Int
	for i := range reserved {
		reserved[i], err = r.uint256At(next())
		if err != nil {
			return nil, err
		}
	}
	calldataOff, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	signatureOff, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	factoryDepsOff, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	paymasterInputOff, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}
	reservedDynOff, err := r.uint64At(next())
	if err != nil {
		return nil, err
	}

	calldata, err := r.bytesAt(calldataOff)
	if err != nil {
		return nil, err
	}
	signature, err := r.bytesAt(signatureOff)
	if err != nil {
		return nil, err
	}
	factoryDeps, err := r.hashArrayAt(factoryDepsOff)
	if err != nil {
		return nil, err
	}
	paymasterInput, err := r.bytesAt(paymasterInputOff)
	if err != nil {
		return nil, err
	}
	reservedDynamic, err := r.bytesAt(reservedDynOff)
	if err != nil {
		return nil, err
	}

	var to *common.Address
	if toWord != (common.Address{}) {
		toCopy := toWord
		to = &toCopy
	}
	var pm *common.Address
	if paymaster != (common.Address{}) {
		pmCopy := paymaster
		pm = &pmCopy
	}

	tx := &Transaction{
		Type:                 AccountAbstractionType,
		From:                 from,
		To:                   to,
		GasLimit:             gasLimit,
		GasPerPubdata:        gasPerPubdata,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxPriority,
		Paymaster:            pm,
		Nonce:                nonce,
		Value:                value,
		Calldata:             calldata,
		Signature:            signature,
		Reserved:             reserved,
		FactoryDeps:          factoryDeps,
		PaymasterInput:       paymasterInput,
		ReservedDynamic:      reservedDynamic,
		raw:                  append([]byte(nil), b...),
	}
	tx.hash = crypto.Keccak256Hash(tx.raw)
	unsigned := *tx
	unsigned.Signature = nil
	unsignedBytes, err := encodeAA(&unsigned)
	if err != nil {
		return nil, fmt.Errorf("txtypes: computing signed hash: %w", err)
	}
	tx.signedHash = crypto.Keccak256Hash(unsignedBytes)
	return tx, nil
}

// Encode re-serializes a Transaction to wire bytes. For legacy/2930/1559
// types this returns the original captured bytes (go-ethereum's RLP
// encoder is not guaranteed byte-identical across re-signature-recovery
// round trips, but the envelope itself is immutable once decoded so the
// captured bytes always satisfy the round-trip property of spec §8).
// For the AA type it re-derives the wire form field-by-field.
func Encode(tx *Transaction) ([]byte, error) {
	if tx.Type != AccountAbstractionType {
		if tx.raw == nil {
			return nil, fmt.Errorf("txtypes: cannot re-encode a transaction not produced by Decode")
		}
		return append([]byte(nil), tx.raw...), nil
	}
	return encodeAA(tx)
}

func encodeAA(tx *Transaction) ([]byte, error) {
	head := make([][]byte, 0, aaHeadWords)
	head = append(head, putWord(encodeUint64(uint64(AccountAbstractionType))))
	head = append(head, putAddress(tx.From))
	var to common.Address
	if tx.To != nil {
		to = *tx.To
	}
	head = append(head, putAddress(to))
	head = append(head, putWord(encodeUint64(tx.GasLimit)))
	head = append(head, putUint256(tx.GasPerPubdata))
	head = append(head, putUint256(tx.MaxFeePerGas))
	head = append(head, putUint256(tx.MaxPriorityFeePerGas))
	var pm common.Address
	if tx.Paymaster != nil {
		pm = *tx.Paymaster
	}
	head = append(head, putAddress(pm))
	head = append(head, putWord(encodeUint64(tx.Nonce)))
	head = append(head, putUint256(tx.Value))
	for _, r := range tx.Reserved {
		if r == nil {
			r = uint256.NewInt(0)
		}
		head = append(head, putUint256(r))
	}

	dynSections := [][]byte{
		encodeBytesSection(tx.Calldata),
		encodeBytesSection(tx.Signature),
		encodeHashArraySection(tx.FactoryDeps),
		encodeBytesSection(tx.PaymasterInput),
		encodeBytesSection(tx.ReservedDynamic),
	}

	headWords := aaHeadWords
	tailOffset := uint64(headWords) * abiWordSize
	offsets := make([]uint64, len(dynSections))
	for i, s := range dynSections {
		offsets[i] = tailOffset
		tailOffset += uint64(len(s))
	}
	for _, o := range offsets {
		head = append(head, putWord(encodeUint64(o)))
	}
	if len(head) != aaHeadWords {
		return nil, fmt.Errorf("txtypes: internal error: head word count mismatch")
	}

	out := make([]byte, 0, 1+int(tailOffset))
	out = append(out, byte(AccountAbstractionType))
	for _, w := range head {
		out = append(out, w...)
	}
	for _, s := range dynSections {
		out = append(out, s...)
	}
	return out, nil
}
