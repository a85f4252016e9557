package txtypes

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// abiWordSize is the 32-byte word used by the AA type's tuple encoding —
// the same word size the Solidity ABI uses, though this is a narrow,
// fixed-shape codec for this one struct, not a general ABI library.
const abiWordSize = 32

type wordReader struct {
	buf []byte
}

func (r *wordReader) wordAt(offset uint64) ([]byte, error) {
	end := offset + abiWordSize
	if end > uint64(len(r.buf)) || end < offset {
		return nil, fmt.Errorf("txtypes: word read out of range at offset %d", offset)
	}
	return r.buf[offset:end], nil
}

func (r *wordReader) uint256At(offset uint64) (*uint256.Int, error) {
	w, err := r.wordAt(offset)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(w), nil
}

func (r *wordReader) uint64At(offset uint64) (uint64, error) {
	v, err := r.uint256At(offset)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("txtypes: value at offset %d overflows uint64", offset)
	}
	return v.Uint64(), nil
}

func (r *wordReader) addressAt(offset uint64) (common.Address, error) {
	w, err := r.wordAt(offset)
	if err != nil {
		return common.Address{}, err
	}
	var a common.Address
	copy(a[:], w[abiWordSize-common.AddressLength:])
	return a, nil
}

// bytesAt reads a dynamic `bytes` section: a length word followed by the
// data, zero-padded up to a word boundary.
func (r *wordReader) bytesAt(offset uint64) ([]byte, error) {
	length, err := r.uint64At(offset)
	if err != nil {
		return nil, err
	}
	start := offset + abiWordSize
	end := start + length
	if end < start || end > uint64(len(r.buf)) {
		return nil, fmt.Errorf("txtypes: dynamic bytes out of range at offset %d", offset)
	}
	data := r.buf[start:end]
	padded := (length + abiWordSize - 1) / abiWordSize * abiWordSize
	tailStart := start + length
	tailEnd := start + padded
	if tailEnd > uint64(len(r.buf)) {
		return nil, fmt.Errorf("txtypes: dynamic bytes padding out of range at offset %d", offset)
	}
	for _, b := range r.buf[tailStart:tailEnd] {
		if b != 0 {
			return nil, fmt.Errorf("txtypes: non-zero tail padding at offset %d", offset)
		}
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// hashArrayAt reads a dynamic `bytes32[]` section: a length word (element
// count) followed by that many 32-byte words.
func (r *wordReader) hashArrayAt(offset uint64) ([]common.Hash, error) {
	count, err := r.uint64At(offset)
	if err != nil {
		return nil, err
	}
	out := make([]common.Hash, count)
	cursor := offset + abiWordSize
	for i := uint64(0); i < count; i++ {
		w, err := r.wordAt(cursor)
		if err != nil {
			return nil, err
		}
		out[i] = common.BytesToHash(w)
		cursor += abiWordSize
	}
	return out, nil
}

func putWord(v []byte) []byte {
	w := make([]byte, abiWordSize)
	if len(v) > abiWordSize {
		v = v[len(v)-abiWordSize:]
	}
	copy(w[abiWordSize-len(v):], v)
	return w
}

func putUint256(v *uint256.Int) []byte {
	b := v.Bytes32()
	out := make([]byte, abiWordSize)
	copy(out, b[:])
	return out
}

func putAddress(a common.Address) []byte {
	return putWord(a[:])
}

func encodeBytesSection(data []byte) []byte {
	lenWord := putWord(encodeUint64(uint64(len(data))))
	padded := (len(data) + abiWordSize - 1) / abiWordSize * abiWordSize
	out := make([]byte, 0, abiWordSize+padded)
	out = append(out, lenWord...)
	out = append(out, data...)
	out = append(out, make([]byte, padded-len(data))...)
	return out
}

func encodeHashArraySection(hashes []common.Hash) []byte {
	out := make([]byte, 0, abiWordSize+len(hashes)*abiWordSize)
	out = append(out, putWord(encodeUint64(uint64(len(hashes))))...)
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
