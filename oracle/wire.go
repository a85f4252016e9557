package oracle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
)

// Word is the oracle wire's fixed unit: a machine pointer-width integer,
// serialized little-endian per spec §6. We fix the width at 64 bits
// regardless of host architecture, since proving-mode determinism
// requires a wire format independent of the prover's actual word size.
type Word uint64

const wordSize = 8

// Tape is an append-only, monotonically-consumed sequence of words,
// matching spec §5 ("The oracle is an append-only borrow: each query
// consumes witness tape monotonically") and §6 ("a monotonic tape of
// usize words").
type Tape struct {
	words  []Word
	cursor int
}

// NewTape wraps a pre-populated word sequence (e.g. decoded from a
// witness file) for sequential consumption.
func NewTape(words []Word) *Tape {
	return &Tape{words: words}
}

// DecodeTape parses a flat byte buffer into a Tape, per spec §6's
// little-endian word encoding.
func DecodeTape(buf []byte) (*Tape, error) {
	if len(buf)%wordSize != 0 {
		return nil, fmt.Errorf("oracle: tape length %d is not a multiple of word size %d", len(buf), wordSize)
	}
	words := make([]Word, len(buf)/wordSize)
	for i := range words {
		words[i] = Word(binary.LittleEndian.Uint64(buf[i*wordSize:]))
	}
	return NewTape(words), nil
}

// Remaining reports how many words are left unconsumed.
func (t *Tape) Remaining() int { return len(t.words) - t.cursor }

// ReadWord consumes and returns the next word.
func (t *Tape) ReadWord() (Word, error) {
	if t.cursor >= len(t.words) {
		return 0, io.ErrUnexpectedEOF
	}
	w := t.words[t.cursor]
	t.cursor++
	return w, nil
}

// ReadWords consumes and returns n words.
func (t *Tape) ReadWords(n int) ([]Word, error) {
	if t.cursor+n > len(t.words) {
		return nil, io.ErrUnexpectedEOF
	}
	out := t.words[t.cursor : t.cursor+n]
	t.cursor += n
	return out, nil
}

// ReadHash consumes 4 words (32 bytes) and assembles a common.Hash.
func (t *Tape) ReadHash() (common.Hash, error) {
	ws, err := t.ReadWords(4)
	if err != nil {
		return common.Hash{}, err
	}
	var h common.Hash
	for i, w := range ws {
		binary.BigEndian.PutUint64(h[i*wordSize:], uint64(w))
	}
	return h, nil
}

// ReadAddress consumes 3 words (24 bytes, padded) and assembles a
// common.Address from the low 20 bytes.
func (t *Tape) ReadAddress() (common.Address, error) {
	ws, err := t.ReadWords(3)
	if err != nil {
		return common.Address{}, err
	}
	var buf [24]byte
	for i, w := range ws {
		binary.BigEndian.PutUint64(buf[i*wordSize:], uint64(w))
	}
	var a common.Address
	copy(a[:], buf[4:24])
	return a, nil
}

// ReadBytes consumes a length-prefixed byte string: one word giving the
// byte length, followed by ceil(len/wordSize) words of payload. Trailing
// padding bytes of the final word must be zero (spec §4.8's padding
// validation, reused here since the wire shapes are siblings).
func (t *Tape) ReadBytes() ([]byte, error) {
	lenWord, err := t.ReadWord()
	if err != nil {
		return nil, err
	}
	n := int(lenWord)
	nWords := (n + wordSize - 1) / wordSize
	ws, err := t.ReadWords(nWords)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, nWords*wordSize)
	for i, w := range ws {
		binary.BigEndian.PutUint64(buf[i*wordSize:], uint64(w))
	}
	for i := n; i < len(buf); i++ {
		if buf[i] != 0 {
			return nil, fmt.Errorf("oracle: non-zero padding byte at offset %d in length-prefixed bytes", i)
		}
	}
	return buf[:n], nil
}

// QueryHeader is the fixed prefix written before every query's
// parameters, per spec §6 ("(query_id, param_count, params...)").
type QueryHeader struct {
	QueryID    uint32
	Kind       QueryKind
	ParamCount uint32
}
