package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// TapeOracle implements Oracle by sequentially consuming a Tape produced
// by the proving harness. Every method call issues exactly one query and
// blocks (synchronously, per spec §5) until the matching response is
// decoded off the tape — there is no concurrency to coordinate, since a
// witness tape is inherently a single serialized sequence.
//
// This is the proving-mode counterpart of the teacher's
// outstandingRequestHandlers bookkeeping in peer/network.go, simplified
// because the oracle never has more than one request in flight.
type TapeOracle struct {
	tape     *Tape
	nextID   uint32
	queryLog []QueryHeader // retained for InternalError diagnostics only
}

// NewTapeOracle constructs a TapeOracle over a pre-decoded Tape.
func NewTapeOracle(tape *Tape) *TapeOracle {
	return &TapeOracle{tape: tape}
}

func (o *TapeOracle) issue(kind QueryKind, paramCount uint32) QueryHeader {
	h := QueryHeader{QueryID: o.nextID, Kind: kind, ParamCount: paramCount}
	o.nextID++
	o.queryLog = append(o.queryLog, h)
	log.Debug("oracle query", "id", h.QueryID, "kind", kind)
	return h
}

func (o *TapeOracle) NextTx() (NextTxResponse, error) {
	o.issue(QueryNextTx, 0)
	tag, err := o.tape.ReadWord()
	if err != nil {
		return NextTxResponse{}, fmt.Errorf("oracle: NextTx: %w", err)
	}
	if tag == 0 {
		return NextTxResponse{SealBatch: true}, nil
	}
	txBytes, err := o.tape.ReadBytes()
	if err != nil {
		return NextTxResponse{}, fmt.Errorf("oracle: NextTx payload: %w", err)
	}
	return NextTxResponse{TxBytes: txBytes}, nil
}

func (o *TapeOracle) InitialStorageSlot(addr common.Address, key common.Hash) (InitialStorageSlotResponse, error) {
	o.issue(QueryInitialStorageSlot, 2)
	value, err := o.tape.ReadHash()
	if err != nil {
		return InitialStorageSlotResponse{}, fmt.Errorf("oracle: InitialStorageSlot value: %w", err)
	}
	flags, err := o.tape.ReadWord()
	if err != nil {
		return InitialStorageSlotResponse{}, fmt.Errorf("oracle: InitialStorageSlot flags: %w", err)
	}
	return InitialStorageSlotResponse{
		Value:              value,
		IsNewSlot:          flags&1 != 0,
		IsNewValueProvable: flags&2 != 0,
	}, nil
}

func (o *TapeOracle) PreimageFor(hash common.Hash) ([]byte, bool, error) {
	o.issue(QueryPreimageFor, 1)
	present, err := o.tape.ReadWord()
	if err != nil {
		return nil, false, fmt.Errorf("oracle: PreimageFor presence: %w", err)
	}
	if present == 0 {
		return nil, false, nil
	}
	b, err := o.tape.ReadBytes()
	if err != nil {
		return nil, false, fmt.Errorf("oracle: PreimageFor payload: %w", err)
	}
	return b, true, nil
}

func (o *TapeOracle) BlockHash(blockNumber uint64) (common.Hash, error) {
	o.issue(QueryBlockHash, 1)
	h, err := o.tape.ReadHash()
	if err != nil {
		return common.Hash{}, fmt.Errorf("oracle: BlockHash: %w", err)
	}
	return h, nil
}

func (o *TapeOracle) MerkleProof(treeIndex uint64) (MerkleProof, error) {
	o.issue(QueryMerkleProof, 1)
	leaf, err := o.tape.ReadHash()
	if err != nil {
		return MerkleProof{}, fmt.Errorf("oracle: MerkleProof leaf: %w", err)
	}
	depthWord, err := o.tape.ReadWord()
	if err != nil {
		return MerkleProof{}, fmt.Errorf("oracle: MerkleProof depth: %w", err)
	}
	siblings := make([]common.Hash, depthWord)
	for i := range siblings {
		siblings[i], err = o.tape.ReadHash()
		if err != nil {
			return MerkleProof{}, fmt.Errorf("oracle: MerkleProof sibling %d: %w", i, err)
		}
	}
	return MerkleProof{Leaf: leaf, Siblings: siblings}, nil
}

func (o *TapeOracle) AccountProperties(addr common.Address) (AccountProperties, error) {
	o.issue(QueryAccountProperties, 1)
	nonce, err := o.tape.ReadWord()
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: AccountProperties nonce: %w", err)
	}
	balance, err := o.tape.ReadBytes()
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: AccountProperties balance: %w", err)
	}
	codeHash, err := o.tape.ReadHash()
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: AccountProperties codeHash: %w", err)
	}
	codeLen, err := o.tape.ReadWord()
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: AccountProperties codeLen: %w", err)
	}
	artifactsLen, err := o.tape.ReadWord()
	if err != nil {
		return AccountProperties{}, fmt.Errorf("oracle: AccountProperties artifactsLen: %w", err)
	}
	return AccountProperties{
		Nonce:        uint64(nonce),
		Balance:      balance,
		CodeHash:     codeHash,
		CodeLen:      uint64(codeLen),
		ArtifactsLen: uint64(artifactsLen),
	}, nil
}

// HashToPrime is declared by spec §4.2 but per §9 Open Questions the
// in-source evaluator returns no certificate format. This core reads a
// presence flag and, if set, an opaque length-prefixed blob.
func (o *TapeOracle) HashToPrime(entropyRegion []byte) (HashToPrimeResponse, error) {
	o.issue(QueryHashToPrime, 1)
	found, err := o.tape.ReadWord()
	if err != nil {
		return HashToPrimeResponse{}, fmt.Errorf("oracle: HashToPrime presence: %w", err)
	}
	if found == 0 {
		return HashToPrimeResponse{}, nil
	}
	cert, err := o.tape.ReadBytes()
	if err != nil {
		return HashToPrimeResponse{}, fmt.Errorf("oracle: HashToPrime certificate: %w", err)
	}
	return HashToPrimeResponse{Found: true, Certificate: cert}, nil
}
