package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/execore/bootloader/oracle"
)

// The real host persistence layer in forward mode is an external
// collaborator (spec §1): this process doesn't implement a state
// database, only the bootloader core that runs against one. These
// in-memory stand-ins let execore-forward run end-to-end against an
// empty, all-slots-fresh world for demonstration and smoke testing.

type stubForwardStore struct{}

func newStubForwardStore() *stubForwardStore { return &stubForwardStore{} }

func (s *stubForwardStore) ReadStorageSlot(addr common.Address, key common.Hash) (common.Hash, bool, error) {
	return common.Hash{}, true, nil
}

func (s *stubForwardStore) ReadPreimage(hash common.Hash) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *stubForwardStore) ReadBlockHash(blockNumber uint64) (common.Hash, error) {
	return common.Hash{}, nil
}

func (s *stubForwardStore) ReadAccountProperties(addr common.Address) (oracle.AccountProperties, error) {
	return oracle.AccountProperties{}, nil
}

func (s *stubForwardStore) ReadMerkleProof(treeIndex uint64) (oracle.MerkleProof, error) {
	return oracle.MerkleProof{}, nil
}

type stubTxSource struct{}

func newStubTxSource() *stubTxSource { return &stubTxSource{} }

func (s *stubTxSource) NextTx() (oracle.NextTxResponse, error) {
	return oracle.NextTxResponse{SealBatch: true}, nil
}
