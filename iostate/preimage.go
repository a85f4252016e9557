package iostate

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/execore/bootloader/oracle"
)

// ErrOracleCorrupted is raised when a preimage the oracle returns fails
// to hash back to the key it was requested for — an InternalError per
// spec §7 (aborts the block; invalidates the proof in proving mode).
type ErrOracleCorrupted struct {
	Hash common.Hash
}

func (e *ErrOracleCorrupted) Error() string {
	return fmt.Sprintf("iostate: oracle returned a preimage that does not hash to %s", e.Hash)
}

// NewPreimage is emitted by PreimageCache.RecordPreimage for the result
// keeper (C12) to stream out, per spec §4.6.
type NewPreimage struct {
	Hash  common.Hash
	Bytes []byte
}

// PreimageCache is component C7: a content-addressed, block-scoped,
// oracle-backed bytecode-hash -> bytes cache. Entries are immutable once
// resolved and persist for the whole block (no rollback — a verified
// preimage can never become "wrong" partway through a block).
//
// The on-heap hot set is a fastcache.Cache (teacher go.mod direct dep),
// sized for a block's working set of contract bytecode; fastcache's
// fixed-memory, GC-pressure-free design is exactly what the teacher
// reaches for when caching a high-churn byte-keyed set (see its use
// as the trie node cache in go-ethereum, whose lineage the teacher
// shares).
type PreimageCache struct {
	hot      *fastcache.Cache
	oracle   oracle.Oracle
	newOnes  []NewPreimage
}

// NewPreimageCache constructs a PreimageCache with a fastcache of the
// given byte capacity, backed by the given oracle for cold misses.
func NewPreimageCache(o oracle.Oracle, cacheBytes int) *PreimageCache {
	return &PreimageCache{
		hot:    fastcache.New(cacheBytes),
		oracle: o,
	}
}

// Get resolves hash -> bytes, consulting the oracle on miss and verifying
// the result by rehashing, per spec §4.6.
func (c *PreimageCache) Get(hash common.Hash) ([]byte, error) {
	if b, ok := c.hot.HasGet(nil, hash[:]); ok {
		return b, nil
	}
	b, found, err := c.oracle.PreimageFor(hash)
	if err != nil {
		return nil, fmt.Errorf("iostate: preimage oracle query for %s: %w", hash, err)
	}
	if !found {
		return nil, fmt.Errorf("iostate: no preimage known for %s", hash)
	}
	if crypto.Keccak256Hash(b) != hash {
		return nil, &ErrOracleCorrupted{Hash: hash}
	}
	c.hot.Set(hash[:], b)
	return b, nil
}

// RecordPreimage inserts a freshly-deployed bytecode's preimage without
// consulting the oracle (spec §4.6: "used for deployments"), and queues
// it for emission through the result keeper.
func (c *PreimageCache) RecordPreimage(bytes []byte) common.Hash {
	hash := crypto.Keccak256Hash(bytes)
	c.hot.Set(hash[:], bytes)
	c.newOnes = append(c.newOnes, NewPreimage{Hash: hash, Bytes: bytes})
	return hash
}

// DrainNewPreimages returns and clears the preimages recorded via
// RecordPreimage since the last drain, for C12 to stream out; the block
// driver drains after each transaction.
func (c *PreimageCache) DrainNewPreimages() []NewPreimage {
	out := c.newOnes
	c.newOnes = nil
	return out
}

// NewOnesSnapshot/RollbackNewOnes let the snapshot controller (C8) undo a
// deployment's preimage *registration* on a reverted frame, even though
// the verified bytes themselves stay cached (a verified preimage is
// valid regardless of which frame resolved it first).
func (c *PreimageCache) NewOnesSnapshot() int { return len(c.newOnes) }

func (c *PreimageCache) RollbackNewOnes(n int) {
	if n > len(c.newOnes) {
		panic("iostate: preimage rollback target exceeds current length")
	}
	c.newOnes = c.newOnes[:n]
}
