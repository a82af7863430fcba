package index

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/iamNilotpal/ignitedb/internal/codec"
)

// entry is the unit stored in each shard's ordered tree: a key and the
// record position it currently maps to. Ordering is by Key alone; Position
// never participates in comparisons.
type entry struct {
	key []byte
	pos codec.RecordPosition
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Shard is one of the engine's index_num ordered maps. Each shard
// serializes its own mutations with an RWMutex; google/btree's BTreeG is
// not itself concurrency-safe, so external locking is required per shard.
type Shard struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

func newShard() *Shard {
	return &Shard{tree: btree.NewG(32, entryLess)}
}
