// Package index implements ignitedb's in-memory index: a fixed number of
// independently-locked, key-ordered shards mapping key bytes to the record
// position holding that key's latest value. Ordering is what lets the
// transaction layer do its newest-version-first prefix scan without
// touching disk.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/btree"
	"github.com/iamNilotpal/ignitedb/internal/codec"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// SearchMode controls how TxnPrefixSearch reacts to an invisible version.
type SearchMode int

const (
	// SearchRead continues past an invisible version to older ones.
	SearchRead SearchMode = iota
	// SearchWrite aborts with ErrTxnConflict the moment it finds a version
	// it cannot see, since that version is concurrent with the writer.
	SearchWrite
)

// Index owns the engine's index_num ordered shards and routes every
// operation to the shard its key's first byte selects.
type Index struct {
	shards []*Shard
}

// New builds an Index with the given number of empty shards. numShards
// must be positive; callers validate this via options before construction.
func New(numShards int) *Index {
	shards := make([]*Shard, numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	return &Index{shards: shards}
}

func (ix *Index) shardFor(key []byte) *Shard {
	return ix.shards[int(key[0])%len(ix.shards)]
}

// Put inserts or overwrites key's position, returning the prior position if
// one existed so the caller can charge its size to reclaimable space.
func (ix *Index) Put(key []byte, pos codec.RecordPosition) (codec.RecordPosition, bool) {
	return ix.shardFor(key).put(key, pos)
}

// Get returns key's current position, if any.
func (ix *Index) Get(key []byte) (codec.RecordPosition, bool) {
	return ix.shardFor(key).get(key)
}

// Delete removes key's entry, returning the removed position. It fails with
// ErrNotFound if the key has no entry.
func (ix *Index) Delete(key []byte) (codec.RecordPosition, error) {
	return ix.shardFor(key).delete(key)
}

// Exists reports whether key currently has an entry.
func (ix *Index) Exists(key []byte) bool {
	return ix.shardFor(key).exists(key)
}

// IsEmpty reports whether every shard is empty.
func (ix *Index) IsEmpty() bool {
	for _, s := range ix.shards {
		if !s.isEmpty() {
			return false
		}
	}
	return true
}

// Len returns the total number of keys held across every shard.
func (ix *Index) Len() int {
	total := 0
	for _, s := range ix.shards {
		total += s.length()
	}
	return total
}

// TxnPrefixSearch scans entries in prefix's shard in reverse key order
// looking for the newest visible version of prefix. Versioned keys are
// prefix || big-endian(ts), an 8-byte suffix; the first entry found whose
// key has exactly that shape is inspected via isVisible(ts). In SearchRead
// mode an invisible version is skipped in favor of older ones; in
// SearchWrite mode the scan aborts immediately with ErrTxnConflict, since an
// invisible concurrent write makes this writer's view stale. If no entry
// ever has this exact shape, or scanning exhausts without a visible
// version, the result is ErrNotFound.
func (ix *Index) TxnPrefixSearch(prefix []byte, mode SearchMode, isVisible func(ts uint64) bool) (codec.RecordPosition, uint64, error) {
	return ix.shardFor(prefix).txnPrefixSearch(prefix, mode, isVisible)
}

func (s *Shard) put(key []byte, pos codec.RecordPosition) (codec.RecordPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, had := s.tree.ReplaceOrInsert(entry{key: append([]byte(nil), key...), pos: pos})
	if !had {
		return codec.RecordPosition{}, false
	}
	return old.pos, true
}

func (s *Shard) get(key []byte) (codec.RecordPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tree.Get(entry{key: key})
	if !ok {
		return codec.RecordPosition{}, false
	}
	return e.pos, true
}

func (s *Shard) delete(key []byte) (codec.RecordPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, had := s.tree.Delete(entry{key: key})
	if !had {
		return codec.RecordPosition{}, ignerrors.NewKeyNotFoundError(string(key)).WithOperation("Delete")
	}
	return old.pos, nil
}

func (s *Shard) exists(key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Has(entry{key: key})
}

func (s *Shard) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len() == 0
}

func (s *Shard) length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *Shard) txnPrefixSearch(prefix []byte, mode SearchMode, isVisible func(ts uint64) bool) (codec.RecordPosition, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pivot := make([]byte, len(prefix)+8)
	copy(pivot, prefix)
	for i := len(prefix); i < len(pivot); i++ {
		pivot[i] = 0xFF
	}

	var (
		found  bool
		result codec.RecordPosition
		ts     uint64
		abort  error
	)

	s.tree.DescendLessOrEqual(entry{key: pivot}, func(e entry) bool {
		if !bytes.HasPrefix(e.key, prefix) {
			return false
		}
		if len(e.key) != len(prefix)+8 {
			// A longer key sharing this prefix (e.g. "ka" while searching
			// "k") sorts above this prefix's own versioned keys; skip it
			// and keep descending instead of halting the scan early.
			return true
		}

		candidateTS := binary.BigEndian.Uint64(e.key[len(prefix):])
		if isVisible(candidateTS) {
			found = true
			result = e.pos
			ts = candidateTS
			return false
		}

		if mode == SearchWrite {
			abort = fmt.Errorf("%w: newer version of key not yet visible", ignerrors.ErrTxnConflict)
			return false
		}

		return true
	})

	if abort != nil {
		return codec.RecordPosition{}, 0, abort
	}
	if !found {
		return codec.RecordPosition{}, 0, ignerrors.NewKeyNotFoundError(string(prefix)).WithOperation("TxnPrefixSearch")
	}
	return result, ts, nil
}
