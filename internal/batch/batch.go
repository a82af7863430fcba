// Package batch implements atomic multi-key writes: a set of pending
// put/delete operations buffered in memory and committed as a single unit:
// either every operation in the batch becomes visible, or (on a crash
// before Commit finishes) none of them do.
package batch

import (
	"fmt"
	"sync"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

// Storage is what a Batch needs from the engine it commits into.
type Storage interface {
	AppendRecord(rec *codec.Record) (codec.RecordPosition, error)
	IndexPut(key []byte, pos codec.RecordPosition) (codec.RecordPosition, bool)
	IndexDelete(key []byte) (codec.RecordPosition, error)
	ChargeReclaimable(size uint32)
	NextBatchSeq() uint64
	LockBatch()
	UnlockBatch()
	Sync() error
	Exists(key []byte) bool
}

// Batch accumulates pending writes under last-write-wins semantics and
// commits them atomically. Every method serializes on the Batch's own
// mutex, so concurrent calls on one Batch do not interleave.
type Batch struct {
	storage Storage
	opts    options.BatchOptions

	mu      sync.Mutex
	pending map[string]*codec.Record
}

// New constructs a Batch writing into storage under opts.
func New(storage Storage, opts options.BatchOptions) (*Batch, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Batch{storage: storage, opts: opts, pending: make(map[string]*codec.Record)}, nil
}

// Put stages a key/value write. It does not touch the engine until Commit.
func (b *Batch) Put(key, value []byte) error {
	if len(key) == 0 {
		return ignerrors.ErrEmptyKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[string(key)] = codec.NewNormalRecord(append([]byte(nil), key...), append([]byte(nil), value...))
	return nil
}

// Delete stages a tombstone for key. As a special case, if key has never
// been persisted in the engine (no visible index entry) and this batch is
// currently holding a buffered Put for it, the buffered write is simply
// dropped instead of staging a tombstone - deleting a key that was only
// ever written-then-deleted within the same uncommitted batch is a no-op.
func (b *Batch) Delete(key []byte) error {
	if len(key) == 0 {
		return ignerrors.ErrEmptyKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, buffered := b.pending[string(key)]
	if buffered && !b.storage.Exists(key) {
		delete(b.pending, string(key))
		return nil
	}

	b.pending[string(key)] = codec.NewDeletedRecord(append([]byte(nil), key...))
	return nil
}

// Commit appends every pending record tagged with a fresh batch sequence,
// followed by a Finish sentinel, then applies the corresponding index
// updates. A process crash between the last pending record and the Finish
// sentinel leaves the batch entirely invisible on recovery - the index is
// only ever updated after the sentinel has been appended (and, when
// WriteSync is set, synced to disk).
func (b *Batch) Commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return nil
	}
	if len(b.pending) > b.opts.MaxBatchSize {
		return fmt.Errorf("%w: batch holds %d entries, max is %d", ignerrors.ErrBatchTooLarge, len(b.pending), b.opts.MaxBatchSize)
	}

	b.storage.LockBatch()
	defer b.storage.UnlockBatch()

	seq := b.storage.NextBatchSeq()

	type committed struct {
		rec *codec.Record
		pos codec.RecordPosition
	}
	applied := make([]committed, 0, len(b.pending))

	for _, rec := range b.pending {
		rec.Batch = codec.Enabled(seq)
		pos, err := b.storage.AppendRecord(rec)
		if err != nil {
			return fmt.Errorf("batch: append pending record: %w", err)
		}
		applied = append(applied, committed{rec: rec, pos: pos})
	}

	finish := codec.NewBatchFinishedRecord(seq)
	if _, err := b.storage.AppendRecord(finish); err != nil {
		return fmt.Errorf("batch: append finish sentinel: %w", err)
	}

	if b.opts.WriteSync {
		if err := b.storage.Sync(); err != nil {
			return fmt.Errorf("batch: sync after commit: %w", err)
		}
	}

	for _, c := range applied {
		switch c.rec.Type {
		case codec.RecordDeleted:
			if prev, err := b.storage.IndexDelete(c.rec.Key); err == nil {
				b.storage.ChargeReclaimable(prev.Size)
			}
		default:
			if prev, had := b.storage.IndexPut(c.rec.Key, c.pos); had {
				b.storage.ChargeReclaimable(prev.Size)
			}
		}
	}

	b.pending = make(map[string]*codec.Record)
	return nil
}
