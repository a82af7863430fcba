package storage

import (
	"fmt"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/datafile"
	"github.com/iamNilotpal/ignitedb/internal/index"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// TxnSearchMode re-exports the index package's search-mode type so callers
// outside internal/index (the transaction layer) don't need to import it
// directly just to name SearchRead/SearchWrite.
type TxnSearchMode = index.SearchMode

const (
	TxnSearchRead  = index.SearchRead
	TxnSearchWrite = index.SearchWrite
)

// checkKey rejects the empty key every point operation refuses to store.
func checkKey(key []byte) error {
	if len(key) == 0 {
		return ignerrors.ErrEmptyKey
	}
	return nil
}

// Put writes key/value as a new record and updates the index to point at
// it, charging any prior position's size to the reclaimable counter.
func (s *Storage) Put(key, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	rec := codec.NewNormalRecord(key, value)
	pos, err := s.AppendRecord(rec)
	if err != nil {
		return err
	}

	if prev, had := s.index.Put(key, pos); had {
		s.reclaimable.Add(uint64(prev.Size))
	}
	return nil
}

// Get returns the current value for key, or ErrNotFound if it has none (or
// has been deleted).
func (s *Storage) Get(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	pos, ok := s.index.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ignerrors.ErrNotFound, key)
	}

	rec, err := s.ReadAt(pos)
	if err != nil {
		return nil, err
	}
	if rec.Type == codec.RecordDeleted {
		return nil, fmt.Errorf("%w: %s", ignerrors.ErrNotFound, key)
	}

	value := make([]byte, len(rec.Value))
	copy(value, rec.Value)
	return value, nil
}

// Delete appends a tombstone for key and removes it from the index. It is a
// no-op, not an error, if key does not currently exist.
func (s *Storage) Delete(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if !s.index.Exists(key) {
		return nil
	}

	rec := codec.NewDeletedRecord(key)
	if _, err := s.AppendRecord(rec); err != nil {
		return err
	}

	prev, err := s.index.Delete(key)
	if err != nil {
		return err
	}
	s.reclaimable.Add(uint64(prev.Size))
	return nil
}

// Exists reports whether key currently has a live entry.
func (s *Storage) Exists(key []byte) bool {
	return s.index.Exists(key)
}

// AppendRecord writes rec to the active file, rotating to a new active file
// first if rec would overflow the configured max file size. It does not
// touch the index - callers needing index updates do that themselves, since
// batch and transaction commits must control exactly when the index
// reflects a write.
func (s *Storage) AppendRecord(rec *codec.Record) (codec.RecordPosition, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if s.activeFile.WriteOffset+int64(rec.EncodedLen()) > s.opts.MaxFileSize {
		if err := s.activeFile.Sync(); err != nil {
			return codec.RecordPosition{}, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "sync active file before rotation")
		}

		prevID := s.activeFile.ID
		next, err := datafile.Open(s.opts.DataDir, prevID+1)
		if err != nil {
			return codec.RecordPosition{}, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "open rotated data file").WithSegmentID(int(prevID + 1))
		}

		s.archivedFiles[prevID] = s.activeFile
		s.activeFile = next
	}

	offset, size, err := s.activeFile.Append(rec)
	if err != nil {
		return codec.RecordPosition{}, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "append record").WithSegmentID(int(s.activeFile.ID)).WithOffset(int(offset))
	}

	s.bytesWritten.Add(uint64(size))

	if s.opts.WriteSync {
		if err := s.activeFile.Sync(); err != nil {
			return codec.RecordPosition{}, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "sync after append")
		}
	}

	return codec.RecordPosition{FileID: s.activeFile.ID, Offset: uint64(offset), Size: size}, nil
}

// ReadAt reads and decodes the record at pos, whether it lives in the
// active file or an archived one.
func (s *Storage) ReadAt(pos codec.RecordPosition) (*codec.Record, error) {
	s.fileMu.RLock()
	defer s.fileMu.RUnlock()

	var f *datafile.DataFile
	if pos.FileID == s.activeFile.ID {
		f = s.activeFile
	} else {
		var ok bool
		f, ok = s.archivedFiles[pos.FileID]
		if !ok {
			return nil, fmt.Errorf("%w: data file %d not open", ignerrors.ErrCorrupt, pos.FileID)
		}
	}

	return f.ReadWithSize(int64(pos.Offset), pos.Size)
}

// IndexPut inserts key's position directly into the index, bypassing the
// append path. Used by the batch-commit and transaction-write paths, which
// already hold a freshly appended record's exact position.
func (s *Storage) IndexPut(key []byte, pos codec.RecordPosition) (codec.RecordPosition, bool) {
	return s.index.Put(key, pos)
}

// IndexDelete removes key from the index directly.
func (s *Storage) IndexDelete(key []byte) (codec.RecordPosition, error) {
	return s.index.Delete(key)
}

// IndexGet returns key's current position, if any.
func (s *Storage) IndexGet(key []byte) (codec.RecordPosition, bool) {
	return s.index.Get(key)
}

// ChargeReclaimable adds size bytes to the reclaimable-space counter.
func (s *Storage) ChargeReclaimable(size uint32) {
	s.reclaimable.Add(uint64(size))
}

// NextBatchSeq returns the next monotonically increasing batch sequence
// number.
func (s *Storage) NextBatchSeq() uint64 {
	return s.batchSeq.Add(1)
}

// LockBatch acquires the single global batch-commit lock, serializing
// concurrent batch commits against each other.
func (s *Storage) LockBatch() {
	s.batchMu.Lock()
}

// UnlockBatch releases the batch-commit lock.
func (s *Storage) UnlockBatch() {
	s.batchMu.Unlock()
}

// PrefixSearch delegates to the index's transaction-aware prefix scan.
func (s *Storage) PrefixSearch(prefix []byte, mode TxnSearchMode, isVisible func(ts uint64) bool) (codec.RecordPosition, uint64, error) {
	return s.index.TxnPrefixSearch(prefix, mode, isVisible)
}
