package storage

import (
	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/datafile"
	"github.com/iamNilotpal/ignitedb/internal/merge"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// Merge runs one offline compaction pass, rewriting every archived file's
// live records into a fresh side directory and committing the result for
// adoption on the engine's next Open. It returns ErrBusy if a merge is
// already running, and is a no-op if the index currently holds no keys.
//
// Storage satisfies merge.Dependencies directly, so no adapter type is
// needed between the two packages.
func (s *Storage) Merge() error {
	if s.index.IsEmpty() {
		return nil
	}
	if !s.mergeMu.TryLock() {
		return ignerrors.ErrBusy
	}
	defer s.mergeMu.Unlock()

	return merge.Run(s)
}

// SnapshotAndRotate implements merge.Dependencies: it syncs and archives
// the current active file, opens a fresh active file in its place, and
// returns the ids of every file now archived - the complete set merge must
// scan.
func (s *Storage) SnapshotAndRotate() ([]uint32, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if err := s.activeFile.Sync(); err != nil {
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "sync active file before merge")
	}

	prevID := s.activeFile.ID
	next, err := datafile.Open(s.opts.DataDir, prevID+1)
	if err != nil {
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "open post-merge active file").WithSegmentID(int(prevID + 1))
	}

	s.archivedFiles[prevID] = s.activeFile
	s.activeFile = next

	ids := make([]uint32, 0, len(s.archivedFiles))
	for id := range s.archivedFiles {
		ids = append(ids, id)
	}
	return ids, nil
}

// OpenArchivedForRead implements merge.Dependencies: it returns a handle to
// archived file id, already open for the engine's own recovery/read paths.
func (s *Storage) OpenArchivedForRead(id uint32) (*datafile.DataFile, error) {
	s.fileMu.RLock()
	defer s.fileMu.RUnlock()

	f, ok := s.archivedFiles[id]
	if !ok {
		return nil, ignerrors.NewStorageError(nil, ignerrors.ErrorCodeNotFound, "archived data file not open").WithSegmentID(int(id))
	}
	return f, nil
}

// CurrentPosition implements merge.Dependencies: it reports key's current
// index entry, used by merge to decide whether a given on-disk record is
// still the live version of its key.
func (s *Storage) CurrentPosition(key []byte) (codec.RecordPosition, bool) {
	return s.index.Get(key)
}
