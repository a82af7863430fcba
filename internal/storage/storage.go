// Package storage implements ignitedb's single-node embedded storage
// engine: an append-only active data file backed by a fully in-memory,
// sharded index, offline merge/compaction, atomic batch commits, and
// snapshot-isolated transactions layered on top. It is the component every
// other package in this module - batch, merge, txn, and the pkg/ignite
// façade - is built around.
package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/iamNilotpal/ignitedb/internal/datafile"
	"github.com/iamNilotpal/ignitedb/internal/index"
	"github.com/iamNilotpal/ignitedb/internal/merge"
	"github.com/iamNilotpal/ignitedb/pkg/datafilename"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/iamNilotpal/ignitedb/pkg/filesys"
	"github.com/iamNilotpal/ignitedb/pkg/options"
	"go.uber.org/zap"
)

// Storage owns every on-disk and in-memory structure backing a single open
// data directory: the active and archived data files, the sharded index,
// the exclusive directory lock, and the counters governing batch sequencing
// and merge eligibility.
type Storage struct {
	opts options.Options
	log  *zap.SugaredLogger

	lock *flock.Flock

	fileMu        sync.RWMutex
	activeFile    *datafile.DataFile
	archivedFiles map[uint32]*datafile.DataFile

	index *index.Index

	batchMu  sync.Mutex
	batchSeq atomic.Uint64

	mergeMu sync.Mutex

	bytesWritten atomic.Uint64
	reclaimable  atomic.Uint64

	closed atomic.Bool
}

// Config bundles the dependencies Open needs.
type Config struct {
	Options options.Options
	Logger  *zap.SugaredLogger
}

// Open opens (creating if absent) the data directory named by cfg.Options,
// adopts any previously completed but unadopted merge, and rebuilds the
// in-memory index from the hint file (if present) and the data files'
// tails. It takes an exclusive OS-level lock on the directory for as long
// as the returned Storage stays open.
func Open(cfg Config) (*Storage, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("storage: logger is required")
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	dbPath := cfg.Options.DataDir

	if err := filesys.CreateDir(dbPath, 0755, true); err != nil {
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "create data directory").WithPath(dbPath)
	}

	lockPath := filepath.Join(dbPath, datafilename.LockFileName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "acquire directory lock").WithPath(lockPath)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ignerrors.ErrInUse, dbPath)
	}

	s := &Storage{opts: cfg.Options, log: log, lock: lock, archivedFiles: make(map[uint32]*datafile.DataFile)}

	if err := merge.AdoptCompletedMerge(dbPath, log); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("storage: adopt completed merge: %w", err)
	}

	ids, err := datafilename.ListDataFileIDs(dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "list data files").WithPath(dbPath)
	}

	var activeID uint32
	var archivedIDs []uint32
	if len(ids) == 0 {
		activeID = 0
	} else {
		activeID = ids[len(ids)-1]
		archivedIDs = ids[:len(ids)-1]
	}

	for _, id := range archivedIDs {
		f, err := datafile.Open(dbPath, id)
		if err != nil {
			s.closeFilesOnError()
			_ = lock.Unlock()
			return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "open archived data file").WithPath(dbPath).WithSegmentID(int(id))
		}
		s.archivedFiles[id] = f
	}

	active, err := datafile.Open(dbPath, activeID)
	if err != nil {
		s.closeFilesOnError()
		_ = lock.Unlock()
		return nil, ignerrors.NewStorageError(err, ignerrors.ErrorCodeIO, "open active data file").WithPath(dbPath).WithSegmentID(int(activeID))
	}
	s.activeFile = active

	s.index = index.New(cfg.Options.IndexNum)

	if err := s.rebuildIndex(dbPath, archivedIDs, activeID); err != nil {
		s.closeFilesOnError()
		_ = lock.Unlock()
		return nil, fmt.Errorf("storage: rebuild index: %w", err)
	}

	log.Infow("storage opened",
		"dbPath", dbPath, "activeFileID", activeID, "archivedFiles", len(archivedIDs), "indexShards", cfg.Options.IndexNum,
	)
	return s, nil
}

func (s *Storage) closeFilesOnError() {
	if s.activeFile != nil {
		_ = s.activeFile.Close()
	}
	for _, f := range s.archivedFiles {
		_ = f.Close()
	}
}

// Close syncs the active file, releases every open file handle, and
// releases the directory lock. Close is idempotent.
func (s *Storage) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.activeFile.Sync())
	record(s.activeFile.Close())
	for _, f := range s.archivedFiles {
		record(f.Close())
	}
	record(s.lock.Unlock())

	s.log.Infow("storage closed")
	return firstErr
}

// Sync flushes the active data file to stable storage.
func (s *Storage) Sync() error {
	s.fileMu.RLock()
	defer s.fileMu.RUnlock()
	return s.activeFile.Sync()
}

// IsEmpty reports whether the index holds no keys at all.
func (s *Storage) IsEmpty() bool {
	return s.index.IsEmpty()
}

// Options returns the engine's configuration.
func (s *Storage) Options() options.Options {
	return s.opts
}

// DBPath returns the directory this engine was opened against.
func (s *Storage) DBPath() string {
	return s.opts.DataDir
}

// MaxFileSize returns the configured active-file rotation threshold.
func (s *Storage) MaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// Logger returns the engine's structured logger.
func (s *Storage) Logger() *zap.SugaredLogger {
	return s.log
}

// Stat summarizes the engine's current state.
type Stat struct {
	DataFileCount   int
	KeyCount        int
	ReclaimableSize uint64
	DiskUsed        uint64
}

// Stat reports the engine's current file count, key count, and space usage.
func (s *Storage) Stat() Stat {
	s.fileMu.RLock()
	fileCount := len(s.archivedFiles) + 1
	s.fileMu.RUnlock()

	return Stat{
		DataFileCount:   fileCount,
		KeyCount:        s.index.Len(),
		ReclaimableSize: s.reclaimable.Load(),
		DiskUsed:        s.bytesWritten.Load(),
	}
}
