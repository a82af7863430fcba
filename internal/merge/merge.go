// Package merge implements offline compaction: rewriting only the live
// records out of every archived data file into a fresh side directory,
// alongside a hint file recording where each survivor landed. It never
// imports internal/storage - callers provide the handful of capabilities it
// needs through the Dependencies interface, which internal/storage.Storage
// satisfies directly, avoiding an import cycle between the two packages.
package merge

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/datafile"
	"github.com/iamNilotpal/ignitedb/pkg/datafilename"
	"go.uber.org/zap"
)

// Dependencies is what Run needs from the engine holding the files being
// compacted.
type Dependencies interface {
	// DBPath returns the engine's data directory.
	DBPath() string
	// MaxFileSize is the rotation threshold the merge output obeys too.
	MaxFileSize() int64
	// Logger is the engine's structured logger.
	Logger() *zap.SugaredLogger
	// SnapshotAndRotate syncs and archives the current active file, opens a
	// fresh one in its place, and returns every archived file's id - the
	// full set of files merge must scan.
	SnapshotAndRotate() ([]uint32, error)
	// OpenArchivedForRead returns a read handle to archived file id.
	OpenArchivedForRead(id uint32) (*datafile.DataFile, error)
	// CurrentPosition reports key's current index entry, if any.
	CurrentPosition(key []byte) (codec.RecordPosition, bool)
}

// Run performs one full merge pass: it snapshots the files to compact,
// rewrites every still-live record into mergeDir, emits a hint file mapping
// each survivor's key to its new position, and finally writes the manifest
// record committing the result. Apart from the fresh active file that
// SnapshotAndRotate opens, Run writes only into the side directory; the
// main directory's existing data files stay as they are until the caller's
// next Open adopts this merge via AdoptCompletedMerge.
func Run(deps Dependencies) error {
	dbPath := deps.DBPath()
	mergeDir := filepath.Join(dbPath, datafilename.MergeDirName)
	log := deps.Logger()

	if err := os.RemoveAll(mergeDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("merge: clear stale merge directory: %w", err)
	}
	if err := os.MkdirAll(mergeDir, 0755); err != nil {
		return fmt.Errorf("merge: create merge directory: %w", err)
	}

	fileIDs, err := deps.SnapshotAndRotate()
	if err != nil {
		return fmt.Errorf("merge: snapshot active file: %w", err)
	}
	sort.Slice(fileIDs, func(i, j int) bool { return fileIDs[i] < fileIDs[j] })

	hint, err := datafile.OpenHintFile(mergeDir)
	if err != nil {
		return fmt.Errorf("merge: open hint file: %w", err)
	}

	out, err := newOutputWriter(mergeDir, deps.MaxFileSize())
	if err != nil {
		return fmt.Errorf("merge: open merge output: %w", err)
	}

	var maxFileID uint32
	var rewritten, skipped int

	for _, id := range fileIDs {
		src, err := deps.OpenArchivedForRead(id)
		if err != nil {
			return fmt.Errorf("merge: open archived file %d: %w", id, err)
		}
		if id > maxFileID {
			maxFileID = id
		}

		var offset int64
		for {
			rec, size, err := src.ReadAt(offset)
			if err != nil {
				break
			}

			if rec.Batch.Tag == codec.TagFinish {
				offset += int64(size)
				continue
			}

			if pos, ok := deps.CurrentPosition(rec.Key); ok && pos.FileID == id && pos.Offset == uint64(offset) {
				rec.Batch = codec.Disabled()
				mergedPos, err := out.append(rec)
				if err != nil {
					return fmt.Errorf("merge: rewrite live record: %w", err)
				}

				hintRec := codec.NewNormalRecord(rec.Key, mergedPos.Encode())
				if _, _, err := hint.Append(hintRec); err != nil {
					return fmt.Errorf("merge: append hint record: %w", err)
				}
				rewritten++
			} else {
				skipped++
			}

			offset += int64(size)
		}
	}

	if err := hint.Sync(); err != nil {
		return fmt.Errorf("merge: sync hint file: %w", err)
	}
	if err := hint.Close(); err != nil {
		return fmt.Errorf("merge: close hint file: %w", err)
	}
	if err := out.sync(); err != nil {
		return fmt.Errorf("merge: sync merge output: %w", err)
	}
	if err := out.close(); err != nil {
		return fmt.Errorf("merge: close merge output: %w", err)
	}

	nextUnmergedFileID := maxFileID + 1
	manifest, err := datafile.OpenMergeManifestFile(mergeDir)
	if err != nil {
		return fmt.Errorf("merge: open manifest file: %w", err)
	}
	if _, _, err := manifest.Append(codec.NewMergeFinishedRecord(nextUnmergedFileID)); err != nil {
		return fmt.Errorf("merge: append manifest record: %w", err)
	}
	if err := manifest.Sync(); err != nil {
		return fmt.Errorf("merge: sync manifest file: %w", err)
	}
	if err := manifest.Close(); err != nil {
		return fmt.Errorf("merge: close manifest file: %w", err)
	}

	log.Infow("merge pass complete",
		"filesScanned", len(fileIDs), "recordsRewritten", rewritten, "recordsSkipped", skipped,
		"nextUnmergedFileID", nextUnmergedFileID,
	)
	return nil
}

// outputWriter rotates merge output across files the same way the live
// engine rotates its active file, keyed by the same MaxFileSize. It keeps
// every file it has opened (not just the current active one) so close can
// release them all once the merge pass finishes.
type outputWriter struct {
	dir         string
	maxFileSize int64
	active      *datafile.DataFile
	opened      []*datafile.DataFile
}

func newOutputWriter(dir string, maxFileSize int64) (*outputWriter, error) {
	active, err := datafile.Open(dir, 0)
	if err != nil {
		return nil, err
	}
	return &outputWriter{dir: dir, maxFileSize: maxFileSize, active: active, opened: []*datafile.DataFile{active}}, nil
}

func (w *outputWriter) append(rec *codec.Record) (codec.RecordPosition, error) {
	if w.active.WriteOffset+int64(rec.EncodedLen()) > w.maxFileSize {
		if err := w.active.Sync(); err != nil {
			return codec.RecordPosition{}, err
		}
		next, err := datafile.Open(w.dir, w.active.ID+1)
		if err != nil {
			return codec.RecordPosition{}, err
		}
		w.active = next
		w.opened = append(w.opened, next)
	}

	offset, size, err := w.active.Append(rec)
	if err != nil {
		return codec.RecordPosition{}, err
	}
	return codec.RecordPosition{FileID: w.active.ID, Offset: uint64(offset), Size: size}, nil
}

func (w *outputWriter) sync() error {
	return w.active.Sync()
}

// close releases every file outputWriter has opened, including files
// superseded by rotation.
func (w *outputWriter) close() error {
	var firstErr error
	for _, f := range w.opened {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AdoptCompletedMerge adopts a previously completed merge pass, if one is
// sitting in dbPath's side directory: it deletes every data file the merge
// superseded, relocates the merge's output and hint file into dbPath, and
// removes the side directory. An incomplete merge directory (no manifest
// record, meaning the process died mid-pass) is discarded instead. A dbPath
// with no side directory at all is a no-op. Called once, at the start of
// every Open, before the engine lists its data files.
func AdoptCompletedMerge(dbPath string, log *zap.SugaredLogger) error {
	mergeDir := filepath.Join(dbPath, datafilename.MergeDirName)

	info, err := os.Stat(mergeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("merge: stat merge directory: %w", err)
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(mergeDir)
	if err != nil {
		return fmt.Errorf("merge: read merge directory: %w", err)
	}

	var finished bool
	relocate := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if name == datafilename.MergeFinishedFileName {
			finished = true
		}
		if strings.HasSuffix(name, datafilename.DataFileSuffix) ||
			name == datafilename.MergeFinishedFileName || name == datafilename.HintFileName {
			relocate = append(relocate, name)
		}
	}

	if !finished {
		log.Warnw("discarding incomplete merge directory", "path", mergeDir)
		return os.RemoveAll(mergeDir)
	}

	manifest, err := datafile.OpenMergeManifestFile(mergeDir)
	if err != nil {
		return fmt.Errorf("merge: open manifest file: %w", err)
	}
	rec, _, err := manifest.ReadAt(0)
	if err != nil {
		return fmt.Errorf("merge: read manifest record: %w", err)
	}
	if err := manifest.Close(); err != nil {
		return fmt.Errorf("merge: close manifest file: %w", err)
	}
	if len(rec.Value) != 4 {
		return fmt.Errorf("merge: manifest record has malformed value")
	}
	nextUnmergedFileID := binary.BigEndian.Uint32(rec.Value)

	for id := uint32(0); id < nextUnmergedFileID; id++ {
		path := datafilename.DataFilePath(dbPath, id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("merge: remove superseded data file %d: %w", id, err)
		}
	}

	for _, name := range relocate {
		src := filepath.Join(mergeDir, name)
		dst := filepath.Join(dbPath, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("merge: relocate %s: %w", name, err)
		}
	}

	log.Infow("adopted completed merge", "nextUnmergedFileID", nextUnmergedFileID, "filesRelocated", len(relocate))
	return os.RemoveAll(mergeDir)
}
