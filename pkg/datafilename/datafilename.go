// Package datafilename turns a data file's numeric id into its on-disk
// filename and back, and names the handful of other reserved filenames the
// storage engine's directory layout depends on.
//
// Earlier revisions of this layout generated segment names as
// `prefix_NNNNN_timestamp.seg` - a scheme that embeds the wall-clock time a
// segment was created, fine for a system that only ever appends new
// segments forward. Recovery here must re-derive the exact same file id
// from the exact same on-disk file on every restart, and a timestamp
// component can never do that (the same id would mint a different name
// each time the process opened it). So the filename carries only the
// 9-digit zero-padded id the on-disk layout requires: `NNNNNNNNN.data`.
package datafilename

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// DataFileSuffix terminates every numbered data file's name.
	DataFileSuffix = ".data"

	// HintFileName is the fast-path index rebuild file a completed merge emits.
	HintFileName = "index.HINT"

	// MergeFinishedFileName names the single-record manifest that commits a
	// merge's adoption on the next open.
	MergeFinishedFileName = "db.MERGE"

	// MergeDirName is the transient side directory merge writes into before
	// atomically re-homing its output.
	MergeDirName = ".merge"

	// LockFileName is the empty file an open engine holds an exclusive OS
	// lock on, for the lifetime of the engine.
	LockFileName = "FILE_LOCK"

	// TxnManifestName holds the transaction manager's persisted
	// (active_txn_map, current_ts) snapshot.
	TxnManifestName = ".TXN"
)

// idWidth is the zero-padded digit count in a data file's name.
const idWidth = 9

// DataFileName formats the on-disk name for data file id.
func DataFileName(id uint32) string {
	return fmt.Sprintf("%0*d%s", idWidth, id, DataFileSuffix)
}

// DataFilePath joins dir with the formatted name for data file id.
func DataFilePath(dir string, id uint32) string {
	return filepath.Join(dir, DataFileName(id))
}

// ParseDataFileID extracts the numeric id from a data file's base name. It
// returns false if name doesn't look like a data file at all.
func ParseDataFileID(name string) (uint32, bool) {
	if !strings.HasSuffix(name, DataFileSuffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(name, DataFileSuffix)
	if len(digits) == 0 {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// ListDataFileIDs scans dir for data files and returns their ids, sorted
// ascending. A missing directory is reported as an empty list, not an error.
func ListDataFileIDs(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]uint32, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseDataFileID(e.Name()); ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return ids, nil
}
