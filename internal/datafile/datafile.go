// Package datafile wraps a single on-disk log file - numbered data file,
// hint file, or merge manifest - tracking its id and the monotonic write
// offset new records get appended at. It is a thin layer over fileio.File:
// everything it knows about bytes, it learns from internal/codec.
package datafile

import (
	"encoding/binary"
	"fmt"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/fileio"
	"github.com/iamNilotpal/ignitedb/pkg/datafilename"
)

// DataFile is a numbered (or reserved-name) append-only log file. The write
// offset is a single-writer field: only the goroutine appending to this
// file's active role may advance it. Readers of an archived file never
// mutate WriteOffset.
type DataFile struct {
	ID          uint32
	WriteOffset int64
	io          fileio.File
}

// Open opens (creating if absent) the numbered data file with the given id
// inside dir.
func Open(dir string, id uint32) (*DataFile, error) {
	f, err := fileio.Open(datafilename.DataFilePath(dir, id))
	if err != nil {
		return nil, err
	}
	return &DataFile{ID: id, io: f}, nil
}

// OpenHintFile opens the hint file inside dir.
func OpenHintFile(dir string) (*DataFile, error) {
	f, err := fileio.Open(dir + "/" + datafilename.HintFileName)
	if err != nil {
		return nil, err
	}
	return &DataFile{io: f}, nil
}

// OpenMergeManifestFile opens the merge-finished manifest file inside dir.
func OpenMergeManifestFile(dir string) (*DataFile, error) {
	f, err := fileio.Open(dir + "/" + datafilename.MergeFinishedFileName)
	if err != nil {
		return nil, err
	}
	return &DataFile{io: f}, nil
}

// Append encodes rec, writes it at the file's current write offset, and
// advances the offset by the number of bytes written. It returns the offset
// the record was written at and its encoded size.
func (df *DataFile) Append(rec *codec.Record) (offset int64, size uint32, err error) {
	encoded := rec.Encode()
	n, err := df.io.WriteAt(encoded, df.WriteOffset)
	if err != nil {
		return 0, 0, err
	}
	if n != len(encoded) {
		return 0, 0, fmt.Errorf("short write: wrote %d of %d bytes", n, len(encoded))
	}

	offset = df.WriteOffset
	df.WriteOffset += int64(n)
	return offset, uint32(n), nil
}

// ReadAt reads the 8-byte length prefix at offset to learn the record's
// total size, then reads and decodes the full record.
func (df *DataFile) ReadAt(offset int64) (*codec.Record, uint32, error) {
	var lenBuf [8]byte
	if _, err := df.io.ReadAt(lenBuf[:], offset); err != nil {
		return nil, 0, err
	}

	total := binary.BigEndian.Uint64(lenBuf[:])
	if total == 0 {
		return nil, 0, fmt.Errorf("read record with size == 0 at offset %d", offset)
	}

	buf := make([]byte, total)
	if _, err := df.io.ReadAt(buf, offset); err != nil {
		return nil, 0, err
	}

	rec, err := codec.Decode(buf)
	if err != nil {
		return nil, 0, err
	}
	return rec, uint32(total), nil
}

// ReadWithSize reads exactly size bytes at offset and decodes them - used
// when the caller already knows the record's size from an index entry.
func (df *DataFile) ReadWithSize(offset int64, size uint32) (*codec.Record, error) {
	buf := make([]byte, size)
	if _, err := df.io.ReadAt(buf, offset); err != nil {
		return nil, err
	}
	return codec.Decode(buf)
}

// PadTo writes zero bytes from the current write offset up to target.
func (df *DataFile) PadTo(target int64) error {
	if target <= df.WriteOffset {
		return nil
	}
	pad := make([]byte, target-df.WriteOffset)
	if _, err := df.io.WriteAt(pad, df.WriteOffset); err != nil {
		return err
	}
	df.WriteOffset = target
	return nil
}

// Sync flushes the file to stable storage.
func (df *DataFile) Sync() error {
	return df.io.Sync()
}

// Close releases the file's underlying descriptor.
func (df *DataFile) Close() error {
	return df.io.Close()
}
