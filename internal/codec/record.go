// Package codec implements the on-disk record format: a length-prefixed,
// CRC-guarded envelope around a key/value pair plus the batch-state tag
// that the storage engine's recovery path uses to group atomic writes.
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// RecordType classifies what a record represents on disk.
type RecordType uint8

const (
	// RecordDeleted marks a tombstone: the key is logically gone as of
	// this record.
	RecordDeleted RecordType = 0
	// RecordNormal marks a live key/value write.
	RecordNormal RecordType = 1
)

// BatchTag classifies a record's participation in an atomic batch commit.
type BatchTag uint8

const (
	// TagEnable marks a record as belonging to the in-flight batch
	// identified by Seq; it is invisible until a matching TagFinish lands.
	TagEnable BatchTag = 0
	// TagFinish is the sentinel record closing out a batch; its presence
	// is what makes every Enable(seq) record in that batch visible.
	TagFinish BatchTag = 1
	// TagDisable marks an ordinary, non-batched record.
	TagDisable BatchTag = 2
)

// BatchState pairs a BatchTag with the sequence it refers to. Seq is
// meaningless (and zero) when Tag is TagDisable.
type BatchState struct {
	Tag BatchTag
	Seq uint64
}

// Disabled returns the batch state for an ordinary, non-batched record.
func Disabled() BatchState { return BatchState{Tag: TagDisable} }

// Enabled returns the batch state marking a record as part of batch seq.
func Enabled(seq uint64) BatchState { return BatchState{Tag: TagEnable, Seq: seq} }

// Finished returns the batch state for the sentinel record closing batch seq.
func Finished(seq uint64) BatchState { return BatchState{Tag: TagFinish, Seq: seq} }

// Reserved keys spelled out as named constants so every callsite that must
// agree on a sentinel key - recovery, merge, batch commit - spells it the
// same way. Mirrors the reserved-key constants the Rust original keeps in
// its utils module rather than scattering the literals inline.
var (
	BatchFinishedKey = []byte("BF")
	MergeFinishedKey = []byte("MF")
)

// Record is a single decoded (or to-be-encoded) log entry.
type Record struct {
	Type  RecordType
	Batch BatchState
	Key   []byte
	Value []byte
}

// NewNormalRecord builds a live key/value write with no batch association.
func NewNormalRecord(key, value []byte) *Record {
	return &Record{Type: RecordNormal, Batch: Disabled(), Key: key, Value: value}
}

// NewDeletedRecord builds a tombstone with no batch association.
func NewDeletedRecord(key []byte) *Record {
	return &Record{Type: RecordDeleted, Batch: Disabled(), Key: key, Value: nil}
}

// NewBatchFinishedRecord builds the sentinel that closes out batch seq.
func NewBatchFinishedRecord(seq uint64) *Record {
	return &Record{Type: RecordNormal, Batch: Finished(seq), Key: BatchFinishedKey, Value: nil}
}

// NewMergeFinishedRecord builds the manifest record naming the first
// data-file id a completed merge did not cover.
func NewMergeFinishedRecord(nextUnmergedFileID uint32) *Record {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, nextUnmergedFileID)
	return &Record{Type: RecordNormal, Batch: Disabled(), Key: MergeFinishedKey, Value: value}
}

const (
	lengthPrefixSize = 8
	recordTypeSize   = 1
	batchTagSize     = 1
	batchSeqSize     = 8
	lengthFieldSize  = 4
	crcSize          = 4
)

// EncodedLen returns the total number of bytes Encode will produce,
// computed without touching the key or value bytes. The storage engine
// uses this to decide, before doing any I/O, whether a write needs rotation.
func (r *Record) EncodedLen() int {
	n := lengthPrefixSize + recordTypeSize + batchTagSize + lengthFieldSize*2 + crcSize
	n += len(r.Key) + len(r.Value)
	if r.Batch.Tag == TagEnable || r.Batch.Tag == TagFinish {
		n += batchSeqSize
	}
	return n
}

// Encode serializes the record into the on-disk layout: an 8-byte total length, a type byte, a batch-tag byte
// (followed by an 8-byte sequence for Enable/Finish), 4-byte key and value
// lengths, the raw key and value, and a trailing big-endian CRC-32 computed
// over everything before it.
func (r *Record) Encode() []byte {
	total := r.EncodedLen()
	buf := make([]byte, total)

	binary.BigEndian.PutUint64(buf[0:8], uint64(total))
	buf[8] = byte(r.Type)

	off := 9
	buf[off] = byte(r.Batch.Tag)
	off++
	if r.Batch.Tag == TagEnable || r.Batch.Tag == TagFinish {
		binary.BigEndian.PutUint64(buf[off:off+8], r.Batch.Seq)
		off += 8
	}

	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(r.Key)))
	off += 4
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(r.Value)))
	off += 4

	off += copy(buf[off:], r.Key)
	off += copy(buf[off:], r.Value)

	crc := crc32.ChecksumIEEE(buf[:off])
	binary.BigEndian.PutUint32(buf[off:off+4], crc)

	return buf
}

// Decode parses a complete encoded record (as returned by Encode) out of buf.
// The returned Record's Key and Value slices alias buf; callers that retain
// the record past the lifetime of buf must copy them.
func Decode(buf []byte) (*Record, error) {
	if len(buf) < lengthPrefixSize+recordTypeSize+batchTagSize+lengthFieldSize*2+crcSize {
		return nil, fmt.Errorf("%w: record shorter than minimum header", ignerrors.ErrCorrupt)
	}

	total := binary.BigEndian.Uint64(buf[0:8])
	if total == 0 {
		return nil, fmt.Errorf("%w: zero-length record", ignerrors.ErrCorrupt)
	}
	if uint64(len(buf)) < total {
		return nil, fmt.Errorf("%w: truncated record", ignerrors.ErrCorrupt)
	}
	buf = buf[:total]

	payload := buf[:len(buf)-crcSize]
	wantCRC := binary.BigEndian.Uint32(buf[len(buf)-crcSize:])
	if gotCRC := crc32.ChecksumIEEE(payload); gotCRC != wantCRC {
		return nil, fmt.Errorf("%w: crc mismatch", ignerrors.ErrCorrupt)
	}

	recType := RecordType(buf[8])
	if recType != RecordDeleted && recType != RecordNormal {
		return nil, fmt.Errorf("%w: unknown record type %d", ignerrors.ErrCorrupt, buf[8])
	}

	off := 9
	tag := BatchTag(buf[off])
	off++

	var state BatchState
	switch tag {
	case TagEnable, TagFinish:
		if len(buf) < off+batchSeqSize {
			return nil, fmt.Errorf("%w: truncated batch sequence", ignerrors.ErrCorrupt)
		}
		seq := binary.BigEndian.Uint64(buf[off : off+8])
		off += 8
		state = BatchState{Tag: tag, Seq: seq}
	case TagDisable:
		state = Disabled()
	default:
		return nil, fmt.Errorf("%w: unknown batch tag %d", ignerrors.ErrCorrupt, byte(tag))
	}

	if len(buf) < off+8 {
		return nil, fmt.Errorf("%w: truncated key/value lengths", ignerrors.ErrCorrupt)
	}
	keyLen := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	valLen := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4

	if uint64(len(buf)) < uint64(off)+uint64(keyLen)+uint64(valLen)+crcSize {
		return nil, fmt.Errorf("%w: truncated key/value payload", ignerrors.ErrCorrupt)
	}

	key := buf[off : off+int(keyLen)]
	off += int(keyLen)
	value := buf[off : off+int(valLen)]

	return &Record{Type: recType, Batch: state, Key: key, Value: value}, nil
}
