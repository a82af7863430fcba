package codec

import (
	"encoding/binary"
	"fmt"

	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// RecordPositionLen is the fixed encoded size of a RecordPosition.
const RecordPositionLen = 4 + 8 + 4

// RecordPosition uniquely identifies an on-disk record: which data file it
// lives in, its byte offset within that file, and its full encoded length
// (length prefix and trailing CRC included). It is the index's value type
// and also what a hint-file record's value field holds, encoded.
type RecordPosition struct {
	FileID uint32
	Offset uint64
	Size   uint32
}

// Encode serializes the position as 4+8+4 big-endian bytes.
func (p RecordPosition) Encode() []byte {
	buf := make([]byte, RecordPositionLen)
	binary.BigEndian.PutUint32(buf[0:4], p.FileID)
	binary.BigEndian.PutUint64(buf[4:12], p.Offset)
	binary.BigEndian.PutUint32(buf[12:16], p.Size)
	return buf
}

// DecodeRecordPosition parses a RecordPosition from exactly RecordPositionLen bytes.
func DecodeRecordPosition(buf []byte) (RecordPosition, error) {
	if len(buf) != RecordPositionLen {
		return RecordPosition{}, fmt.Errorf("%w: record position must be %d bytes, got %d", ignerrors.ErrCorrupt, RecordPositionLen, len(buf))
	}
	return RecordPosition{
		FileID: binary.BigEndian.Uint32(buf[0:4]),
		Offset: binary.BigEndian.Uint64(buf[4:12]),
		Size:   binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}
