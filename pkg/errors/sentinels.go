package errors

import stdErrors "errors"

// Sentinel errors for conditions callers only ever need to compare against
// with errors.Is rather than extract structured context from.
var (
	// ErrInUse is returned by Open when the data directory's lock file is
	// already held by another process.
	ErrInUse = stdErrors.New("ignitedb: data directory already in use")

	// ErrCorrupt is returned when a record's CRC fails to verify or its
	// length prefix is malformed.
	ErrCorrupt = stdErrors.New("ignitedb: corrupt record")

	// ErrNotFound is returned by Get (and by transactional reads) when a key
	// has no visible value.
	ErrNotFound = stdErrors.New("ignitedb: key not found")

	// ErrBatchTooLarge is returned by Batch.Commit when the pending entry
	// count exceeds the batch's configured maximum.
	ErrBatchTooLarge = stdErrors.New("ignitedb: batch exceeds max size")

	// ErrBusy is returned by Merge when another merge is already running.
	ErrBusy = stdErrors.New("ignitedb: merge already in progress")

	// ErrTxnConflict is returned by a transaction's write path when it
	// observes an incompatible concurrent version of the key.
	ErrTxnConflict = stdErrors.New("ignitedb: transaction conflict")

	// ErrEmptyKey is returned by every read/write path when the caller
	// supplies a zero-length key.
	ErrEmptyKey = stdErrors.New("ignitedb: key must not be empty")
)
