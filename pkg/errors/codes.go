package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes represent the fundamental categories of failures that can
// occur across any software system. These codes provide the foundation layer
// of error classification.
const (
	// ErrorCodeIO represents failures in input/output operations across any
	// system boundary. This includes file system operations like reading or
	// writing segment files, network operations when communicating with remote
	// systems, and device I/O when accessing storage hardware.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInvalidInput represents client-side errors where the provided
	// data doesn't meet the system's requirements or constraints. This maps
	// to HTTP 400-series errors and indicates problems with the request itself
	// rather than system failures.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrorCodeInternal represents unexpected system failures that don't fit
	// into other categories. These are the equivalent of HTTP 500 errors and
	// indicate bugs, assertion failures, or other programming errors that
	// shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Storage-specific error codes extend the base error taxonomy to handle the
// unique failure modes that occur in persistent storage systems. These codes
// represent problems that are specific to the storage layer of your key-value
// store, particularly focusing on segment file management and data persistence.
const (
	// ErrorCodeSegmentCorrupted indicates that a segment file's data has been
	// damaged or is in an inconsistent state.
	ErrorCodeSegmentCorrupted ErrorCode = "SEGMENT_CORRUPTED"

	// ErrorCodeHeaderReadFailure occurs when the system cannot read the header
	// portion of a segment file. Headers contain critical metadata about the
	// segment's structure, so header read failures prevent access to the
	// entire segment and all data it contains.
	ErrorCodeHeaderReadFailure ErrorCode = "HEADER_READ_FAILURE"

	// ErrorCodePayloadReadFailure indicates problems reading the actual data
	// content from segment files after successfully reading the header. This
	// represents a more localized failure compared to header problems, as the
	// segment structure is intact but specific data regions are inaccessible.
	ErrorCodePayloadReadFailure ErrorCode = "PAYLOAD_READ_FAILURE"

	// ErrorCodeRecoveryFailed indicates that the storage system's attempt to
	// recover from a previous failure was unsuccessful. This represents a
	// compound failure where both the original problem and the recovery
	// mechanism have failed, creating a more serious operational situation.
	ErrorCodeRecoveryFailed ErrorCode = "STORAGE_RECOVERY_FAILED"

	// ErrorCodePermissionDenied indicates insufficient permissions to access a resource.
	// This is distinct from generic IO errors because it has a specific resolution path:
	// the user needs to adjust file/directory permissions or run with elevated privileges.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeDiskFull indicates that the storage device has run out of space.
	// This requires specific handling like cleanup operations or alerting administrators.
	ErrorCodeDiskFull ErrorCode = "DISK_FULL"

	// ErrorCodeFilesystemReadonly indicates that the filesystem is mounted read-only.
	// This requires administrative intervention to remount the filesystem with write permissions.
	ErrorCodeFilesystemReadonly ErrorCode = "FILESYSTEM_READONLY"
)

// Engine-level error codes cover the failure modes of the storage engine
// itself, as distinct from the lower-level file I/O failures above.
const (
	// ErrorCodeInvalidOption indicates a configuration value the engine
	// cannot open with, such as an empty data directory or a zero max file size.
	ErrorCodeInvalidOption ErrorCode = "INVALID_OPTION"

	// ErrorCodeInUse indicates the data directory's lock file is already
	// held by another process.
	ErrorCodeInUse ErrorCode = "IN_USE"

	// ErrorCodeCorrupt indicates a record failed CRC verification or had
	// a malformed length prefix.
	ErrorCodeCorrupt ErrorCode = "CORRUPT"

	// ErrorCodeNotFound indicates a key has no visible value: either it was
	// never written, or its latest record is a tombstone.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeBatchTooLarge indicates a batch's pending entry count exceeded
	// its configured maximum at commit time.
	ErrorCodeBatchTooLarge ErrorCode = "BATCH_TOO_LARGE"

	// ErrorCodeBusy indicates a merge was requested while another merge was
	// already running.
	ErrorCodeBusy ErrorCode = "BUSY"

	// ErrorCodeTxnConflict indicates a transactional write observed an
	// incompatible concurrent version of the key it was writing.
	ErrorCodeTxnConflict ErrorCode = "TXN_CONFLICT"
)

// Index-specific error codes. The IndexError helpers in index.go use
// ErrorCodeIndexKeyNotFound and ErrorCodeIndexCorrupted.
const (
	// ErrorCodeIndexKeyNotFound indicates a lookup found no entry for the key.
	ErrorCodeIndexKeyNotFound ErrorCode = "INDEX_KEY_NOT_FOUND"

	// ErrorCodeIndexInvalidSegmentID indicates a record position named a data
	// file id the index has no knowledge of.
	ErrorCodeIndexInvalidSegmentID ErrorCode = "INDEX_INVALID_SEGMENT_ID"

	// ErrorCodeIndexTimestampExtraction indicates a filename could not be
	// parsed into its numeric id component.
	ErrorCodeIndexTimestampExtraction ErrorCode = "INDEX_TIMESTAMP_EXTRACTION"

	// ErrorCodeIndexCorrupted indicates the in-memory index structure itself
	// is in an inconsistent state.
	ErrorCodeIndexCorrupted ErrorCode = "INDEX_CORRUPTED"
)
