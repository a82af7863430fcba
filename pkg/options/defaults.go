package options

import ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"

// DefaultDataDir is the directory Ignite stores its files in when none is
// configured.
const DefaultDataDir = "/var/lib/ignitedb"

// DefaultMaxFileSize is the byte threshold the active data file rotates at
// when none is configured. Matches the upstream engine this model was
// distilled from.
const DefaultMaxFileSize int64 = 256 * 1024

// DefaultIndexNum is the number of index shards constructed when none is
// configured.
const DefaultIndexNum = 8

// DefaultMaxBatchSize is the pending-entry cap a batch enforces when none is
// configured.
const DefaultMaxBatchSize = 1 << 12

// NewDefaultOptions returns the engine's default configuration.
func NewDefaultOptions() Options {
	return Options{
		DataDir:     DefaultDataDir,
		MaxFileSize: DefaultMaxFileSize,
		WriteSync:   false,
		IndexNum:    DefaultIndexNum,
	}
}

// NewDefaultBatchOptions returns a batch writer's default configuration.
func NewDefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxBatchSize: DefaultMaxBatchSize,
		WriteSync:    true,
	}
}

func newInvalidOptionError(field, issue string) error {
	return ignerrors.NewValidationError(
		nil,
		ignerrors.ErrorCodeInvalidOption,
		"invalid engine option",
	).WithField(field).WithRule(issue)
}

// Validate checks that o is usable to open an engine with, returning a
// ValidationError describing the first problem found.
func (o Options) Validate() error {
	if o.DataDir == "" {
		return newInvalidOptionError("dataDir", "must not be empty")
	}
	if o.MaxFileSize <= 0 {
		return newInvalidOptionError("maxFileSize", "must be positive")
	}
	if o.IndexNum <= 0 {
		return newInvalidOptionError("indexNum", "must be positive")
	}
	return nil
}

// Validate checks that o is usable to open a batch writer with.
func (o BatchOptions) Validate() error {
	if o.MaxBatchSize <= 0 {
		return newInvalidOptionError("maxBatchSize", "must be positive")
	}
	return nil
}
