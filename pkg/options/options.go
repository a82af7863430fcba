// Package options provides data structures and functions for configuring
// the Ignite database. It defines the parameters that control where the
// engine stores its files, how its active data file rotates, when writes
// fsync, and how its index is sharded - plus the separate option set a
// batch writer is opened with.
package options

import "strings"

// Options configures a storage engine's Open call.
type Options struct {
	// DataDir is the directory the engine stores its data files, hint
	// file, merge manifest, and lock file in.
	//
	// Default: "/var/lib/ignitedb"
	DataDir string `json:"dataDir"`

	// MaxFileSize is the byte threshold at which the active data file
	// rotates to a new file.
	//
	// Default: 256KiB
	MaxFileSize int64 `json:"maxFileSize"`

	// WriteSync controls whether each put/delete fsyncs the active file
	// before returning.
	//
	// Default: false
	WriteSync bool `json:"writeSync"`

	// IndexNum is the number of independent index shards the engine
	// constructs at open. Fixed for the engine's lifetime.
	//
	// Default: 8
	IndexNum int `json:"indexNum"`
}

// BatchOptions configures a batch writer opened via DB.NewBatch (pkg/ignite).
type BatchOptions struct {
	// MaxBatchSize bounds how many pending entries a batch may accumulate
	// before Commit rejects it with ErrBatchTooLarge.
	//
	// Default: 4096
	MaxBatchSize int `json:"maxBatchSize"`

	// WriteSync controls whether Commit fsyncs after appending the batch's
	// records and its finish sentinel.
	//
	// Default: true
	WriteSync bool `json:"writeSync"`
}

// OptionFunc is a function type that modifies the engine's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions resets every field to its default value.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir sets the directory the engine stores its files in.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithMaxFileSize sets the rotation threshold for the active data file.
func WithMaxFileSize(size int64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.MaxFileSize = size
		}
	}
}

// WithWriteSync sets whether put/delete fsync the active file after append.
func WithWriteSync(sync bool) OptionFunc {
	return func(o *Options) {
		o.WriteSync = sync
	}
}

// WithIndexNum sets the number of index shards constructed at open.
func WithIndexNum(n int) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.IndexNum = n
		}
	}
}

// BatchOptionFunc is a function type that modifies a BatchOptions value.
type BatchOptionFunc func(*BatchOptions)

// WithDefaultBatchOptions resets every field to its default value.
func WithDefaultBatchOptions() BatchOptionFunc {
	return func(o *BatchOptions) {
		*o = NewDefaultBatchOptions()
	}
}

// WithMaxBatchSize sets the pending-entry cap a batch enforces at commit.
func WithMaxBatchSize(n int) BatchOptionFunc {
	return func(o *BatchOptions) {
		if n > 0 {
			o.MaxBatchSize = n
		}
	}
}

// WithBatchWriteSync sets whether Commit fsyncs after appending.
func WithBatchWriteSync(sync bool) BatchOptionFunc {
	return func(o *BatchOptions) {
		o.WriteSync = sync
	}
}
