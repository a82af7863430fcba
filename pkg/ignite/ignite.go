// Package ignite is the public façade for ignitedb: a single-node,
// embedded key/value store built on the Bitcask model. It wires together
// the storage engine, the atomic batch writer, and the snapshot-isolated
// transaction layer behind a small surface: open, put, get, delete, sync,
// close, merge, new batch, and (via TxnEngine) begin/commit/rollback
// transactions.
package ignite

import (
	"github.com/iamNilotpal/ignitedb/internal/batch"
	"github.com/iamNilotpal/ignitedb/internal/storage"
	"github.com/iamNilotpal/ignitedb/internal/txn"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
)

// DB is the primary entry point for interacting with an ignitedb data
// directory. It owns the storage engine - the active/archived data files,
// the sharded in-memory index, and the directory lock - for as long as it
// stays open.
type DB struct {
	storage *storage.Storage
}

// Open opens (creating if absent) the data directory named by opts,
// recovering the index from any hint file and data-file tails, and
// acquiring an exclusive lock on the directory for the DB's lifetime.
// service names this DB instance in its structured logs.
func Open(service string, opts ...options.OptionFunc) (*DB, error) {
	log := logger.New(service)

	o := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	st, err := storage.Open(storage.Config{Options: o, Logger: log})
	if err != nil {
		return nil, err
	}
	return &DB{storage: st}, nil
}

// Put stores value under key, appending a record to the active data file
// and updating the in-memory index. key must be non-empty.
func (db *DB) Put(key, value []byte) error {
	return db.storage.Put(key, value)
}

// Get returns the current value stored under key, or ErrNotFound if key has
// no value (including if it was deleted and never re-put).
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.storage.Get(key)
}

// Delete removes key's current value, appending a tombstone record. It is
// not an error to delete a key that does not currently exist.
func (db *DB) Delete(key []byte) error {
	return db.storage.Delete(key)
}

// Sync flushes the active data file to stable storage.
func (db *DB) Sync() error {
	return db.storage.Sync()
}

// Close syncs and releases every open file handle and the directory lock.
// Close is idempotent.
func (db *DB) Close() error {
	return db.storage.Close()
}

// Merge runs one offline compaction pass, rewriting every archived file's
// live records into a fresh side directory for adoption on the next Open.
// It returns ErrBusy if a merge is already running.
func (db *DB) Merge() error {
	return db.storage.Merge()
}

// Stat reports the engine's current file count, key count, and space usage.
func (db *DB) Stat() storage.Stat {
	return db.storage.Stat()
}

// NewBatch opens an atomic batch writer over db. A batch's methods serialize
// on its own mutex, so concurrent calls on one batch do not interleave.
func (db *DB) NewBatch(opts ...options.BatchOptionFunc) (*batch.Batch, error) {
	o := options.NewDefaultBatchOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return batch.New(db.storage, o)
}

// TxnEngine layers snapshot-isolated, multi-version transactions on top of
// a DB. It owns the monotonic timestamp counter, the set of currently
// active transactions, and the background worker that reclaims superseded
// versions once no in-flight transaction could still observe them.
type TxnEngine struct {
	db  *DB
	mgr *txn.Manager
}

// NewTxnEngine loads any persisted transaction manifest from db's data
// directory, rolls back every transaction a prior crash left uncommitted,
// and starts the background cleanup worker.
func NewTxnEngine(db *DB) (*TxnEngine, error) {
	mgr, err := txn.NewManager(db.storage)
	if err != nil {
		return nil, err
	}
	return &TxnEngine{db: db, mgr: mgr}, nil
}

// Begin starts a new transaction against the engine's current snapshot.
func (te *TxnEngine) Begin() *txn.Txn {
	return te.mgr.Begin()
}

// Sync flushes the underlying storage engine to stable storage.
func (te *TxnEngine) Sync() error {
	return te.db.storage.Sync()
}

// Close stops the background cleanup worker and persists the manager's
// final manifest. It does not close the underlying DB.
func (te *TxnEngine) Close() error {
	return te.mgr.Close()
}
