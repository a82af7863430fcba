package txn

import (
	"encoding/binary"
	stdErrors "errors"
	"sync"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/storage"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
)

// ErrTxnClosed is returned by every method on a Txn that has already
// committed or rolled back.
var ErrTxnClosed = stdErrors.New("ignitedb: transaction already closed")

// encodeKeySlice builds the on-disk versioned key a transaction writes
// under: the user key followed by an 8-byte big-endian timestamp.
func encodeKeySlice(key []byte, ts uint64) []byte {
	out := make([]byte, len(key)+8)
	copy(out, key)
	binary.BigEndian.PutUint64(out[len(key):], ts)
	return out
}

// Txn is a snapshot-isolated transaction over a versioned key space. A
// value written by Put or Delete is only ever visible to Get calls on this
// same Txn until Commit returns; other transactions (including ones already
// in flight when this one began) see the prior version until then.
type Txn struct {
	mgr *Manager
	ts  uint64

	// activeAtBegin is the set of timestamps that were in flight when this
	// transaction began. A version written at one of these timestamps is
	// invisible to this transaction even after that other transaction
	// commits, since it was concurrent with this one's snapshot.
	activeAtBegin map[uint64]struct{}

	mu     sync.Mutex
	closed bool
}

// Timestamp returns the snapshot timestamp this transaction was assigned at
// Begin. It is exposed for diagnostics and tests; application code has no
// use for it beyond logging.
func (t *Txn) Timestamp() uint64 {
	return t.ts
}

// isVisible reports whether a version written at candidate is visible to
// this transaction's snapshot: candidate <= self.ts and candidate was not
// itself in flight when this transaction began.
func (t *Txn) isVisible(candidate uint64) bool {
	if candidate > t.ts {
		return false
	}
	_, concurrent := t.activeAtBegin[candidate]
	return !concurrent
}

// Get returns the newest version of key visible to this transaction's
// snapshot, or ErrNotFound if no visible version exists or the newest
// visible version is a tombstone.
func (t *Txn) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ignerrors.ErrEmptyKey
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTxnClosed
	}

	pos, _, err := t.mgr.storage.PrefixSearch(key, storage.TxnSearchRead, t.isVisible)
	if err != nil {
		return nil, err
	}

	rec, err := t.mgr.storage.ReadAt(pos)
	if err != nil {
		return nil, err
	}
	if rec.Type == codec.RecordDeleted {
		return nil, ignerrors.ErrNotFound
	}

	value := make([]byte, len(rec.Value))
	copy(value, rec.Value)
	return value, nil
}

// Put writes a new version of key visible only to this transaction until
// Commit. It fails with ErrTxnConflict if the newest version of key already
// on disk is not visible to this transaction (written by a later
// transaction, or by one that was in flight when this one began).
func (t *Txn) Put(key, value []byte) error {
	if len(key) == 0 {
		return ignerrors.ErrEmptyKey
	}
	return t.write(key, func(versionedKey []byte) *codec.Record {
		return codec.NewNormalRecord(versionedKey, append([]byte(nil), value...))
	})
}

// Delete writes a tombstone version of key visible only to this
// transaction until Commit. Like Put, it conflicts if a concurrent,
// invisible version already exists.
func (t *Txn) Delete(key []byte) error {
	if len(key) == 0 {
		return ignerrors.ErrEmptyKey
	}
	return t.write(key, func(versionedKey []byte) *codec.Record {
		return codec.NewDeletedRecord(versionedKey)
	})
}

// write implements the shared Put/Delete protocol: conflict-check against
// the latest version, append the versioned record, update the index, and
// queue the superseded version (if any) for background cleanup.
func (t *Txn) write(key []byte, makeRecord func(versionedKey []byte) *codec.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTxnClosed
	}

	_, oldTS, err := t.mgr.storage.PrefixSearch(key, storage.TxnSearchWrite, t.isVisible)
	hadPriorVisible := err == nil
	if err != nil && !stdErrors.Is(err, ignerrors.ErrNotFound) {
		return err
	}

	versionedKey := encodeKeySlice(key, t.ts)
	rec := makeRecord(versionedKey)

	pos, err := t.mgr.storage.AppendRecord(rec)
	if err != nil {
		return err
	}
	if prev, had := t.mgr.storage.IndexPut(versionedKey, pos); had {
		t.mgr.storage.ChargeReclaimable(prev.Size)
	}

	if hadPriorVisible && oldTS != t.ts {
		t.mgr.markToClean(oldTS, key)
	}
	t.mgr.updateTxn(t.ts, key)
	return nil
}

// Commit finalizes the transaction: it becomes visible to every subsequent
// transaction's snapshot, the manager's manifest is persisted to reflect
// this transaction no longer being uncommitted, and the underlying storage
// is fsync'd.
func (t *Txn) Commit() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTxnClosed
	}
	t.closed = true
	t.mu.Unlock()

	t.mgr.removeTxn(t.ts)
	if err := t.mgr.syncToFile(); err != nil {
		return err
	}
	return t.mgr.storage.Sync()
}

// Rollback discards every version this transaction wrote (by tombstoning
// each one) and removes it from the active-transaction set. Rollback is the
// only path by which a transaction's own writes vanish instead of merely
// becoming invisible.
func (t *Txn) Rollback() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTxnClosed
	}
	t.closed = true
	t.mu.Unlock()

	keys := t.mgr.removeTxn(t.ts)
	for _, key := range keys {
		versioned := encodeKeySlice(key, t.ts)
		if err := t.mgr.storage.Delete(versioned); err != nil {
			t.mgr.log.Warnw("rollback: failed to tombstone written key", "ts", t.ts, "error", err)
		}
	}

	if err := t.mgr.syncToFile(); err != nil {
		return err
	}
	return t.mgr.storage.Sync()
}
