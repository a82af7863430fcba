package txn

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ignitedb/internal/storage"
	"go.uber.org/zap"
)

// cleanEntry is a (version, key) pair whose old versioned record is safe to
// remove once no in-flight transaction could still need to see it.
type cleanEntry struct {
	ts  uint64
	key []byte
}

// Manager owns transaction sequencing, the set of currently uncommitted
// transactions and the keys each has written, and the background worker
// that reclaims superseded versions once they can no longer be observed.
type Manager struct {
	storage *storage.Storage
	log     *zap.SugaredLogger
	dbPath  string

	ts atomic.Uint64

	mu        sync.Mutex
	activeTxn map[uint64][][]byte

	cleanMu      sync.Mutex
	pendingClean []cleanEntry

	cleanupSignal chan struct{}
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closed        atomic.Bool
}

// NewManager loads any persisted manifest from storage's data directory,
// discards every transaction left uncommitted by a prior crash (deleting
// the versioned records it wrote, since a transaction with no commit record
// never should have become visible), and starts the background cleanup
// worker.
func NewManager(store *storage.Storage) (*Manager, error) {
	dbPath := store.DBPath()
	log := store.Logger()

	m, err := loadManifest(dbPath)
	if err != nil {
		return nil, err
	}

	mgr := &Manager{
		storage:       store,
		log:           log,
		dbPath:        dbPath,
		activeTxn:     make(map[uint64][][]byte),
		cleanupSignal: make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
	mgr.ts.Store(m.NextTS)

	for ts, keys := range m.ActiveTxn {
		for _, key := range keys {
			versioned := encodeKeySlice(key, ts)
			if err := store.Delete(versioned); err != nil {
				log.Warnw("discarding uncommitted transaction write", "ts", ts, "error", err)
			}
		}
	}

	mgr.wg.Add(1)
	go mgr.cleanupLoop()

	return mgr, nil
}

func (m *Manager) acquireNextTS() uint64 {
	return m.ts.Add(1) - 1
}

func (m *Manager) addTxn(ts uint64) map[uint64]struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make(map[uint64]struct{}, len(m.activeTxn))
	for id := range m.activeTxn {
		active[id] = struct{}{}
	}
	m.activeTxn[ts] = nil
	return active
}

func (m *Manager) removeTxn(ts uint64) [][]byte {
	m.mu.Lock()
	keys := m.activeTxn[ts]
	delete(m.activeTxn, ts)
	empty := len(m.activeTxn) == 0
	m.mu.Unlock()

	if empty {
		select {
		case m.cleanupSignal <- struct{}{}:
		default:
		}
	}
	return keys
}

func (m *Manager) updateTxn(ts uint64, key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeTxn[ts] = append(m.activeTxn[ts], append([]byte(nil), key...))
}

func (m *Manager) markToClean(ts uint64, key []byte) {
	m.cleanMu.Lock()
	defer m.cleanMu.Unlock()
	m.pendingClean = append(m.pendingClean, cleanEntry{ts: ts, key: append([]byte(nil), key...)})
}

// syncToFile persists the manager's current state, overwriting any
// previous manifest.
func (m *Manager) syncToFile() error {
	m.mu.Lock()
	snapshot := make(map[uint64][][]byte, len(m.activeTxn))
	for ts, keys := range m.activeTxn {
		snapshot[ts] = keys
	}
	m.mu.Unlock()

	man := &manifest{ActiveTxn: snapshot, NextTS: m.ts.Load()}
	return man.save(m.dbPath)
}

// cleanupLoop drains pendingClean whenever every transaction that was
// active when an entry was queued has since finished - signaled by
// removeTxn observing an empty active set. Any deletion error is logged and
// skipped rather than surfaced: a missed cleanup wastes disk space but
// never corrupts a read, so it isn't worth failing transactions over.
func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return
		case <-m.cleanupSignal:
			m.cleanMu.Lock()
			entries := m.pendingClean
			m.pendingClean = nil
			m.cleanMu.Unlock()

			for _, e := range entries {
				versioned := encodeKeySlice(e.key, e.ts)
				if err := m.storage.Delete(versioned); err != nil {
					m.log.Warnw("transaction cleanup failed", "ts", e.ts, "error", err)
				}
			}
		}
	}
}

// Close stops the background cleanup worker and persists the manager's
// final state. It does not close the underlying storage engine - that
// stays owned by whoever opened it.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.stopCh)
	m.wg.Wait()
	return m.syncToFile()
}

// Begin starts a new transaction: it hands out the next timestamp, snapshots
// the set of timestamps currently active (which this transaction must treat
// as invisible even if they commit later), and registers itself in the
// active-transaction map.
func (m *Manager) Begin() *Txn {
	ts := m.acquireNextTS()
	activeAtBegin := m.addTxn(ts)
	return &Txn{mgr: m, ts: ts, activeAtBegin: activeAtBegin}
}
