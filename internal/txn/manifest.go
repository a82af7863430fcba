package txn

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/iamNilotpal/ignitedb/pkg/datafilename"
)

// manifest is the on-disk snapshot of the transaction manager's state:
// every still-uncommitted transaction's timestamp and the keys it wrote,
// plus the next timestamp to hand out. encoding/gob is used rather than a
// hand-rolled format since this is pure state-bag persistence with no wire
// compatibility or performance requirement, the case this codebase reaches
// for gob over a bespoke binary codec.
type manifest struct {
	ActiveTxn map[uint64][][]byte
	NextTS    uint64
}

func manifestPath(dbPath string) string {
	return filepath.Join(dbPath, datafilename.TxnManifestName)
}

// loadManifest reads the persisted manifest from dbPath, returning a fresh
// empty one if no manifest file exists yet.
func loadManifest(dbPath string) (*manifest, error) {
	buf, err := os.ReadFile(manifestPath(dbPath))
	if err != nil {
		if os.IsNotExist(err) {
			return &manifest{ActiveTxn: make(map[uint64][][]byte)}, nil
		}
		return nil, err
	}

	var m manifest
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&m); err != nil {
		return nil, err
	}
	if m.ActiveTxn == nil {
		m.ActiveTxn = make(map[uint64][][]byte)
	}
	return &m, nil
}

// save persists m to dbPath, overwriting any previous manifest.
func (m *manifest) save(dbPath string) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return err
	}
	return os.WriteFile(manifestPath(dbPath), buf.Bytes(), 0644)
}
