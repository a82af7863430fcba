package batch_test

import (
	"fmt"
	"testing"

	"github.com/iamNilotpal/ignitedb/internal/batch"
	"github.com/iamNilotpal/ignitedb/internal/storage"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T, dir string) *storage.Storage {
	t.Helper()
	o := options.NewDefaultOptions()
	o.DataDir = dir
	o.MaxFileSize = 4096
	o.IndexNum = 4

	st, err := storage.Open(storage.Config{Options: o, Logger: logger.New("batch_test")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBatchCommitMakesWritesVisible(t *testing.T) {
	st := openTestStorage(t, t.TempDir())

	b, err := batch.New(st, options.NewDefaultBatchOptions())
	require.NoError(t, err)

	const keyCount = 200
	for i := 0; i < keyCount; i++ {
		key := []byte(fmt.Sprintf("%09d", i))
		require.NoError(t, b.Put(key, key))
	}
	require.NoError(t, b.Commit())

	for i := 0; i < keyCount; i++ {
		key := []byte(fmt.Sprintf("%09d", i))
		v, err := st.Get(key)
		require.NoError(t, err)
		require.Equal(t, key, v)
	}
}

func TestEmptyBatchCommitIsNoOp(t *testing.T) {
	st := openTestStorage(t, t.TempDir())

	b, err := batch.New(st, options.NewDefaultBatchOptions())
	require.NoError(t, err)
	require.NoError(t, b.Commit())
}

func TestBatchTooLargeRejected(t *testing.T) {
	st := openTestStorage(t, t.TempDir())

	opts := options.NewDefaultBatchOptions()
	opts.MaxBatchSize = 2
	b, err := batch.New(st, opts)
	require.NoError(t, err)

	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Put([]byte("c"), []byte("3")))
	require.Error(t, b.Commit())
}

func TestBatchDeleteOfNeverPersistedKeyIsNoOp(t *testing.T) {
	st := openTestStorage(t, t.TempDir())

	b, err := batch.New(st, options.NewDefaultBatchOptions())
	require.NoError(t, err)

	require.NoError(t, b.Put([]byte("k"), []byte("v")))
	require.NoError(t, b.Delete([]byte("k")))
	require.NoError(t, b.Commit())

	_, err = st.Get([]byte("k"))
	require.Error(t, err)
	require.False(t, st.Exists([]byte("k")))
}

func TestBatchDeleteOfExistingKeyStagesTombstone(t *testing.T) {
	st := openTestStorage(t, t.TempDir())
	require.NoError(t, st.Put([]byte("k"), []byte("v")))

	b, err := batch.New(st, options.NewDefaultBatchOptions())
	require.NoError(t, err)

	require.NoError(t, b.Delete([]byte("k")))
	require.NoError(t, b.Commit())

	_, err = st.Get([]byte("k"))
	require.Error(t, err)
}

func TestBatchLastWriteWinsPerKey(t *testing.T) {
	st := openTestStorage(t, t.TempDir())

	b, err := batch.New(st, options.NewDefaultBatchOptions())
	require.NoError(t, err)

	require.NoError(t, b.Put([]byte("k"), []byte("first")))
	require.NoError(t, b.Put([]byte("k"), []byte("second")))
	require.NoError(t, b.Commit())

	v, err := st.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("second"), v)
}
