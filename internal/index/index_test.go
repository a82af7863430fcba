package index_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/index"
	ignerrors "github.com/iamNilotpal/ignitedb/pkg/errors"
	"github.com/stretchr/testify/require"
)

func versionedKey(key []byte, ts uint64) []byte {
	out := make([]byte, len(key)+8)
	copy(out, key)
	binary.BigEndian.PutUint64(out[len(key):], ts)
	return out
}

func pos(fileID uint32, offset uint64) codec.RecordPosition {
	return codec.RecordPosition{FileID: fileID, Offset: offset, Size: 16}
}

func TestIndexPutGetDelete(t *testing.T) {
	ix := index.New(4)

	_, had := ix.Put([]byte("a"), pos(0, 0))
	require.False(t, had)

	got, ok := ix.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, pos(0, 0), got)

	prev, had := ix.Put([]byte("a"), pos(0, 100))
	require.True(t, had)
	require.Equal(t, pos(0, 0), prev)

	removed, err := ix.Delete([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, pos(0, 100), removed)

	_, ok = ix.Get([]byte("a"))
	require.False(t, ok)
}

func TestIndexDeleteMissingKeyIsNotFound(t *testing.T) {
	ix := index.New(4)
	_, err := ix.Delete([]byte("missing"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ignerrors.ErrNotFound))
}

func TestIndexExistsIsEmptyLen(t *testing.T) {
	ix := index.New(4)
	require.True(t, ix.IsEmpty())
	require.Equal(t, 0, ix.Len())
	require.False(t, ix.Exists([]byte("a")))

	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("%09d", i))
		_, _ = ix.Put(key, pos(0, uint64(i)))
	}

	require.False(t, ix.IsEmpty())
	require.Equal(t, 10, ix.Len())
	require.True(t, ix.Exists([]byte("000000003")))
}

func TestTxnPrefixSearchReturnsNewestVisibleVersion(t *testing.T) {
	ix := index.New(4)
	key := []byte("k")

	_, _ = ix.Put(versionedKey(key, 1), pos(0, 1))
	_, _ = ix.Put(versionedKey(key, 2), pos(0, 2))
	_, _ = ix.Put(versionedKey(key, 3), pos(0, 3))

	isVisible := func(ts uint64) bool { return ts <= 2 }

	gotPos, gotTS, err := ix.TxnPrefixSearch(key, index.SearchRead, isVisible)
	require.NoError(t, err)
	require.Equal(t, uint64(2), gotTS)
	require.Equal(t, pos(0, 2), gotPos)
}

func TestTxnPrefixSearchSkipsInvisibleInReadMode(t *testing.T) {
	ix := index.New(4)
	key := []byte("k")

	_, _ = ix.Put(versionedKey(key, 1), pos(0, 1))
	_, _ = ix.Put(versionedKey(key, 5), pos(0, 5))

	// ts 5 is concurrent (invisible); read mode should fall back to ts 1.
	isVisible := func(ts uint64) bool { return ts != 5 }

	gotPos, gotTS, err := ix.TxnPrefixSearch(key, index.SearchRead, isVisible)
	require.NoError(t, err)
	require.Equal(t, uint64(1), gotTS)
	require.Equal(t, pos(0, 1), gotPos)
}

func TestTxnPrefixSearchAbortsInWriteMode(t *testing.T) {
	ix := index.New(4)
	key := []byte("k")

	_, _ = ix.Put(versionedKey(key, 1), pos(0, 1))
	_, _ = ix.Put(versionedKey(key, 5), pos(0, 5))

	isVisible := func(ts uint64) bool { return ts != 5 }

	_, _, err := ix.TxnPrefixSearch(key, index.SearchWrite, isVisible)
	require.Error(t, err)
	require.True(t, errors.Is(err, ignerrors.ErrTxnConflict))
}

func TestTxnPrefixSearchNoVersionsIsNotFound(t *testing.T) {
	ix := index.New(4)
	_, _, err := ix.TxnPrefixSearch([]byte("nope"), index.SearchRead, func(uint64) bool { return true })
	require.Error(t, err)
	require.True(t, errors.Is(err, ignerrors.ErrNotFound))
}

func TestTxnPrefixSearchIgnoresUnrelatedKeysInSameShard(t *testing.T) {
	ix := index.New(1) // force everything into one shard
	_, _ = ix.Put(versionedKey([]byte("other"), 1), pos(0, 1))
	_, _ = ix.Put(versionedKey([]byte("k"), 2), pos(0, 2))

	gotPos, gotTS, err := ix.TxnPrefixSearch([]byte("k"), index.SearchRead, func(uint64) bool { return true })
	require.NoError(t, err)
	require.Equal(t, uint64(2), gotTS)
	require.Equal(t, pos(0, 2), gotPos)
}

// TestTxnPrefixSearchSkipsLongerOverlappingKey ensures a longer user key
// sharing the search prefix (e.g. "ka" while searching "k") - which sorts
// above the prefix's own versioned keys in the same shard - doesn't halt
// the descending scan before it reaches them.
func TestTxnPrefixSearchSkipsLongerOverlappingKey(t *testing.T) {
	ix := index.New(1) // force everything into one shard
	_, _ = ix.Put(versionedKey([]byte("ka"), 5), pos(0, 5))
	_, _ = ix.Put(versionedKey([]byte("k"), 3), pos(0, 3))

	gotPos, gotTS, err := ix.TxnPrefixSearch([]byte("k"), index.SearchRead, func(uint64) bool { return true })
	require.NoError(t, err)
	require.Equal(t, uint64(3), gotTS)
	require.Equal(t, pos(0, 3), gotPos)
}

func TestTxnPrefixSearchAllInvisibleIsNotFound(t *testing.T) {
	ix := index.New(4)
	key := []byte("k")
	_, _ = ix.Put(versionedKey(key, 1), pos(0, 1))

	_, _, err := ix.TxnPrefixSearch(key, index.SearchRead, func(uint64) bool { return false })
	require.Error(t, err)
	require.True(t, errors.Is(err, ignerrors.ErrNotFound))
}

// TestIndexConcurrentAccess exercises each shard's own lock under
// concurrent writers and readers from many goroutines, matching the
// engine's expectation that Index is safe for concurrent use.
func TestIndexConcurrentAccess(t *testing.T) {
	ix := index.New(8)

	var wg sync.WaitGroup
	const goroutines = 16
	const perGoroutine = 50

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := []byte(fmt.Sprintf("g%02d-%09d", g, i))
				ix.Put(key, pos(0, uint64(i)))
				ix.Get(key)
				ix.Exists(key)
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, goroutines*perGoroutine, ix.Len())
}
