package storage_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/iamNilotpal/ignitedb/internal/storage"
	"github.com/iamNilotpal/ignitedb/pkg/logger"
	"github.com/iamNilotpal/ignitedb/pkg/options"
	"github.com/stretchr/testify/require"
)

func openBenchStorage(o options.Options) (*storage.Storage, error) {
	return storage.Open(storage.Config{Options: o, Logger: logger.New("storage_bench")})
}

// benchValue mimics the original Rust benchmark's 4000-4001 byte value
// range closely enough to exercise rotation and the index under realistic
// record sizes, without depending on a faker library this module has no
// other use for.
func benchValue() []byte {
	v := make([]byte, 4000)
	for i := range v {
		v[i] = byte('a' + i%26)
	}
	return v
}

func BenchmarkPut(b *testing.B) {
	o := testOptions(b.TempDir())
	o.MaxFileSize = 64 << 20
	st, err := openBenchStorage(o)
	require.NoError(b, err)
	defer st.Close()

	value := benchValue()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("bench-put-%d", i))
		if err := st.Put(key, value); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGet(b *testing.B) {
	o := testOptions(b.TempDir())
	o.MaxFileSize = 64 << 20
	st, err := openBenchStorage(o)
	require.NoError(b, err)
	defer st.Close()

	const seeded = 10000
	value := benchValue()
	keys := make([][]byte, seeded)
	for i := 0; i < seeded; i++ {
		keys[i] = []byte(fmt.Sprintf("bench-get-%d", i))
		if err := st.Put(keys[i], value); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Get(keys[rand.Intn(seeded)]); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDelete(b *testing.B) {
	o := testOptions(b.TempDir())
	o.MaxFileSize = 64 << 20
	st, err := openBenchStorage(o)
	require.NoError(b, err)
	defer st.Close()

	value := benchValue()
	keys := make([][]byte, b.N)
	for i := 0; i < b.N; i++ {
		keys[i] = []byte(fmt.Sprintf("bench-del-%d", i))
		if err := st.Put(keys[i], value); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := st.Delete(keys[i]); err != nil {
			b.Fatal(err)
		}
	}
}
