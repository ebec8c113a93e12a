package arena

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	KB = 1024
	MB = 1024 * 1024
)

func TestCreate(t *testing.T) {
	t.Run("tiny region", func(t *testing.T) {
		_, err := New(Buddy, make([]byte, 64))
		assert.ErrorIs(t, err, ErrRegionTooSmall)

		_, err = New(SegregatedFreelist, make([]byte, 64))
		assert.ErrorIs(t, err, ErrRegionTooSmall)
	})

	t.Run("nil region", func(t *testing.T) {
		_, err := New(Buddy, nil)
		assert.ErrorIs(t, err, ErrNilRegion)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		_, err := New(Algorithm(7), make([]byte, 1*MB))
		assert.ErrorIs(t, err, ErrInvalidAlgorithm)
	})

	t.Run("caller region", func(t *testing.T) {
		region := make([]byte, 1*MB)
		for _, alg := range []Algorithm{SegregatedFreelist, Buddy} {
			a, err := New(alg, region)
			require.NoError(t, err)
			assert.Equal(t, alg, a.Algorithm())
			assert.NotZero(t, a.Stats().HeapSize)
			assert.Less(t, a.Stats().HeapSize, uint64(1*MB))
			a.Destroy()
		}
	})
}

func TestManagedLifecycle(t *testing.T) {
	for _, alg := range []Algorithm{SegregatedFreelist, Buddy} {
		t.Run(alg.String(), func(t *testing.T) {
			a, err := NewManaged(alg, 1*MB)
			require.NoError(t, err)

			p := a.Alloc(128)
			require.NotNil(t, p)
			a.Free(p)

			stats := a.Stats()
			assert.Equal(t, uint64(1), stats.TotalAllocations)
			assert.Equal(t, uint64(1), stats.TotalFrees)
			assert.Zero(t, stats.CurrentAllocated)

			a.Destroy()
		})
	}
}

func TestZeroSizeAlloc(t *testing.T) {
	a, err := NewManaged(SegregatedFreelist, 1*MB)
	require.NoError(t, err)
	defer a.Destroy()

	assert.Nil(t, a.Alloc(0))

	stats := a.Stats()
	assert.Zero(t, stats.TotalAllocations)
	assert.Zero(t, stats.FailedAllocations)
}

func TestNilHandle(t *testing.T) {
	var a *Allocator
	assert.Nil(t, a.Alloc(16))
	assert.Nil(t, a.Realloc(nil, 16))
	a.Free(unsafe.Pointer(&struct{}{}))
	a.Destroy()
}

func TestRealloc(t *testing.T) {
	a, err := NewManaged(SegregatedFreelist, 1*MB)
	require.NoError(t, err)
	defer a.Destroy()

	// (nil, n) behaves like alloc
	p := a.Realloc(nil, 100)
	require.NotNil(t, p)
	assert.Equal(t, uint64(1), a.Stats().TotalAllocations)

	// (p, n) allocates new and frees old, without copying payload
	q := a.Realloc(p, 200)
	require.NotNil(t, q)
	assert.NotEqual(t, p, q)
	assert.Equal(t, uint64(2), a.Stats().TotalAllocations)
	assert.Equal(t, uint64(1), a.Stats().TotalFrees)

	// (q, 0) frees and returns nil
	assert.Nil(t, a.Realloc(q, 0))
	assert.Equal(t, uint64(2), a.Stats().TotalFrees)
	assert.Zero(t, a.Stats().CurrentAllocated)
}

func TestStatsInvariants(t *testing.T) {
	for _, alg := range []Algorithm{SegregatedFreelist, Buddy} {
		t.Run(alg.String(), func(t *testing.T) {
			a, err := NewManaged(alg, 1*MB)
			require.NoError(t, err)
			defer a.Destroy()

			var live []unsafe.Pointer
			for _, size := range []uintptr{1, 17, 64, 250, 1000, 3000} {
				if p := a.Alloc(size); p != nil {
					live = append(live, p)
				}
			}
			for i, p := range live {
				if i%2 == 0 {
					a.Free(p)
				}
			}

			stats := a.Stats()
			assert.LessOrEqual(t, stats.CurrentAllocated, stats.PeakAllocated)
			assert.LessOrEqual(t, stats.CurrentRequested, stats.PeakRequested)
			assert.LessOrEqual(t, stats.PeakRequested, stats.HeapSize)
			assert.LessOrEqual(t, stats.Utilization(), 1.0)
		})
	}
}

func TestResetStats(t *testing.T) {
	a, err := NewManaged(Buddy, 1*MB)
	require.NoError(t, err)
	defer a.Destroy()

	a.Free(a.Alloc(64))
	a.Alloc(64)
	heap := a.Stats().HeapSize
	require.NotZero(t, heap)

	a.ResetStats()
	stats := a.Stats()
	assert.Equal(t, Stats{HeapSize: heap}, stats)
}

func BenchmarkAlloc(b *testing.B) {
	sizes := []uintptr{16, 64, 256, 1 * KB, 4 * KB, 64 * KB}

	for _, alg := range []Algorithm{SegregatedFreelist, Buddy} {
		for _, size := range sizes {
			b.Run(fmt.Sprintf("%s/Size_%d", alg, size), func(b *testing.B) {
				a, err := NewManaged(alg, 16*MB)
				if err != nil {
					b.Fatalf("Failed to create allocator: %v", err)
				}
				defer a.Destroy()

				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					p := a.Alloc(size)
					if p == nil {
						b.Fatalf("Failed to allocate %d bytes", size)
					}
					a.Free(p)
				}
			})
		}
	}
}
