package block

import (
	"errors"
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSystem refuses every request.
type failingSystem struct{ err error }

func (f failingSystem) Alloc(int) ([]byte, error) { return nil, f.err }
func (f failingSystem) Free([]byte) error         { return nil }

// shortSystem returns one byte less than requested without an error.
type shortSystem struct{ frees int }

func (s *shortSystem) Alloc(size int) ([]byte, error) { return make([]byte, size-1), nil }
func (s *shortSystem) Free([]byte) error              { s.frees++; return nil }

// brokenFree fails every Free.
type brokenFree struct{ Heap }

func (b *brokenFree) Free([]byte) error { return errors.New("free failed") }

func systems() map[string]func() System {
	return map[string]func() System{
		"heap":    func() System { return &Heap{} },
		"default": Default,
	}
}

func TestAllocateMultipleBlocks(t *testing.T) {
	for name, mk := range systems() {
		t.Run(name, func(t *testing.T) {
			a := New(WithSystem(mk()))
			defer func() { require.NoError(t, a.Release()) }()

			b1, err := a.Allocate(16)
			require.NoError(t, err)
			b2, err := a.Allocate(24)
			require.NoError(t, err)
			require.NotNil(t, b1)
			require.NotNil(t, b2)
			assert.Len(t, b1, 16)
			assert.Len(t, b2, 24)
			assert.Equal(t, 16, cap(b1), "block must not expose bytes past its size")

			copy(b1, "abcdefghijklmnop")
			copy(b2, "abcdefghijklmnopqrstuvwx")
			assert.Equal(t, "abcdefghijklmnop", string(b1))
			assert.Equal(t, "abcdefghijklmnopqrstuvwx", string(b2))
			assert.Equal(t, 2, a.NumBlocks())
			assert.Equal(t, 40, a.Capacity())
		})
	}
}

func TestAllocateNoOverlap(t *testing.T) {
	a := New(WithSystem(&Heap{}))
	defer a.Release()

	type region struct{ lo, hi uintptr }
	var regions []region
	for i := 1; i <= 64; i++ {
		b, err := a.Allocate(i * 8)
		require.NoError(t, err)
		lo := uintptr(unsafe.Pointer(&b[0]))
		regions = append(regions, region{lo, lo + uintptr(len(b))})
		for j := range b {
			b[j] = byte(i)
		}
	}
	for i, r := range regions {
		for j, o := range regions {
			if i != j {
				assert.False(t, r.lo < o.hi && o.lo < r.hi, "regions %d and %d overlap", i, j)
			}
		}
	}
}

func TestAllocateInvalidSize(t *testing.T) {
	c := NewCounting(&Heap{})
	a := New(WithSystem(c))
	defer a.Release()

	for _, size := range []int{0, -1, -4096} {
		b, err := a.Allocate(size)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
	assert.Zero(t, c.Stats().Allocs, "invalid sizes must not reach the system")
	assert.Zero(t, a.NumBlocks())
}

func TestAllocateOutOfMemory(t *testing.T) {
	t.Run("system error", func(t *testing.T) {
		a := New(WithSystem(failingSystem{err: errors.New("no memory")}))
		defer a.Release()

		b, err := a.Allocate(64)
		assert.Nil(t, b)
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.Contains(t, err.Error(), "no memory")
		assert.Zero(t, a.NumBlocks())
	})

	t.Run("heap limit", func(t *testing.T) {
		h := &Heap{Limit: 100}
		a := New(WithSystem(h))
		defer a.Release()

		_, err := a.Allocate(64)
		require.NoError(t, err)
		_, err = a.Allocate(64)
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.Equal(t, 64, h.InUse())
		assert.Equal(t, 1, a.NumBlocks())
	})

	t.Run("short block", func(t *testing.T) {
		s := &shortSystem{}
		a := New(WithSystem(s))
		defer a.Release()

		b, err := a.Allocate(32)
		assert.Nil(t, b)
		require.ErrorIs(t, err, ErrOutOfMemory)
		assert.Equal(t, 1, s.frees)
		assert.Zero(t, a.NumBlocks())
	})
}

func TestReleaseFreesEveryBlockOnceNewestFirst(t *testing.T) {
	c := NewCounting(&Heap{})
	a := New(WithSystem(c))

	const n = 10
	for i := 0; i < n; i++ {
		_, err := a.Allocate(128)
		require.NoError(t, err)
	}
	require.Equal(t, n, a.NumBlocks())
	assert.Zero(t, c.Stats().Frees, "no block may be freed before Release")

	require.NoError(t, a.Release())

	stats := c.Stats()
	assert.Equal(t, n, stats.Allocs)
	assert.Equal(t, n, stats.Frees)
	assert.Equal(t, stats.BytesAlloc, stats.BytesFreed)
	assert.Zero(t, stats.Live)

	allocated := c.AllocOrder()
	freed := c.FreeOrder()
	require.Len(t, freed, n)
	for i := range freed {
		assert.Equal(t, allocated[n-1-i], freed[i], "free #%d out of order", i)
	}
	assert.True(t, a.Released())
	assert.Zero(t, a.NumBlocks())
	assert.Zero(t, a.Capacity())
}

func TestUseAfterRelease(t *testing.T) {
	c := NewCounting(&Heap{})
	a := New(WithSystem(c))
	_, err := a.Allocate(8)
	require.NoError(t, err)
	require.NoError(t, a.Release())

	_, err = a.Allocate(8)
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, a.Release(), ErrReleased)
	assert.Equal(t, 1, c.Stats().Frees, "second Release must not free again")
}

func TestReleaseJoinsFreeErrors(t *testing.T) {
	a := New(WithSystem(&brokenFree{}))
	for i := 0; i < 3; i++ {
		_, err := a.Allocate(8)
		require.NoError(t, err)
	}
	err := a.Release()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 0")
	assert.Contains(t, err.Error(), "block 2")
	assert.True(t, a.Released())
}

func TestZeroValueAllocator(t *testing.T) {
	var a Allocator
	b, err := a.Allocate(32)
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, 1, a.NumBlocks())
	require.NoError(t, a.Release())
}

func TestCopiedAllocator(t *testing.T) {
	a := New(WithSystem(&Heap{}))
	defer a.Release()

	// A value whose identity does not match the one New returned.
	moved := &Allocator{self: a, sys: a.sys, log: a.log}
	_, err := moved.Allocate(8)
	assert.ErrorIs(t, err, ErrCopied)
	assert.ErrorIs(t, moved.Release(), ErrCopied)
}

func TestAllocatorMetrics(t *testing.T) {
	a := New(WithSystem(&Heap{}))
	m := a.Metrics()
	assert.Equal(t, Metrics{}, m)

	_, err := a.Allocate(100)
	require.NoError(t, err)
	_, err = a.Allocate(200)
	require.NoError(t, err)
	m = a.Metrics()
	assert.Equal(t, 2, m.NumBlocks)
	assert.Equal(t, 300, m.Capacity)
	assert.False(t, m.Released)

	require.NoError(t, a.Release())
	m = a.Metrics()
	assert.Equal(t, Metrics{Released: true}, m)
}

func BenchmarkAllocate(b *testing.B) {
	for _, size := range []int{64, 4096, 1 << 16} {
		b.Run(fmt.Sprintf("size-%d", size), func(b *testing.B) {
			a := New(WithSystem(&Heap{}))
			defer a.Release()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := a.Allocate(size); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
