package block

import (
	"fmt"
	"sync"
	"unsafe"
)

// System is the source of raw memory behind an Allocator.
// Alloc must return a buffer of exactly size bytes or an error; Free
// receives buffers previously returned by Alloc, each exactly once.
type System interface {
	Alloc(size int) ([]byte, error)
	Free(b []byte) error
}

// Heap is a System backed by the Go heap. Blocks are ordinary byte slices
// kept reachable by the Allocator until Release.
//
// If Limit is positive, Alloc fails with ErrOutOfMemory once the bytes
// currently held would exceed Limit. A Heap must not be copied after first use.
type Heap struct {
	Limit int

	inUse int
}

// Alloc returns a zeroed slice of size bytes.
func (h *Heap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if h.Limit > 0 && size > h.Limit-h.inUse {
		return nil, fmt.Errorf("%w: heap limit %d bytes, %d in use, %d requested",
			ErrOutOfMemory, h.Limit, h.inUse, size)
	}
	h.inUse += size
	return make([]byte, size), nil
}

// Free gives the block back to the garbage collector.
func (h *Heap) Free(b []byte) error {
	h.inUse -= len(b)
	return nil
}

// InUse returns the number of bytes currently held.
func (h *Heap) InUse() int {
	return h.inUse
}

// CountingStats is a snapshot of the traffic seen by a Counting system.
type CountingStats struct {
	Allocs     int `json:"allocs" yaml:"allocs"`
	Frees      int `json:"frees" yaml:"frees"`
	BytesAlloc int `json:"bytes_alloc" yaml:"bytes_alloc"`
	BytesFreed int `json:"bytes_freed" yaml:"bytes_freed"`
	Live       int `json:"live" yaml:"live"`
}

// Counting wraps another System and records every call that reaches it.
// It rejects frees of blocks it did not hand out, so a block released
// twice surfaces as ErrUnknownBlock. Calls to Inner are serialized, so a
// Counting is safe for concurrent use even when Inner is not.
type Counting struct {
	Inner System

	mu        sync.Mutex
	stats     CountingStats
	live      map[uintptr]int
	allocated []uintptr
	freed     []uintptr
}

// NewCounting wraps inner. A nil inner uses Default().
func NewCounting(inner System) *Counting {
	if inner == nil {
		inner = Default()
	}
	return &Counting{Inner: inner}
}

// Alloc forwards to the wrapped system and records the block on success.
func (c *Counting) Alloc(size int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.Inner.Alloc(size)
	if err != nil || len(b) == 0 {
		return b, err
	}
	addr := addrOf(b)
	if c.live == nil {
		c.live = make(map[uintptr]int)
	}
	c.live[addr] = len(b)
	c.allocated = append(c.allocated, addr)
	c.stats.Allocs++
	c.stats.BytesAlloc += len(b)
	c.stats.Live++
	return b, nil
}

// Free forwards to the wrapped system after checking the block is live.
// The block counts as freed only once the wrapped system accepts it.
func (c *Counting) Free(b []byte) error {
	if len(b) == 0 {
		return ErrUnknownBlock
	}
	addr := addrOf(b)

	c.mu.Lock()
	defer c.mu.Unlock()
	size, ok := c.live[addr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrUnknownBlock, addr)
	}
	if err := c.Inner.Free(b); err != nil {
		return err
	}
	delete(c.live, addr)
	c.freed = append(c.freed, addr)
	c.stats.Frees++
	c.stats.BytesFreed += size
	c.stats.Live--
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Counting) Stats() CountingStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// AllocOrder returns the base addresses of all allocated blocks, oldest first.
func (c *Counting) AllocOrder() []uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uintptr(nil), c.allocated...)
}

// FreeOrder returns the base addresses of all freed blocks in the order
// they were freed.
func (c *Counting) FreeOrder() []uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uintptr(nil), c.freed...)
}

func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
