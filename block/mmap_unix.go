//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package block

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap is a System that maps anonymous private memory straight from the
// kernel. Blocks live outside the Go heap and are never scanned by the
// garbage collector.
type Mmap struct{}

// Alloc maps size bytes of zeroed read/write memory.
func (Mmap) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return b, nil
}

// Free unmaps a block returned by Alloc.
func (Mmap) Free(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("munmap %d bytes: %w", len(b), err)
	}
	return nil
}

// Default returns the System used when none is configured.
func Default() System {
	return Mmap{}
}
