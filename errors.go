package objpool

import (
	"errors"

	"github.com/pavanmanishd/objpool/block"
	"github.com/pavanmanishd/objpool/internal/slot"
)

var (
	// ErrTooSmall is returned by New for element types that cannot hold a
	// free-list link.
	ErrTooSmall = slot.ErrTooSmall

	// ErrHasPointers is returned by New for element types containing Go
	// pointers. Pool memory is not scanned by the garbage collector.
	ErrHasPointers = slot.ErrHasPointers

	// ErrBatchTooLarge is returned by New when one block of the requested
	// batch size cannot be addressed.
	ErrBatchTooLarge = errors.New("objpool: batch size overflows block size")

	// ErrOutOfMemory wraps a failed block request. It is the same value as
	// block.ErrOutOfMemory.
	ErrOutOfMemory = block.ErrOutOfMemory

	// ErrReleased is returned by every operation on a released pool.
	ErrReleased = errors.New("objpool: use after Release()")

	// ErrCopied is returned when a pool is used through a copy of the value
	// returned by New.
	ErrCopied = errors.New("objpool: illegal use of copied Pool")

	// ErrNilHandle is returned by Dealloc(nil).
	ErrNilHandle = errors.New("objpool: nil handle")

	// ErrDoubleFree is returned with debug checks when a slot that is
	// already free is deallocated again.
	ErrDoubleFree = errors.New("objpool: handle already deallocated")

	// ErrForeignHandle is returned with debug checks when a handle does not
	// point at a slot of this pool.
	ErrForeignHandle = errors.New("objpool: handle not owned by this pool")
)
