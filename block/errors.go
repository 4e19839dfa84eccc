package block

import "errors"

var (
	// ErrInvalidSize is returned when a block of zero or negative size is requested.
	ErrInvalidSize = errors.New("block: size must be positive")

	// ErrOutOfMemory wraps every failure of the system allocator to
	// satisfy a block request.
	ErrOutOfMemory = errors.New("block: out of memory")

	// ErrReleased is returned by any operation on an allocator that has
	// already been released.
	ErrReleased = errors.New("block: use after Release()")

	// ErrCopied is returned when an allocator is used through a copy of the
	// value created by New.
	ErrCopied = errors.New("block: illegal use of copied Allocator")

	// ErrUnsupported is returned by systems that are unavailable on the
	// current platform.
	ErrUnsupported = errors.New("block: system allocator not supported on this platform")

	// ErrUnknownBlock is returned by Counting when asked to free a block it
	// never handed out, or one that was already freed.
	ErrUnknownBlock = errors.New("block: free of unknown block")
)
