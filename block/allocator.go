// Package block implements an arena of raw memory blocks.
// Blocks are requested from a System one at a time and are given back
// only in bulk, when the Allocator is released.
package block

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// noCopy makes `go vet` flag copies of structs that embed it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Allocator hands out raw blocks and owns all of them until Release.
// Not goroutine-safe.
//
// An Allocator must not be copied after first use: returned blocks are
// tied to the identity of the value that created them. The zero value is
// ready to use with the Default system.
type Allocator struct {
	_ noCopy

	self     *Allocator
	sys      System
	log      *zap.Logger
	blocks   [][]byte // oldest first, tail is the newest block
	bytes    int
	released bool
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSystem sets the system allocator blocks are requested from.
func WithSystem(sys System) Option {
	return func(a *Allocator) {
		if sys != nil {
			a.sys = sys
		}
	}
}

// WithLogger sets the logger used for block acquisition and release.
func WithLogger(log *zap.Logger) Option {
	return func(a *Allocator) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an Allocator with an empty block chain.
func New(opts ...Option) *Allocator {
	a := &Allocator{}
	for _, opt := range opts {
		opt(a)
	}
	a.init()
	return a
}

func (a *Allocator) init() {
	a.self = a
	if a.sys == nil {
		a.sys = Default()
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
}

func (a *Allocator) check() error {
	if a.self == nil {
		a.init()
	} else if a.self != a {
		return ErrCopied
	}
	if a.released {
		return ErrReleased
	}
	return nil
}

// Allocate requests a new block of exactly size usable bytes and appends it
// to the chain. Previously returned blocks are never inspected or reused.
// The block stays valid until Release.
func (a *Allocator) Allocate(size int) ([]byte, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	b, err := a.sys.Alloc(size)
	if err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	if len(b) < size {
		// A short block must never reach the caller. It is not ours to
		// keep either, so hand whatever came back to the system.
		if len(b) > 0 {
			_ = a.sys.Free(b)
		}
		return nil, fmt.Errorf("%w: system returned %d of %d bytes", ErrOutOfMemory, len(b), size)
	}
	b = b[:size:size]

	a.blocks = append(a.blocks, b)
	a.bytes += size
	a.log.Debug("block acquired",
		zap.Int("size", size),
		zap.Int("blocks", len(a.blocks)),
		zap.Int("bytes", a.bytes))
	return b, nil
}

// Release frees every block, newest first, exactly once. The allocator is
// unusable afterwards and a second Release returns ErrReleased. Free errors
// from the system do not stop the walk; they are joined and returned.
func (a *Allocator) Release() error {
	if err := a.check(); err != nil {
		return err
	}
	a.released = true

	var errs []error
	for i := len(a.blocks) - 1; i >= 0; i-- {
		if err := a.sys.Free(a.blocks[i]); err != nil {
			errs = append(errs, fmt.Errorf("block %d: %w", i, err))
		}
		a.blocks[i] = nil
	}
	n := len(a.blocks)
	a.blocks = nil
	a.bytes = 0

	err := errors.Join(errs...)
	if err != nil {
		a.log.Warn("block release failed", zap.Int("blocks", n), zap.Error(err))
		return err
	}
	a.log.Debug("blocks released", zap.Int("blocks", n))
	return nil
}
