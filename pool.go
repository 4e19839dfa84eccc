package objpool

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pavanmanishd/objpool/block"
	"github.com/pavanmanishd/objpool/internal/slot"
)

// DefaultBatchSize is the number of objects per block when New is given
// a non-positive batch size.
const DefaultBatchSize = 16

// noCopy makes `go vet` flag copies of structs that embed it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Pool hands out fixed-size objects of type T carved from blocks of a
// private block.Allocator. Freed objects are recycled through an
// intrusive LIFO free list. Not goroutine-safe; use SafePool or one pool
// per goroutine for concurrent access.
//
// A Pool must be created with New and must not be copied.
type Pool[T any] struct {
	_ noCopy

	self       *Pool[T]
	blocks     *block.Allocator
	layout     slot.Layout
	batch      int
	blockBytes int
	head       slot.Link

	log     *zap.Logger
	cleanup func(*T)

	// Debug checks only.
	live  map[slot.Link]struct{}
	bases []slot.Link

	inUse       int
	allocs      uint64
	deallocs    uint64
	replenishes uint64
	released    bool
}

// New creates a pool of T with batch objects per block and replenishes it
// once, so the first batch allocations never touch the system allocator.
// If batch <= 0, DefaultBatchSize is used.
//
// New fails without allocating when T is smaller than a free-list link
// (ErrTooSmall), contains Go pointers (ErrHasPointers), or when a block of
// batch objects overflows (ErrBatchTooLarge).
func New[T any](batch int, opts ...Option[T]) (*Pool[T], error) {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	if err := slot.CheckType[T](); err != nil {
		return nil, fmt.Errorf("objpool: %w", err)
	}

	layout := slot.LayoutOf[T]()
	if uint64(batch) > uint64(math.MaxInt)/uint64(layout.Stride) {
		return nil, fmt.Errorf("%w: %d objects of %d bytes", ErrBatchTooLarge, batch, layout.Stride)
	}

	var cfg config[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}

	p := &Pool[T]{
		blocks: block.New(
			block.WithSystem(cfg.sys),
			block.WithLogger(cfg.log),
		),
		layout:     layout,
		batch:      batch,
		blockBytes: batch * int(layout.Stride),
		head:       slot.Nil,
		log:        cfg.log,
		cleanup:    cfg.cleanup,
	}
	p.self = p
	if cfg.debug {
		p.live = make(map[slot.Link]struct{})
	}

	if err := p.Replenish(); err != nil {
		if relErr := p.blocks.Release(); relErr != nil {
			err = errors.Join(err, fmt.Errorf("objpool: release: %w", relErr))
		}
		return nil, err
	}
	return p, nil
}

func (p *Pool[T]) check() error {
	if p.self != p {
		return ErrCopied
	}
	if p.released {
		return ErrReleased
	}
	return nil
}

// Alloc returns a zero-valued T. The pointer stays valid, at a fixed
// address, until it is passed to Dealloc or the pool is released.
func (p *Pool[T]) Alloc() (*T, error) {
	s, err := p.pop()
	if err != nil {
		return nil, err
	}
	return slot.Construct[T](s), nil
}

// AllocValue returns a T initialized to a copy of v.
func (p *Pool[T]) AllocValue(v T) (*T, error) {
	s, err := p.pop()
	if err != nil {
		return nil, err
	}
	obj := slot.Assume[T](s)
	*obj = v
	return obj, nil
}

// AllocFunc returns a T constructed in place: the slot is zeroed and then
// passed to init. Constructor arguments are whatever init closes over.
func (p *Pool[T]) AllocFunc(init func(*T)) (*T, error) {
	s, err := p.pop()
	if err != nil {
		return nil, err
	}
	obj := slot.Construct[T](s)
	if init != nil {
		init(obj)
	}
	return obj, nil
}

func (p *Pool[T]) pop() (slot.Link, error) {
	if err := p.check(); err != nil {
		return slot.Nil, err
	}
	if p.head == slot.Nil {
		if err := p.Replenish(); err != nil {
			return slot.Nil, err
		}
	}

	s := p.head
	p.head = slot.ReadLink(s)
	if p.live != nil {
		p.live[s] = struct{}{}
	}
	p.inUse++
	p.allocs++
	return s, nil
}

// Dealloc returns obj's slot to the pool. It runs the cleanup registered
// with WithCleanup, if any, then makes the slot the head of the free list,
// so the next Alloc returns the same address. obj must not be used
// afterwards.
//
// Without debug checks, passing a handle twice or one from another pool
// corrupts the free list.
func (p *Pool[T]) Dealloc(obj *T) error {
	if err := p.check(); err != nil {
		return err
	}
	if obj == nil {
		return ErrNilHandle
	}

	s := slot.Of(obj)
	if p.live != nil {
		if _, ok := p.live[s]; !ok {
			if p.owns(s) {
				return fmt.Errorf("%w: %#x", ErrDoubleFree, uintptr(s))
			}
			return fmt.Errorf("%w: %#x", ErrForeignHandle, uintptr(s))
		}
		delete(p.live, s)
	}

	if p.cleanup != nil {
		p.cleanup(obj)
	}
	slot.WriteLink(s, p.head)
	p.head = s
	p.inUse--
	p.deallocs++
	return nil
}

func (p *Pool[T]) owns(s slot.Link) bool {
	for _, base := range p.bases {
		if slot.Contains(base, uintptr(p.blockBytes), p.layout.Stride, s) {
			return true
		}
	}
	return false
}

// Replenish requests one block from the allocator and carves it into
// BatchSize free slots, consumed in ascending address order. Alloc calls it
// when the free list runs dry; calling it early pre-warms the pool. The new
// slots are placed in front of any slots already free, none are lost.
func (p *Pool[T]) Replenish() error {
	if err := p.check(); err != nil {
		return err
	}

	b, err := p.blocks.Allocate(p.blockBytes)
	if err != nil {
		p.log.Warn("pool replenish failed", zap.Int("block_bytes", p.blockBytes), zap.Error(err))
		return fmt.Errorf("objpool: replenish: %w", err)
	}
	head, err := slot.Carve(b, p.layout, p.head)
	if err != nil {
		// The block stays owned by the allocator and is freed at Release,
		// but none of its slots are ever handed out.
		p.log.Warn("pool replenish discarded block",
			zap.Int("block_bytes", p.blockBytes),
			zap.Int("blocks", p.blocks.NumBlocks()),
			zap.Error(err))
		return fmt.Errorf("objpool: replenish: %w", err)
	}
	p.head = head
	if p.live != nil {
		p.bases = append(p.bases, slot.Base(b))
	}
	p.replenishes++

	p.log.Debug("pool replenished",
		zap.Int("batch", p.batch),
		zap.Uintptr("slot_size", p.layout.Stride),
		zap.Int("blocks", p.blocks.NumBlocks()))
	return nil
}

// Release frees every block of the pool in one pass. Objects still live
// are invalidated without cleanup. The pool is unusable afterwards.
func (p *Pool[T]) Release() error {
	if err := p.check(); err != nil {
		return err
	}
	p.released = true
	p.head = slot.Nil
	p.live = nil
	p.bases = nil

	if p.inUse > 0 {
		p.log.Debug("pool released with live objects", zap.Int("live", p.inUse))
	}
	if err := p.blocks.Release(); err != nil {
		return fmt.Errorf("objpool: release: %w", err)
	}
	return nil
}
