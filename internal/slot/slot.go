// Package slot is the raw-memory boundary of the pool. It is the only
// place that reinterprets block bytes as free-list links or as typed
// objects.
//
// A slot is either free, in which case its first word holds the address
// of the next free slot, or live, in which case it holds a T. Slots live
// in memory the garbage collector does not scan, so T must not contain
// Go pointers (see CheckType).
package slot

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// Link is the address of a slot. Nil terminates a free list.
type Link uintptr

// Nil is the empty free list.
const Nil Link = 0

// LinkSize is the number of bytes a free slot needs to hold its link.
const LinkSize = unsafe.Sizeof(Link(0))

var (
	// ErrTooSmall is returned for types that cannot hold a free-list link.
	ErrTooSmall = errors.New("slot: type smaller than a free-list link")

	// ErrHasPointers is returned for types containing Go pointers.
	ErrHasPointers = errors.New("slot: type contains Go pointers")

	// ErrMisaligned is returned when a block's base address does not
	// satisfy the slot alignment.
	ErrMisaligned = errors.New("slot: block is misaligned")

	// ErrBadBlock is returned when a block is not a whole number of slots.
	ErrBadBlock = errors.New("slot: block size is not a multiple of the slot stride")
)

// Layout describes how objects of one type are packed into a block.
// Slots are exactly Size bytes apart, so consecutive slots stay aligned for
// T but a free slot's link word may sit at an address that is not aligned
// for a Link. Links are therefore always moved as bytes.
type Layout struct {
	Size   uintptr // unsafe.Sizeof(T)
	Align  uintptr // unsafe.Alignof(T), required of a block's base
	Stride uintptr // distance between consecutive slots, equal to Size
}

// LayoutOf returns the slot layout for T.
func LayoutOf[T any]() Layout {
	var zero T
	size := unsafe.Sizeof(zero)
	return Layout{
		Size:   size,
		Align:  unsafe.Alignof(zero),
		Stride: size,
	}
}

// CheckType reports whether T can be stored in a slot.
func CheckType[T any]() error {
	l := LayoutOf[T]()
	t := reflect.TypeFor[T]()
	if l.Size < LinkSize {
		return fmt.Errorf("%w: %s is %d bytes, need %d", ErrTooSmall, t, l.Size, LinkSize)
	}
	if hasPointers(t) {
		return fmt.Errorf("%w: %s", ErrHasPointers, t)
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	default:
		return false
	}
}

// Base returns the link of the first slot of block.
func Base(block []byte) Link {
	return Link(uintptr(unsafe.Pointer(unsafe.SliceData(block))))
}

// Carve partitions block into slots and links them in ascending address
// order. The last slot points at next, so carving onto a non-empty list
// prepends the new slots instead of orphaning the old ones. It returns
// the new head.
func Carve(block []byte, l Layout, next Link) (Link, error) {
	n := uintptr(len(block))
	if l.Stride == 0 || n < l.Stride || n%l.Stride != 0 {
		return Nil, fmt.Errorf("%w: %d bytes, stride %d", ErrBadBlock, n, l.Stride)
	}
	base := unsafe.Pointer(unsafe.SliceData(block))
	if uintptr(base)%l.Align != 0 {
		return Nil, fmt.Errorf("%w: base %p, align %d", ErrMisaligned, base, l.Align)
	}

	// Walk backwards so each slot can point at its successor.
	for off := n - l.Stride; ; off -= l.Stride {
		p := unsafe.Add(base, off)
		store(p, next)
		next = Link(uintptr(p))
		if off == 0 {
			break
		}
	}
	return next, nil
}

// ReadLink returns the successor stored in a free slot.
func ReadLink(s Link) Link {
	return load(s.pointer())
}

// WriteLink turns s into a free slot pointing at next.
func WriteLink(s Link, next Link) {
	store(s.pointer(), next)
}

// Construct zeroes the slot and returns it as a live *T.
func Construct[T any](s Link) *T {
	p := (*T)(s.pointer())
	var zero T
	*p = zero
	return p
}

// Assume returns the slot as a *T without touching its contents.
// The caller must initialize every field before reading any.
func Assume[T any](s Link) *T {
	return (*T)(s.pointer())
}

// Of returns the slot holding p.
func Of[T any](p *T) Link {
	return Link(uintptr(unsafe.Pointer(p)))
}

// Contains reports whether s is a slot boundary inside the n-byte block
// starting at base.
func Contains(base Link, n, stride uintptr, s Link) bool {
	if s < base || uintptr(s-base) >= n {
		return false
	}
	return uintptr(s-base)%stride == 0
}

// load and store access the first LinkSize bytes of a slot. Byte arrays
// have alignment 1, so neither depends on the slot's address.
func load(p unsafe.Pointer) Link {
	var l Link
	*(*[LinkSize]byte)(unsafe.Pointer(&l)) = *(*[LinkSize]byte)(p)
	return l
}

func store(p unsafe.Pointer, l Link) {
	*(*[LinkSize]byte)(p) = *(*[LinkSize]byte)(unsafe.Pointer(&l))
}

// pointer converts a link back to an address. Blocks are pinned by the
// block allocator and never move, so the address stays valid until the
// allocator is released.
//
//go:nocheckptr
func (s Link) pointer() unsafe.Pointer {
	return unsafe.Pointer(s)
}
