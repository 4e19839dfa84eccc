// Package objpool implements a typed fixed-size object pool on top of a
// block arena, for hot paths that must not allocate per object.
//
// # Overview
//
// Memory is managed in two tiers:
//
//   - block.Allocator requests large raw blocks from a block.System (mmap on
//     unix by default) and frees all of them at once, only when released.
//   - Pool[T] carves each block into BatchSize slots of T and recycles freed
//     slots through an intrusive free list: the first word of a free slot
//     holds the address of the next free slot.
//
// After warm-up, Alloc and Dealloc are O(1) and never call the system
// allocator or the Go heap.
//
// # Basic Usage
//
//	type Order struct {
//		ID    uint64
//		Price float64
//	}
//
//	pool, err := objpool.New[Order](1024)
//	if err != nil {
//		return err
//	}
//	defer pool.Release()
//
//	o, err := pool.AllocFunc(func(o *Order) { o.ID, o.Price = 42, 9.5 })
//	if err != nil {
//		return err
//	}
//	// ... use o ...
//	pool.Dealloc(o)
//
// # Element Types
//
// T must be at least one machine word large and must not contain Go
// pointers (strings, slices, maps, interfaces, pointers). Pool memory is not
// scanned by the garbage collector. New rejects other types before
// allocating anything.
//
// # Reuse Order
//
// The free list is a LIFO stack: the most recently freed object is the next
// one returned. Slots of a freshly carved block are handed out in ascending
// address order.
//
// # Thread Safety
//
// Pool is not thread-safe. Shard pools per goroutine, or use SafePool:
//
//	safe, _ := objpool.NewSafe[Order](1024)
//	o, _ := safe.Alloc()
//	safe.Dealloc(o)
//
// # Misuse
//
// Dealloc does not validate handles by default: a double free or a foreign
// handle corrupts the free list. WithDebugChecks turns both into errors
// (ErrDoubleFree, ErrForeignHandle) at the cost of a map lookup per call.
//
// # Cleanup
//
// Dealloc does not run any destructor unless one is registered with
// WithCleanup. Objects still live at Release are discarded without cleanup.
package objpool
