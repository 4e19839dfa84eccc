package objpool

// Len returns the number of live objects: allocated and not yet deallocated.
func (p *Pool[T]) Len() int {
	return p.inUse
}

// BatchSize returns the number of objects carved from each block.
func (p *Pool[T]) BatchSize() int {
	return p.batch
}

// Capacity returns the number of slots across all blocks of the pool.
func (p *Pool[T]) Capacity() int {
	if p.released {
		return 0
	}
	return int(p.replenishes) * p.batch
}

// Utilization returns the ratio of live objects to capacity (0.0 to 1.0).
// Returns 0.0 if the pool has no capacity.
func (p *Pool[T]) Utilization() float64 {
	capacity := p.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(p.inUse) / float64(capacity)
}

// Metrics returns a snapshot of pool statistics.
func (p *Pool[T]) Metrics() Metrics {
	capacity := p.Capacity()
	live := p.inUse
	if p.released {
		live = 0
	}
	return Metrics{
		BatchSize:   p.batch,
		SlotSize:    int(p.layout.Stride),
		BlockBytes:  p.blockBytes,
		Blocks:      p.blocks.NumBlocks(),
		Capacity:    capacity,
		Live:        live,
		Free:        capacity - live,
		Allocs:      p.allocs,
		Deallocs:    p.deallocs,
		Replenishes: p.replenishes,
		Utilization: p.Utilization(),
	}
}

// Metrics contains statistical information about a pool.
type Metrics struct {
	BatchSize   int     `json:"batch_size" yaml:"batch_size"`   // Objects per block
	SlotSize    int     `json:"slot_size" yaml:"slot_size"`     // Bytes per slot
	BlockBytes  int     `json:"block_bytes" yaml:"block_bytes"` // Bytes requested per block
	Blocks      int     `json:"blocks" yaml:"blocks"`           // Blocks owned
	Capacity    int     `json:"capacity" yaml:"capacity"`       // Slots across all blocks
	Live        int     `json:"live" yaml:"live"`               // Objects handed out
	Free        int     `json:"free" yaml:"free"`               // Slots on the free list
	Allocs      uint64  `json:"allocs" yaml:"allocs"`           // Successful Alloc calls
	Deallocs    uint64  `json:"deallocs" yaml:"deallocs"`       // Successful Dealloc calls
	Replenishes uint64  `json:"replenishes" yaml:"replenishes"` // Blocks carved
	Utilization float64 `json:"utilization" yaml:"utilization"` // Live / Capacity
}

// Thread-safe metrics for SafePool

// Len thread-safely returns the number of live objects.
func (s *SafePool[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Len()
}

// Capacity thread-safely returns the number of slots across all blocks.
func (s *SafePool[T]) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Capacity()
}

// Utilization thread-safely returns the ratio of live objects to capacity.
func (s *SafePool[T]) Utilization() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Utilization()
}

// Metrics thread-safely returns a snapshot of pool statistics.
func (s *SafePool[T]) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Metrics()
}
