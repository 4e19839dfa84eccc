package block

// NumBlocks returns the number of blocks allocated and not yet released.
// It equals the number of successful Allocate calls before Release.
func (a *Allocator) NumBlocks() int {
	return len(a.blocks)
}

// Capacity returns the total usable bytes across all blocks.
func (a *Allocator) Capacity() int {
	return a.bytes
}

// Released reports whether Release has run.
func (a *Allocator) Released() bool {
	return a.released
}

// Metrics returns a snapshot of allocator statistics.
func (a *Allocator) Metrics() Metrics {
	return Metrics{
		NumBlocks: a.NumBlocks(),
		Capacity:  a.Capacity(),
		Released:  a.released,
	}
}

// Metrics contains statistical information about an allocator.
type Metrics struct {
	NumBlocks int  // Blocks currently owned
	Capacity  int  // Usable bytes across all blocks
	Released  bool // Whether Release has run
}
