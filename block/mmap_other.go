//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package block

// Mmap is unavailable on this platform; Alloc always fails.
type Mmap struct{}

func (Mmap) Alloc(int) ([]byte, error) { return nil, ErrUnsupported }

func (Mmap) Free([]byte) error { return ErrUnsupported }

// Default returns the System used when none is configured.
func Default() System {
	return &Heap{}
}
