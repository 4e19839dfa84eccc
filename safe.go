package objpool

import "sync"

// SafePool is a mutex-protected wrapper around Pool for concurrent access.
// All operations are thread-safe but come with the overhead of mutex locking.
// Sharding one Pool per goroutine avoids that overhead entirely.
type SafePool[T any] struct {
	mu sync.Mutex
	p  *Pool[T]
}

// NewSafe creates a new thread-safe pool. Arguments are as for New.
func NewSafe[T any](batch int, opts ...Option[T]) (*SafePool[T], error) {
	p, err := New(batch, opts...)
	if err != nil {
		return nil, err
	}
	return &SafePool[T]{p: p}, nil
}

// Alloc thread-safely returns a zero-valued T.
func (s *SafePool[T]) Alloc() (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Alloc()
}

// AllocValue thread-safely returns a T initialized to a copy of v.
func (s *SafePool[T]) AllocValue(v T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.AllocValue(v)
}

// AllocFunc thread-safely returns a T constructed in place by init.
// init runs with the pool locked and must not call back into s.
func (s *SafePool[T]) AllocFunc(init func(*T)) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.AllocFunc(init)
}

// Dealloc thread-safely returns obj's slot to the pool.
func (s *SafePool[T]) Dealloc(obj *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Dealloc(obj)
}

// Replenish thread-safely carves one more block into free slots.
func (s *SafePool[T]) Replenish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Replenish()
}

// Release thread-safely frees every block and makes the pool unusable.
func (s *SafePool[T]) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Release()
}
