package objpool

import (
	"go.uber.org/zap"

	"github.com/pavanmanishd/objpool/block"
)

// Option configures a Pool.
type Option[T any] func(*config[T])

type config[T any] struct {
	sys     block.System
	log     *zap.Logger
	debug   bool
	cleanup func(*T)
}

// WithSystem sets the system allocator behind the pool's blocks.
// Defaults to block.Default().
func WithSystem[T any](sys block.System) Option[T] {
	return func(c *config[T]) { c.sys = sys }
}

// WithLogger sets the logger for replenish and release events.
func WithLogger[T any](log *zap.Logger) Option[T] {
	return func(c *config[T]) { c.log = log }
}

// WithDebugChecks makes Dealloc track live handles and reject double frees
// and foreign handles. Costs one map operation per Alloc and Dealloc.
func WithDebugChecks[T any]() Option[T] {
	return func(c *config[T]) { c.debug = true }
}

// WithCleanup registers fn to run on every object passed to Dealloc,
// before its slot is recycled. Without it, the caller is responsible for
// any resources an object refers to.
func WithCleanup[T any](fn func(*T)) Option[T] {
	return func(c *config[T]) { c.cleanup = fn }
}
