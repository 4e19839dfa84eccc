// Package workload drives synthetic allocate/release cycles against an
// object pool and reports what the pool did.
package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/eapache/queue"

	"github.com/pavanmanishd/objpool"
)

// Order is the element type the workload allocates.
type Order struct {
	ID    uint64
	Price float64
	Qty   uint32
	Side  uint8
	_     [3]byte
}

// Release orders.
const (
	LIFO   = "lifo"   // newest first, the pool's natural reuse order
	FIFO   = "fifo"   // oldest first
	Random = "random" // shuffled with Config.Seed
)

var (
	// ErrUnknownOrder is returned for an unrecognised release order.
	ErrUnknownOrder = errors.New("workload: unknown release order")

	// ErrCorrupted is returned when a live object no longer holds the
	// values it was constructed with.
	ErrCorrupted = errors.New("workload: live object corrupted")
)

// Allocator is the subset of the pool API the workload needs. Both
// *objpool.Pool[Order] and *objpool.SafePool[Order] implement it.
type Allocator interface {
	AllocFunc(init func(*Order)) (*Order, error)
	Dealloc(o *Order) error
	Metrics() objpool.Metrics
}

// Config describes one workload run.
type Config struct {
	Objects int    // objects held live per round
	Rounds  int    // allocate/release cycles
	Order   string // release order: lifo, fifo or random
	Seed    uint64 // seed for the random order
}

// Validate reports whether cfg describes a runnable workload.
func (cfg Config) Validate() error {
	if cfg.Objects <= 0 {
		return fmt.Errorf("workload: objects must be positive, got %d", cfg.Objects)
	}
	if cfg.Rounds <= 0 {
		return fmt.Errorf("workload: rounds must be positive, got %d", cfg.Rounds)
	}
	switch cfg.Order {
	case LIFO, FIFO, Random:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOrder, cfg.Order)
	}
}

// Run executes cfg against pool. Each round allocates cfg.Objects orders,
// verifies every one of them, then releases them in the configured order.
// Cancellation is checked between rounds.
func Run(ctx context.Context, cfg Config, pool Allocator) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	live := make([]*Order, 0, cfg.Objects)
	rep := Report{
		Objects: cfg.Objects,
		Order:   cfg.Order,
	}

	start := time.Now()
	var id uint64
	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			rep.finish(start, pool)
			return rep, err
		}

		for i := 0; i < cfg.Objects; i++ {
			id++
			n := id
			o, err := pool.AllocFunc(func(o *Order) {
				o.ID = n
				o.Price = float64(n) / 4
				o.Qty = uint32(n % 1000)
				o.Side = uint8(n & 1)
			})
			if err != nil {
				rep.finish(start, pool)
				return rep, fmt.Errorf("round %d: alloc: %w", round, err)
			}
			live = append(live, o)
			rep.Allocs++
		}

		for _, o := range live {
			if !intact(o) {
				rep.finish(start, pool)
				return rep, fmt.Errorf("%w: order %d", ErrCorrupted, o.ID)
			}
		}

		n, err := release(cfg, rng, live, pool)
		rep.Deallocs += n
		if err != nil {
			rep.finish(start, pool)
			return rep, fmt.Errorf("round %d: dealloc: %w", round, err)
		}
		live = live[:0]
		rep.Rounds++
	}

	rep.finish(start, pool)
	return rep, nil
}

func intact(o *Order) bool {
	return o.Price == float64(o.ID)/4 && o.Qty == uint32(o.ID%1000) && o.Side == uint8(o.ID&1)
}

func release(cfg Config, rng *rand.Rand, live []*Order, pool Allocator) (int, error) {
	n := 0
	switch cfg.Order {
	case LIFO:
		for i := len(live) - 1; i >= 0; i-- {
			if err := pool.Dealloc(live[i]); err != nil {
				return n, err
			}
			n++
		}
	case FIFO:
		q := queue.New()
		for _, o := range live {
			q.Add(o)
		}
		for q.Length() > 0 {
			if err := pool.Dealloc(q.Remove().(*Order)); err != nil {
				return n, err
			}
			n++
		}
	case Random:
		rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
		for _, o := range live {
			if err := pool.Dealloc(o); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
