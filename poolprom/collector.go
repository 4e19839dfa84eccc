// Package poolprom exports object pool statistics as Prometheus metrics.
//
//	pool, _ := objpool.NewSafe[Order](1024)
//	prometheus.MustRegister(poolprom.NewCollector("orders", pool))
//
// The collector reads a fresh Metrics snapshot on every scrape. Scrapes run
// on their own goroutine, so the source must be safe for concurrent use;
// wrap a plain Pool in a SafePool.
package poolprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/objpool"
)

const namespace = "objpool"

// Source provides pool statistics. Both *objpool.Pool and
// *objpool.SafePool implement it.
type Source interface {
	Metrics() objpool.Metrics
}

// Collector is a prometheus.Collector for one pool.
type Collector struct {
	src Source

	live        *prometheus.Desc
	free        *prometheus.Desc
	capacity    *prometheus.Desc
	blocks      *prometheus.Desc
	blockBytes  *prometheus.Desc
	allocs      *prometheus.Desc
	deallocs    *prometheus.Desc
	replenishes *prometheus.Desc
}

// NewCollector creates a collector whose metrics carry the label pool=name.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}
	return &Collector{
		src:         src,
		live:        desc("live_objects", "Objects currently handed out by the pool."),
		free:        desc("free_slots", "Slots on the pool's free list."),
		capacity:    desc("capacity_slots", "Slots across all blocks of the pool."),
		blocks:      desc("blocks", "Blocks owned by the pool's block allocator."),
		blockBytes:  desc("block_bytes", "Bytes requested from the system per block."),
		allocs:      desc("allocs_total", "Objects allocated from the pool."),
		deallocs:    desc("deallocs_total", "Objects returned to the pool."),
		replenishes: desc("replenish_total", "Blocks carved into slots."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.live
	ch <- c.free
	ch <- c.capacity
	ch <- c.blocks
	ch <- c.blockBytes
	ch <- c.allocs
	ch <- c.deallocs
	ch <- c.replenishes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}

	gauge(c.live, float64(m.Live))
	gauge(c.free, float64(m.Free))
	gauge(c.capacity, float64(m.Capacity))
	gauge(c.blocks, float64(m.Blocks))
	gauge(c.blockBytes, float64(m.BlockBytes))
	counter(c.allocs, float64(m.Allocs))
	counter(c.deallocs, float64(m.Deallocs))
	counter(c.replenishes, float64(m.Replenishes))
}

var _ prometheus.Collector = (*Collector)(nil)
