package workload

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pavanmanishd/objpool"
	"github.com/pavanmanishd/objpool/block"
)

func newPool(t *testing.T, batch int) *objpool.Pool[Order] {
	t.Helper()
	p, err := objpool.New[Order](batch, objpool.WithDebugChecks[Order]())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Release() })
	return p
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		wantMsg string
	}{
		{"ok", Config{Objects: 1, Rounds: 1, Order: LIFO}, nil, ""},
		{"zero objects", Config{Objects: 0, Rounds: 1, Order: LIFO}, nil, "objects must be positive"},
		{"negative rounds", Config{Objects: 1, Rounds: -1, Order: FIFO}, nil, "rounds must be positive"},
		{"unknown order", Config{Objects: 1, Rounds: 1, Order: "sideways"}, ErrUnknownOrder, ""},
		{"empty order", Config{Objects: 1, Rounds: 1}, ErrUnknownOrder, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantMsg != "":
				assert.ErrorContains(t, err, tt.wantMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunOrders(t *testing.T) {
	for _, order := range []string{LIFO, FIFO, Random} {
		t.Run(order, func(t *testing.T) {
			p := newPool(t, 8)
			rep, err := Run(context.Background(), Config{Objects: 20, Rounds: 5, Order: order, Seed: 7}, p)
			require.NoError(t, err)

			assert.Equal(t, 5, rep.Rounds)
			assert.Equal(t, 20, rep.Objects)
			assert.Equal(t, order, rep.Order)
			assert.Equal(t, 100, rep.Allocs)
			assert.Equal(t, 100, rep.Deallocs)
			assert.Equal(t, 0, rep.Pool.Live)
			assert.Equal(t, uint64(100), rep.Pool.Allocs)
			assert.Equal(t, uint64(100), rep.Pool.Deallocs)
			// 20 live objects at batch 8 need three blocks, reused every round.
			assert.Equal(t, 3, rep.Pool.Blocks)
			assert.Equal(t, 24, rep.Pool.Capacity)
			assert.Greater(t, rep.Elapsed.Nanoseconds(), int64(0))
		})
	}
}

func TestRunSafePool(t *testing.T) {
	p, err := objpool.NewSafe[Order](4)
	require.NoError(t, err)
	defer p.Release()

	rep, err := Run(context.Background(), Config{Objects: 9, Rounds: 2, Order: Random}, p)
	require.NoError(t, err)
	assert.Equal(t, 18, rep.Deallocs)
	assert.Equal(t, 3, rep.Pool.Blocks)
}

func TestRunInvalidConfig(t *testing.T) {
	p := newPool(t, 4)
	_, err := Run(context.Background(), Config{Objects: 1, Rounds: 1, Order: "up"}, p)
	assert.ErrorIs(t, err, ErrUnknownOrder)
	assert.Equal(t, uint64(0), p.Metrics().Allocs)
}

func TestRunCancelled(t *testing.T) {
	p := newPool(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Run(ctx, Config{Objects: 4, Rounds: 10, Order: LIFO}, p)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rep.Rounds)
	assert.Equal(t, 0, rep.Allocs)
}

// corrupting overwrites every object it hands out after construction.
type corrupting struct {
	*objpool.Pool[Order]
}

func (c corrupting) AllocFunc(init func(*Order)) (*Order, error) {
	o, err := c.Pool.AllocFunc(init)
	if err == nil {
		o.Price = -1
	}
	return o, err
}

func TestRunDetectsCorruption(t *testing.T) {
	p := newPool(t, 4)
	_, err := Run(context.Background(), Config{Objects: 2, Rounds: 1, Order: LIFO}, corrupting{p})
	assert.ErrorIs(t, err, ErrCorrupted)
}

// failing refuses every allocation.
type failing struct {
	*objpool.Pool[Order]
}

func (failing) AllocFunc(func(*Order)) (*Order, error) {
	return nil, objpool.ErrOutOfMemory
}

func TestRunAllocFailure(t *testing.T) {
	p := newPool(t, 4)
	rep, err := Run(context.Background(), Config{Objects: 2, Rounds: 1, Order: FIFO}, failing{p})
	assert.ErrorIs(t, err, objpool.ErrOutOfMemory)
	assert.ErrorContains(t, err, "round 0: alloc")
	assert.Equal(t, 0, rep.Allocs)
}

func TestRunReleasedPool(t *testing.T) {
	p := newPool(t, 4)
	rep, err := Run(context.Background(), Config{Objects: 3, Rounds: 2, Order: LIFO}, p)
	require.NoError(t, err)
	require.NoError(t, p.Release())

	_, err = Run(context.Background(), Config{Objects: 1, Rounds: 1, Order: LIFO}, p)
	assert.ErrorIs(t, err, objpool.ErrReleased)
	assert.Equal(t, 6, rep.Deallocs)
}

func sampleReport() Report {
	return Report{
		Rounds:   2,
		Objects:  3,
		Order:    FIFO,
		Allocs:   6,
		Deallocs: 6,
		Elapsed:  1500,
		NsPerOp:  125,
		Pool: objpool.Metrics{
			BatchSize: 4, SlotSize: 24, BlockBytes: 96,
			Blocks: 1, Capacity: 4, Free: 4,
			Allocs: 6, Deallocs: 6, Replenishes: 1,
		},
		System: &block.CountingStats{Allocs: 1, Frees: 1, BytesAlloc: 96, BytesFreed: 96},
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "fifo", got["order"])
	assert.EqualValues(t, 1500, got["elapsed_ns"])
	assert.EqualValues(t, 24, got["pool"].(map[string]any)["slot_size"])
	assert.EqualValues(t, 96, got["system"].(map[string]any)["bytes_freed"])
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestEncodeJSONWithoutSystem(t *testing.T) {
	rep := sampleReport()
	rep.System = nil
	var buf bytes.Buffer
	require.NoError(t, rep.Encode(&buf, FormatJSON))
	assert.NotContains(t, buf.String(), `"system"`)
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, FormatYAML))

	var got struct {
		Rounds int    `yaml:"rounds"`
		Order  string `yaml:"order"`
		Pool   struct {
			BlockBytes int `yaml:"block_bytes"`
		} `yaml:"pool"`
		System struct {
			Frees int `yaml:"frees"`
		} `yaml:"system"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Rounds)
	assert.Equal(t, FIFO, got.Order)
	assert.Equal(t, 96, got.Pool.BlockBytes)
	assert.Equal(t, 1, got.System.Frees)
}

func TestEncodeText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, FormatText))
	out := buf.String()

	assert.Contains(t, out, "order")
	assert.Contains(t, out, "fifo")
	assert.Contains(t, out, "125.00")
	assert.Contains(t, out, "system frees")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 15)
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := sampleReport().Encode(&buf, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.Zero(t, buf.Len())
}
