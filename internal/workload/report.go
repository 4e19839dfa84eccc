package workload

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/pavanmanishd/objpool"
	"github.com/pavanmanishd/objpool/block"
)

// Report encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// ErrUnknownFormat is returned by Encode for an unrecognised format.
var ErrUnknownFormat = errors.New("workload: unknown report format")

// Report summarises a workload run.
type Report struct {
	Rounds   int             `json:"rounds" yaml:"rounds"`
	Objects  int             `json:"objects" yaml:"objects"`
	Order    string          `json:"order" yaml:"order"`
	Allocs   int             `json:"allocs" yaml:"allocs"`
	Deallocs int             `json:"deallocs" yaml:"deallocs"`
	Elapsed  time.Duration   `json:"elapsed_ns" yaml:"elapsed"`
	NsPerOp  float64         `json:"ns_per_op" yaml:"ns_per_op"`
	Pool     objpool.Metrics `json:"pool" yaml:"pool"`

	// System is filled in by callers that count system allocator traffic.
	System *block.CountingStats `json:"system,omitempty" yaml:"system,omitempty"`
}

func (r *Report) finish(start time.Time, pool Allocator) {
	r.Elapsed = time.Since(start)
	if ops := r.Allocs + r.Deallocs; ops > 0 {
		r.NsPerOp = float64(r.Elapsed.Nanoseconds()) / float64(ops)
	}
	r.Pool = pool.Metrics()
}

// Encode writes r to w in the given format.
func (r Report) Encode(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText:
		return r.encodeText(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func (r Report) encodeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	type row struct {
		k string
		v any
	}
	rows := []row{
		{"rounds", r.Rounds},
		{"objects", r.Objects},
		{"order", r.Order},
		{"allocs", r.Allocs},
		{"deallocs", r.Deallocs},
		{"elapsed", r.Elapsed},
		{"ns/op", fmt.Sprintf("%.2f", r.NsPerOp)},
		{"batch size", r.Pool.BatchSize},
		{"slot size", r.Pool.SlotSize},
		{"blocks", r.Pool.Blocks},
		{"capacity", r.Pool.Capacity},
		{"live", r.Pool.Live},
		{"replenishes", r.Pool.Replenishes},
	}
	if r.System != nil {
		rows = append(rows,
			row{"system allocs", r.System.Allocs},
			row{"system frees", r.System.Frees},
		)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%v\n", row.k, row.v); err != nil {
			return err
		}
	}
	return tw.Flush()
}
