package gpio

import (
	"context"
	"io"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// Replay is a Source over a fixed slice of edges, such as a synthesized
// signal.
type Replay struct {
	edges []cdc.EdgeEvent
	rate  float64
	pos   int
}

// NewReplay returns a Source that yields edges at rate.
func NewReplay(rate float64, edges []cdc.EdgeEvent) *Replay {
	return &Replay{edges: edges, rate: rate}
}

// Next returns the next edge matching p, or io.EOF.
func (r *Replay) Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error) {
	return nextMatching(ctx, r.edges, &r.pos, p)
}

// SampleRate returns the rate edges are expressed in.
func (r *Replay) SampleRate() float64 {
	return r.rate
}

// Close is a no-op.
func (r *Replay) Close() error {
	return nil
}

// nextMatching advances *pos past edges that do not match p and returns the
// first one that does.
func nextMatching(ctx context.Context, edges []cdc.EdgeEvent, pos *int, p cdc.Polarity) (cdc.EdgeEvent, error) {
	for *pos < len(edges) {
		if err := ctx.Err(); err != nil {
			return cdc.EdgeEvent{}, err
		}
		e := edges[*pos]
		*pos++
		if p.Matches(e.Level) {
			return e, nil
		}
	}
	return cdc.EdgeEvent{}, io.EOF
}
