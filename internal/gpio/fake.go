package gpio

import (
	"context"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// FakeSource is a test double that returns scripted edges.
type FakeSource struct {
	// Edges contains the scripted transitions in order.
	Edges []cdc.EdgeEvent

	// Rate is returned by SampleRate.
	Rate float64

	// index tracks current position in Edges
	index int

	// Closed tracks if Close was called
	Closed bool

	// NextError, if set, will be returned by Next.
	NextError error

	// Requested records the polarity asked for on each call to Next.
	Requested []cdc.Polarity
}

// NewFakeSource creates a FakeSource with the given edges.
func NewFakeSource(rate float64, edges []cdc.EdgeEvent) *FakeSource {
	return &FakeSource{Edges: edges, Rate: rate}
}

// Next returns the next scripted edge matching p, skipping others.
// Returns io.EOF once the script is exhausted.
func (f *FakeSource) Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error) {
	f.Requested = append(f.Requested, p)
	if f.NextError != nil {
		return cdc.EdgeEvent{}, f.NextError
	}
	return nextMatching(ctx, f.Edges, &f.index, p)
}

// SampleRate returns the scripted rate.
func (f *FakeSource) SampleRate() float64 {
	return f.Rate
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the source to the beginning of the script.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Closed = false
	f.Requested = nil
}
