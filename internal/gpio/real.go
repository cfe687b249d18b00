//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// eventBuffer is deep enough for several frames of edges (one frame is 67).
const eventBuffer = 1024

// RealSource reads edges from actual hardware using the Linux GPIO character device.
// The kernel timestamps each edge; timestamps are rescaled to the configured
// sample rate relative to the first edge seen.
type RealSource struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	events chan gpiocdev.LineEvent
	rate   float64

	origin    time.Duration
	hasOrigin bool

	dropped atomic.Uint64
}

// NewRealSource requests the configured line as an input with both-edge detection.
func NewRealSource(cfg LineConfig) (*RealSource, error) {
	if cfg.Chip == "" {
		cfg.Chip = DefaultChip
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}

	r := &RealSource{
		chip:   chip,
		events: make(chan gpiocdev.LineEvent, eventBuffer),
		rate:   cfg.SampleRate,
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handle),
	}
	switch cfg.Bias {
	case BiasPullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case BiasPullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(cfg.Line, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request line %d: %w", cfg.Line, err)
	}
	r.line = line
	return r, nil
}

// handle runs on the gpiocdev watcher goroutine. It never blocks; edges that
// do not fit in the buffer are counted and lost.
func (r *RealSource) handle(evt gpiocdev.LineEvent) {
	select {
	case r.events <- evt:
	default:
		r.dropped.Add(1)
	}
}

// Next blocks until an edge of polarity p arrives or ctx is done.
func (r *RealSource) Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error) {
	for {
		select {
		case <-ctx.Done():
			return cdc.EdgeEvent{}, ctx.Err()
		case evt := <-r.events:
			if !r.hasOrigin {
				r.origin = evt.Timestamp
				r.hasOrigin = true
			}
			level := evt.Type == gpiocdev.LineEventRisingEdge
			if !p.Matches(level) {
				continue
			}
			return cdc.EdgeEvent{
				Timestamp: toSamples(evt.Timestamp-r.origin, r.rate),
				Level:     level,
			}, nil
		}
	}
}

func toSamples(d time.Duration, rate float64) int64 {
	return int64(float64(d.Nanoseconds()) * rate / 1e9)
}

// SampleRate returns the rate timestamps are expressed in.
func (r *RealSource) SampleRate() float64 {
	return r.rate
}

// Dropped returns how many edges were lost to a full buffer.
func (r *RealSource) Dropped() uint64 {
	return r.dropped.Load()
}

// Close releases the line and chip.
func (r *RealSource) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
