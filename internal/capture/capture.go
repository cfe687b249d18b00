// Package capture replays raw logic captures as edge sources.
//
// The input format is the one written by `sigrok-cli -O binary` for up to
// eight channels: one byte per sample, channel n in bit n.
package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// ctxCheckInterval is how many samples are scanned between context checks.
const ctxCheckInterval = 1 << 16

// Reader scans a sample stream for transitions on one channel.
type Reader struct {
	r       *bufio.Reader
	closer  io.Closer
	mask    byte
	rate    float64
	sample  int64
	level   bool
	started bool
}

// NewReader returns a Reader for channel (0-7) of r, sampled at rate.
// If r is an io.Closer it is closed by Close.
func NewReader(r io.Reader, channel uint, rate float64) (*Reader, error) {
	if channel > 7 {
		return nil, fmt.Errorf("capture: channel %d out of range 0-7", channel)
	}
	if !(rate > 0) {
		return nil, fmt.Errorf("capture: %w", cdc.ErrInvalidSampleRate)
	}
	c, _ := r.(io.Closer)
	return &Reader{
		r:      bufio.NewReaderSize(r, 64*1024),
		closer: c,
		mask:   1 << channel,
		rate:   rate,
	}, nil
}

// Next returns the next transition of polarity p. The first sample sets the
// initial line level and is never itself an edge.
func (c *Reader) Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error) {
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return cdc.EdgeEvent{}, err
			}
		}
		b, err := c.r.ReadByte()
		if err != nil {
			return cdc.EdgeEvent{}, err
		}
		idx := c.sample
		c.sample++

		level := b&c.mask != 0
		if !c.started {
			c.started = true
			c.level = level
			continue
		}
		if level == c.level {
			continue
		}
		c.level = level
		if p.Matches(level) {
			return cdc.EdgeEvent{Timestamp: idx, Level: level}, nil
		}
	}
}

// SampleRate returns the capture's sample rate.
func (c *Reader) SampleRate() float64 {
	return c.rate
}

// Samples returns how many samples have been consumed.
func (c *Reader) Samples() int64 {
	return c.sample
}

// Close closes the underlying reader if it is closable.
func (c *Reader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
