// Package gpio provides edge sources for the decoder with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"context"
	"errors"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// ErrUnsupported is returned when no GPIO character device is available.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Source yields transitions on the monitored data line.
type Source interface {
	// Next blocks until the next transition of polarity p and returns it.
	// A finite source returns io.EOF when exhausted.
	Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error)

	// SampleRate is the rate, in samples/s, that timestamps are expressed in.
	SampleRate() float64

	// Close releases resources.
	Close() error
}

// Defaults for the CD changer DATA OUT line.
const (
	DefaultChip       = "gpiochip0"
	DefaultLine       = 17
	DefaultSampleRate = 1_000_000 // microsecond timestamp resolution
)

// Bias selects the line's internal pull resistor.
type Bias string

const (
	BiasNone     Bias = ""
	BiasPullUp   Bias = "pull-up"
	BiasPullDown Bias = "pull-down"
)

// LineConfig selects and configures the input line.
type LineConfig struct {
	Chip       string
	Line       int
	ActiveLow  bool
	Bias       Bias
	SampleRate float64
}
