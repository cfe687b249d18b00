//go:build !linux

package gpio

import (
	"context"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(cfg LineConfig) (*RealSource, error) {
	return nil, ErrUnsupported
}

// Next is not implemented on non-Linux platforms.
func (r *RealSource) Next(ctx context.Context, p cdc.Polarity) (cdc.EdgeEvent, error) {
	return cdc.EdgeEvent{}, ErrUnsupported
}

// SampleRate is not implemented on non-Linux platforms.
func (r *RealSource) SampleRate() float64 {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (r *RealSource) Close() error {
	return nil
}
