// Package session drives a decoder from an edge source.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
	"github.com/sweeney/cdc-sniffer/internal/gpio"
)

// Session owns one decoder for the lifetime of a decode run.
type Session struct {
	src    gpio.Source
	dec    *cdc.Decoder
	logger *log.Logger
}

// New creates a session. The decoder's sample rate is taken from src.
func New(src gpio.Source, table cdc.CommandTable, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		src:    src,
		dec:    cdc.NewDecoder(table),
		logger: logger,
	}
}

// Update is what one edge produced, plus the decoder counters after it.
type Update struct {
	Annotations []cdc.Annotation
	Stats       cdc.Stats
	State       cdc.State
	Unmatched   bool // the edge closed a pulse that fit no timing class
}

// Decoder exposes the session's decoder for counters and state.
// It must not be used concurrently with Run.
func (s *Session) Decoder() *cdc.Decoder {
	return s.dec
}

// Run pulls edges until the source is exhausted or ctx is done, calling emit
// whenever an edge produces annotations or an unmatched pulse. A partial frame
// at the end is discarded. It returns nil on io.EOF or cancellation, and fails
// with cdc.ErrSampleRateMissing before reading any edge if no rate is known.
func (s *Session) Run(ctx context.Context, emit func(Update)) error {
	if rate := s.src.SampleRate(); rate > 0 {
		if err := s.dec.SetSampleRate(rate); err != nil {
			return fmt.Errorf("sample rate %v: %w", rate, err)
		}
	}
	p, ok := s.dec.Profile()
	if !ok {
		return fmt.Errorf("decode: %w", cdc.ErrSampleRateMissing)
	}
	s.logger.Debug("timing profile",
		"rate", p.SampleRate,
		"start_hi", p.StartHi, "start_lo", p.StartLo,
		"bit1_hi", p.Bit1Hi, "bit1_lo", p.Bit1Lo,
		"bit0_hi", p.Bit0Hi, "bit0_lo", p.Bit0Lo,
		"margin", p.Margin)

	for {
		e, err := s.src.Next(ctx, s.dec.Awaiting())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if n := s.dec.PendingBits(); n > 0 {
					s.logger.Debug("discarding partial frame", "bits", n)
				}
				return nil
			}
			return fmt.Errorf("next edge: %w", err)
		}

		unmatched := s.dec.Stats().Unmatched
		anns, err := s.dec.Submit(e)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		u := Update{
			Annotations: anns,
			Stats:       s.dec.Stats(),
			State:       s.dec.State(),
			Unmatched:   s.dec.Stats().Unmatched != unmatched,
		}
		if u.Unmatched {
			s.logger.Debug("unmatched pulse", "at", e.Timestamp, "pending_bits", s.dec.PendingBits())
		}
		if (len(anns) > 0 || u.Unmatched) && emit != nil {
			emit(u)
		}
	}
}
