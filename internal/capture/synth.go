package capture

import (
	"bufio"
	"io"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// FrameGap is the idle time between synthesized frames, in seconds.
const FrameGap = 0.02

// Synthesize renders ideal radio-to-changer frames as edges at rate. The
// line idles low; each frame is a start pulse, 32 data pulses with the most
// significant bit of each byte first, and a closing high period.
func Synthesize(rate float64, frames ...[cdc.FrameBytes]uint8) ([]cdc.EdgeEvent, error) {
	p, err := cdc.NewTimingProfile(rate)
	if err != nil {
		return nil, err
	}
	gap := int64(rate * FrameGap)

	var edges []cdc.EdgeEvent
	ts := gap
	emit := func(level bool) {
		edges = append(edges, cdc.EdgeEvent{Timestamp: ts, Level: level})
	}
	pulse := func(hi, lo int64) {
		ts += hi
		emit(false)
		ts += lo
		emit(true)
	}

	for _, f := range frames {
		emit(true)
		pulse(p.StartHi, p.StartLo)
		for _, b := range f {
			for i := 7; i >= 0; i-- {
				if b>>uint(i)&1 == 1 {
					pulse(p.Bit1Hi, p.Bit1Lo)
				} else {
					pulse(p.Bit0Hi, p.Bit0Lo)
				}
			}
		}
		ts += p.Bit1Hi
		emit(false)
		ts += gap
	}
	return edges, nil
}

// Command builds a well-formed frame for a command code.
func Command(code uint8) [cdc.FrameBytes]uint8 {
	return [cdc.FrameBytes]uint8{0xCA, 0x34, code, code ^ 0xFF}
}

// Render writes edges as a one-byte-per-sample capture on channel, starting
// low at sample 0 and ending tail samples after the last edge.
func Render(w io.Writer, edges []cdc.EdgeEvent, channel uint, tail int64) error {
	bw := bufio.NewWriter(w)
	var (
		level  bool
		sample int64
	)
	write := func(until int64) error {
		var b byte
		if level {
			b = 1 << channel
		}
		for ; sample < until; sample++ {
			if err := bw.WriteByte(b); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range edges {
		if err := write(e.Timestamp); err != nil {
			return err
		}
		level = e.Level
	}
	if err := write(sample + tail); err != nil {
		return err
	}
	return bw.Flush()
}
