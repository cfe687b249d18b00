package cdc

import "math"

// Nominal pulse durations in seconds.
const (
	startHiSeconds = 0.009   // 9ms high
	startLoSeconds = 0.0045  // 4.5ms low
	bit1HiSeconds  = 0.00055 // 0.55ms high
	bit1LoSeconds  = 0.0017  // 1.7ms low
)

// TimingProfile holds pulse widths in samples for one sample rate.
// Bit 0 is a short pulse (0.55ms high, 0.55ms low), so both of its
// durations equal Bit1Hi.
type TimingProfile struct {
	SampleRate float64

	StartHi int64
	StartLo int64
	Bit1Hi  int64
	Bit1Lo  int64
	Bit0Hi  int64
	Bit0Lo  int64

	// Margin is the tolerance for every comparison: half the shortest interval.
	Margin int64
}

// NewTimingProfile derives sample-count thresholds from rate (samples/s).
func NewTimingProfile(rate float64) (TimingProfile, error) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return TimingProfile{}, ErrInvalidSampleRate
	}
	bit1Hi := samples(rate, bit1HiSeconds)
	return TimingProfile{
		SampleRate: rate,
		StartHi:    samples(rate, startHiSeconds),
		StartLo:    samples(rate, startLoSeconds),
		Bit1Hi:     bit1Hi,
		Bit1Lo:     samples(rate, bit1LoSeconds),
		Bit0Hi:     bit1Hi,
		Bit0Lo:     bit1Hi,
		Margin:     bit1Hi / 2,
	}, nil
}

func samples(rate, seconds float64) int64 {
	return int64(rate * seconds)
}

// InRange reports whether actual lies within Margin of expected, inclusive.
func (p TimingProfile) InRange(actual, expected int64) bool {
	return actual >= expected-p.Margin && actual <= expected+p.Margin
}

// Classify matches a high/low pulse pair against the start, bit 1 and bit 0
// templates, in that order. The first match wins.
func (p TimingProfile) Classify(hi, lo int64) Pulse {
	switch {
	case p.InRange(hi, p.StartHi) && p.InRange(lo, p.StartLo):
		return PulseStart
	case p.InRange(hi, p.Bit1Hi) && p.InRange(lo, p.Bit1Lo):
		return PulseBit1
	case p.InRange(hi, p.Bit0Hi) && p.InRange(lo, p.Bit0Lo):
		return PulseBit0
	}
	return PulseNone
}
