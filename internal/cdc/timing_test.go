package cdc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewTimingProfile(t *testing.T) {
	tests := []struct {
		rate                                   float64
		startHi, startLo, bit1Hi, bit1Lo, marg int64
	}{
		{1_000_000, 9000, 4500, 550, 1700, 275},
		{2_000_000, 18000, 9000, 1100, 3400, 550},
		{250_000, 2250, 1125, 137, 425, 68},
		// 100kHz * 0.009 is 899.999..., truncated.
		{100_000, 899, 449, 55, 170, 27},
		{24_000_000, 215999, 107999, 13200, 40800, 6600},
	}

	for _, tt := range tests {
		p, err := NewTimingProfile(tt.rate)
		require.NoError(t, err)
		assert.Equal(t, tt.startHi, p.StartHi, "StartHi at %v", tt.rate)
		assert.Equal(t, tt.startLo, p.StartLo, "StartLo at %v", tt.rate)
		assert.Equal(t, tt.bit1Hi, p.Bit1Hi, "Bit1Hi at %v", tt.rate)
		assert.Equal(t, tt.bit1Lo, p.Bit1Lo, "Bit1Lo at %v", tt.rate)
		assert.Equal(t, tt.bit1Hi, p.Bit0Hi, "Bit0Hi at %v", tt.rate)
		assert.Equal(t, tt.bit1Hi, p.Bit0Lo, "Bit0Lo at %v", tt.rate)
		assert.Equal(t, tt.marg, p.Margin, "Margin at %v", tt.rate)
	}
}

func TestNewTimingProfileRejectsBadRate(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewTimingProfile(rate)
		assert.ErrorIs(t, err, ErrInvalidSampleRate, "rate %v", rate)
	}
}

func TestTimingProfileProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(1, 1e8).Draw(t, "a")
		b := rapid.Float64Range(1, 1e8).Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		pa, err := NewTimingProfile(a)
		require.NoError(t, err)
		pb, err := NewTimingProfile(b)
		require.NoError(t, err)

		assert.Equal(t, pa.Bit1Hi/2, pa.Margin)

		fa := []int64{pa.StartHi, pa.StartLo, pa.Bit1Hi, pa.Bit1Lo, pa.Bit0Hi, pa.Bit0Lo}
		fb := []int64{pb.StartHi, pb.StartLo, pb.Bit1Hi, pb.Bit1Lo, pb.Bit0Hi, pb.Bit0Lo}
		for i := range fa {
			assert.GreaterOrEqual(t, fa[i], int64(0))
			assert.LessOrEqual(t, fa[i], fb[i], "field %d not monotonic in rate", i)
		}
	})
}

func TestInRangeBoundaries(t *testing.T) {
	p, err := NewTimingProfile(1_000_000)
	require.NoError(t, err)

	for _, e := range []int64{p.StartHi, p.StartLo, p.Bit1Hi, p.Bit1Lo, p.Bit0Lo} {
		assert.True(t, p.InRange(e, e))
		assert.True(t, p.InRange(e-p.Margin, e), "lower bound of %d", e)
		assert.True(t, p.InRange(e+p.Margin, e), "upper bound of %d", e)
		assert.False(t, p.InRange(e-p.Margin-1, e), "below lower bound of %d", e)
		assert.False(t, p.InRange(e+p.Margin+1, e), "above upper bound of %d", e)
	}
}

func TestInRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p, err := NewTimingProfile(rapid.Float64Range(1000, 1e8).Draw(t, "rate"))
		require.NoError(t, err)
		e := rapid.Int64Range(0, 1<<40).Draw(t, "expected")

		assert.True(t, p.InRange(e-p.Margin, e))
		assert.True(t, p.InRange(e+p.Margin, e))
		assert.False(t, p.InRange(e-p.Margin-1, e))
		assert.False(t, p.InRange(e+p.Margin+1, e))
	})
}

func TestClassify(t *testing.T) {
	p, err := NewTimingProfile(1_000_000)
	require.NoError(t, err)

	tests := []struct {
		name   string
		hi, lo int64
		want   Pulse
	}{
		{"start", p.StartHi, p.StartLo, PulseStart},
		{"start edge of margin", p.StartHi + p.Margin, p.StartLo - p.Margin, PulseStart},
		{"bit1", p.Bit1Hi, p.Bit1Lo, PulseBit1},
		{"bit0", p.Bit0Hi, p.Bit0Lo, PulseBit0},
		{"bit0 short high", p.Bit0Hi - p.Margin, p.Bit0Lo, PulseBit0},
		{"high matches bit, low between windows", p.Bit1Hi, 1100, PulseNone},
		{"high too long for a bit", 2000, p.Bit1Lo, PulseNone},
		{"start high, bit low", p.StartHi, p.Bit1Lo, PulseNone},
		{"zero low", p.Bit1Hi, 0, PulseNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Classify(tt.hi, tt.lo))
		})
	}
}
