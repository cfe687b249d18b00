// Package cdc decodes the head-unit to CD-changer control link used on VAG
// radios from a stream of logic-level transitions.
// The decoder does no I/O and reads no clock; time is expressed as absolute
// sample indices supplied by the caller. Only the command table loader
// touches files.
package cdc

import "errors"

var (
	// ErrSampleRateMissing is returned when edges are submitted before a
	// sample rate has been provided.
	ErrSampleRateMissing = errors.New("cdc: cannot decode without sample rate")

	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("cdc: sample rate must be positive")
)

// State is the classifier state.
type State int

const (
	StateIdle State = iota
	StateStart
	StateGotLow
	StateGotHigh
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStart:
		return "START"
	case StateGotLow:
		return "GOT_LOW"
	case StateGotHigh:
		return "GOT_HIGH"
	}
	return "UNKNOWN"
}

// Polarity selects which transition the decoder waits for.
type Polarity int

const (
	Rising Polarity = iota
	Falling
)

func (p Polarity) String() string {
	if p == Falling {
		return "falling"
	}
	return "rising"
}

// Matches reports whether a transition to level is of polarity p.
func (p Polarity) Matches(level bool) bool {
	return level == (p == Rising)
}

// EdgeEvent is a single transition on the data line.
type EdgeEvent struct {
	Timestamp int64 // absolute sample index, monotonically increasing
	Level     bool  // true = line is now high
}

// Pulse is the classification of one high/low pulse pair.
type Pulse int

const (
	PulseNone Pulse = iota
	PulseStart
	PulseBit1
	PulseBit0
)

// Bit is a classified data bit and the samples it spans.
type Bit struct {
	Start int64
	End   int64
	Value uint8
}

// Byte is eight consecutive bits packed into a value.
type Byte struct {
	Start int64
	End   int64
	Value uint8
}

// Row identifies one of the three independent annotation streams.
type Row int

const (
	RowBits Row = iota
	RowBytes
	RowCommands
)

func (r Row) String() string {
	switch r {
	case RowBits:
		return "bits"
	case RowBytes:
		return "bytes"
	case RowCommands:
		return "commands"
	}
	return "unknown"
}

// Verdict is the outcome of a completed 32-bit window.
type Verdict string

const (
	VerdictValid   Verdict = "VALID"
	VerdictUnknown Verdict = "UNKNOWN"
	VerdictInvalid Verdict = "INVALID"
)

// Labels used on the command row when no description applies.
const (
	LabelUnknown = "unknown"
	LabelInvalid = "invalid"
	LabelStart   = "Start"
)

// FrameResult carries the structured outcome of a frame for transports.
type FrameResult struct {
	Bytes       [FrameBytes]uint8
	Verdict     Verdict
	Code        uint8 // command code (byte 2); meaningful unless Verdict is INVALID
	Description string
}

// Annotation is one labelled span produced by the decoder.
type Annotation struct {
	Start int64
	End   int64
	Row   Row
	Label string
	// Frame is set on RowCommands annotations only.
	Frame *FrameResult
}

// Stats counts decoder output since construction or the last Reset.
type Stats struct {
	Edges     int
	Starts    int
	Bits      int
	Unmatched int
	Valid     int
	Unknown   int
	Invalid   int
}

// Frames returns the total number of resolved 32-bit windows.
func (s Stats) Frames() int {
	return s.Valid + s.Unknown + s.Invalid
}
