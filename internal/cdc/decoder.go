package cdc

// track is all per-frame mutable state. It is replaced wholesale after every
// resolved 32-bit window.
type track struct {
	state State
	// edges holds the two most recent reference timestamps; edges[1] is the latest.
	edges [2]int64
	hi    int64
	lo    int64
	bits  []Bit
}

func freshTrack() track {
	return track{state: StateIdle, bits: make([]Bit, 0, FrameBits)}
}

func (t *track) record(ts int64) {
	t.edges[0], t.edges[1] = t.edges[1], ts
}

// Decoder is the edge-driven classifier and frame assembler. It is not safe
// for concurrent use; one goroutine owns it for the lifetime of a session.
type Decoder struct {
	profile  TimingProfile
	hasRate  bool
	commands CommandTable
	awaiting Polarity
	t        track
	stats    Stats
}

// NewDecoder creates a decoder that resolves commands against table.
// A sample rate must be set before edges are submitted.
func NewDecoder(table CommandTable) *Decoder {
	if table == nil {
		table = CommandTable{}
	}
	return &Decoder{
		commands: table,
		awaiting: Rising,
		t:        freshTrack(),
	}
}

// SetSampleRate computes the timing profile. It may be called again if the
// rate changes; in-flight state is kept.
func (d *Decoder) SetSampleRate(rate float64) error {
	p, err := NewTimingProfile(rate)
	if err != nil {
		return err
	}
	d.profile = p
	d.hasRate = true
	return nil
}

// Profile returns the current timing profile and whether one is set.
func (d *Decoder) Profile() (TimingProfile, bool) {
	return d.profile, d.hasRate
}

// Awaiting returns the transition polarity the decoder expects next.
func (d *Decoder) Awaiting() Polarity {
	return d.awaiting
}

// State returns the classifier state.
func (d *Decoder) State() State {
	return d.t.state
}

// PendingBits returns how many bits of the current frame have been collected.
func (d *Decoder) PendingBits() int {
	return len(d.t.bits)
}

// Stats returns a copy of the output counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset discards any partial frame, counters and polarity tracking. The
// timing profile and command table are kept.
func (d *Decoder) Reset() {
	d.t = freshTrack()
	d.awaiting = Rising
	d.stats = Stats{}
}

// Submit consumes the next transition and returns the annotations it
// produced, if any. Edges whose level does not match Awaiting are not
// qualifying transitions and are ignored.
func (d *Decoder) Submit(e EdgeEvent) ([]Annotation, error) {
	if !d.hasRate {
		return nil, ErrSampleRateMissing
	}
	if !d.awaiting.Matches(e.Level) {
		return nil, nil
	}
	d.stats.Edges++

	t := &d.t
	if t.state == StateIdle {
		t.state = StateStart
		t.record(e.Timestamp)
		d.flip(e.Level)
		return nil, nil
	}

	dist := e.Timestamp - t.edges[1]
	if e.Level && t.state != StateStart {
		t.lo = dist
		t.state = StateGotLow
	} else {
		t.hi = dist
		t.lo = 0
		t.state = StateGotHigh
	}

	var out []Annotation
	if t.state == StateGotLow {
		out = d.classify(e.Timestamp)
	}

	t.record(e.Timestamp)

	if len(t.bits) == FrameBits {
		out = append(out, d.resolve()...)
	}

	d.flip(e.Level)
	return out, nil
}

func (d *Decoder) flip(level bool) {
	if level {
		d.awaiting = Falling
	} else {
		d.awaiting = Rising
	}
}

// classify runs on a rising edge that closes a low period. The pulse spans
// from the edge before the reference (start of the high period) to now.
// GOT_LOW is only reachable after START and GOT_HIGH, so both edges are set.
func (d *Decoder) classify(now int64) []Annotation {
	t := &d.t
	start := t.edges[0]

	var label string
	switch d.profile.Classify(t.hi, t.lo) {
	case PulseStart:
		d.stats.Starts++
		label = LabelStart
	case PulseBit1:
		t.bits = append(t.bits, Bit{Start: start, End: now, Value: 1})
		d.stats.Bits++
		label = "1"
	case PulseBit0:
		t.bits = append(t.bits, Bit{Start: start, End: now, Value: 0})
		d.stats.Bits++
		label = "0"
	default:
		d.stats.Unmatched++
		return nil
	}
	return []Annotation{{Start: start, End: now, Row: RowBits, Label: label}}
}

// resolve assembles the collected bits into a frame, emits its verdict and
// returns the classifier to IDLE regardless of the outcome.
func (d *Decoder) resolve() []Annotation {
	f := AssembleFrame(d.t.bits)
	res := f.Resolve(d.commands)
	switch res.Verdict {
	case VerdictValid:
		d.stats.Valid++
	case VerdictUnknown:
		d.stats.Unknown++
	default:
		d.stats.Invalid++
	}
	d.t = freshTrack()
	return f.Annotations(res)
}
