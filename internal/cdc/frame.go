package cdc

import "fmt"

const (
	// FrameBytes is the number of bytes in one command frame.
	FrameBytes = 4
	// FrameBits is the number of bits collected before a frame is resolved.
	FrameBits = FrameBytes * 8

	headerByte0 = 0xCA
	headerByte1 = 0x34
)

// Frame is four bytes assembled from 32 consecutive bits.
type Frame [FrameBytes]Byte

// PackByte packs eight bits into a byte. The bit that arrived first is the
// most significant.
func PackByte(bits []Bit) Byte {
	var v uint8
	for _, b := range bits {
		v = v<<1 | b.Value&1
	}
	return Byte{
		Start: bits[0].Start,
		End:   bits[len(bits)-1].End,
		Value: v,
	}
}

// AssembleFrame packs FrameBits bits into a Frame in arrival order.
func AssembleFrame(bits []Bit) Frame {
	var f Frame
	for i := range f {
		f[i] = PackByte(bits[i*8 : i*8+8])
	}
	return f
}

// Values returns the raw byte values.
func (f Frame) Values() [FrameBytes]uint8 {
	var v [FrameBytes]uint8
	for i, b := range f {
		v[i] = b.Value
	}
	return v
}

// Valid reports whether the header and the complement checksum hold.
func (f Frame) Valid() bool {
	return f[0].Value == headerByte0 &&
		f[1].Value == headerByte1 &&
		f[2].Value == f[3].Value^0xFF
}

// Resolve validates the frame and looks its command up in table.
func (f Frame) Resolve(table CommandTable) FrameResult {
	res := FrameResult{Bytes: f.Values(), Code: f[2].Value}
	switch {
	case !f.Valid():
		res.Verdict = VerdictInvalid
		res.Description = LabelInvalid
	default:
		if desc, ok := table.Lookup(res.Code); ok {
			res.Verdict = VerdictValid
			res.Description = desc
		} else {
			res.Verdict = VerdictUnknown
			res.Description = LabelUnknown
		}
	}
	return res
}

// Annotations returns the byte-row and command-row spans for the frame.
func (f Frame) Annotations(res FrameResult) []Annotation {
	out := make([]Annotation, 0, FrameBytes+1)
	for _, b := range f {
		out = append(out, Annotation{
			Start: b.Start,
			End:   b.End,
			Row:   RowBytes,
			Label: fmt.Sprintf("0x%02X", b.Value),
		})
	}
	r := res
	out = append(out, Annotation{
		Start: f[0].Start,
		End:   f[FrameBytes-1].End,
		Row:   RowCommands,
		Label: res.Description,
		Frame: &r,
	})
	return out
}
