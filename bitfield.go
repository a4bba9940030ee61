package schema

// BitNotation identifies which of the five equivalent surface notations a
// bit spec was written in (spec §4.3). All but Sequential reduce to the
// same (start, width) coordinate; Sequential instead auto-advances from
// the top of the host window.
type BitNotation uint8

const (
	BitRange      BitNotation = iota // uN[a:b]
	BitStartWidth                    // uN[a+:w], bits<a,w>, bits:w@a
	BitSequential                    // uN:w
)

// BitSpec is the bit-level coordinate of a Bitfield (or bit-positioned
// Boolean) field (spec §4.3). HostBits is the declared host type width in
// bits (e.g. 8 for u8, 16 for u16) that determines how many bytes the
// shared host window spans.
type BitSpec struct {
	Notation BitNotation
	HostBits int
	Start    int // meaningful for BitRange/BitStartWidth
	Width    int
}

// HostBytes returns the byte width of the host window this spec draws
// from.
func (s BitSpec) HostBytes() int {
	return (s.HostBits + 7) / 8
}

// decodeBits reads this spec's bits from r, opening/reusing the host
// window as needed, and returns the raw (unsigned unless signed requests
// sign-extension) integer value.
func (s BitSpec) decodeBits(r *Reader, signed bool) (int64, error) {
	if err := r.OpenBitWindow(s.HostBytes()); err != nil {
		return 0, err
	}
	if s.Notation == BitSequential {
		return r.ReadBitsSeq(s.Width, signed)
	}
	return r.ReadBitsAt(s.Start, s.Width, signed)
}

// encodeBits writes v into b's host window at this spec's coordinate.
func (s BitSpec) encodeBits(b *Buffer, v int64) error {
	b.OpenBitWindow(s.HostBytes())
	if s.Notation == BitSequential {
		return b.WriteBitsSeq(v, s.Width)
	}
	return b.WriteBitsAt(v, s.Start, s.Width)
}
