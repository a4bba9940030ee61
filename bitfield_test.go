package schema

import "testing"

func TestBitSpecRangeAndStartWidthAgree(t *testing.T) {
	r := parseBitSpecString("2:5", 8)
	if r.Notation != BitRange || r.Start != 2 || r.Width != 4 {
		t.Fatalf("parseBitSpecString(2:5) = %+v", r)
	}
	sw := parseBitSpecString("2+:4", 8)
	if sw.Notation != BitStartWidth || sw.Start != 2 || sw.Width != 4 {
		t.Fatalf("parseBitSpecString(2+:4) = %+v", sw)
	}
	seq := parseBitSpecString("3", 8)
	if seq.Notation != BitSequential || seq.Width != 3 {
		t.Fatalf("parseBitSpecString(3) = %+v", seq)
	}
}

func TestBitSpecDecodeEncodeRoundTrip(t *testing.T) {
	specs := []BitSpec{
		{Notation: BitRange, HostBits: 8, Start: 0, Width: 4},
		{Notation: BitRange, HostBits: 8, Start: 4, Width: 4},
		{Notation: BitStartWidth, HostBits: 16, Start: 3, Width: 9},
		{Notation: BitSequential, HostBits: 8, Width: 8},
	}
	for _, s := range specs {
		max := int64(1)<<uint(s.Width) - 1
		for _, v := range []int64{0, 1, max} {
			b := NewBuffer()
			if err := s.encodeBits(b, v); err != nil {
				t.Fatalf("encodeBits(%+v, %d): %v", s, v, err)
			}
			b.CloseBitWindow()

			r := NewReader(b.Bytes())
			got, err := s.decodeBits(r, false)
			if err != nil {
				t.Fatalf("decodeBits(%+v): %v", s, err)
			}
			if got != v {
				t.Fatalf("%+v round-trip: wrote %d, read %d", s, v, got)
			}
			wantCursor := s.HostBytes()
			if r.Position() != wantCursor {
				t.Fatalf("%+v cursor after close = %d, want %d", s, r.Position(), wantCursor)
			}
		}
	}
}

// FuzzBitSpecRoundTrip is the bitfield engine's untrusted-input-shaped fuzz
// target: arbitrary (start, width, value) coordinates must either encode and
// decode back to the same value, or fail cleanly, never panic.
func FuzzBitSpecRoundTrip(f *testing.F) {
	f.Add(0, 4, int64(5))
	f.Add(4, 4, int64(10))
	f.Add(3, 9, int64(300))
	f.Add(0, 0, int64(0))

	f.Fuzz(func(t *testing.T, start, width int, value int64) {
		if width <= 0 || width > 32 || start < 0 || start+width > 64 {
			return
		}
		hostBits := ((start + width + 7) / 8) * 8
		if hostBits == 0 || hostBits > 64 {
			return
		}
		s := BitSpec{Notation: BitRange, HostBits: hostBits, Start: start, Width: width}
		masked := value & (int64(1)<<uint(width) - 1)

		b := NewBuffer()
		if err := s.encodeBits(b, masked); err != nil {
			return
		}
		b.CloseBitWindow()

		r := NewReader(b.Bytes())
		got, err := s.decodeBits(r, false)
		if err != nil {
			t.Fatalf("decodeBits after a successful encodeBits failed: %v", err)
		}
		if got != masked {
			t.Fatalf("round-trip mismatch: wrote %d, read %d (start=%d width=%d)", masked, got, start, width)
		}
	})
}
