package schema

import "math"

// Buffer is the encode-side byte/bit cursor (spec §4.1, C1), the write
// mirror of Reader. Modeled on glint's Buffer (buffer.go) — an
// append-only byte accumulator — re-targeted at fixed-width big/little
// -endian writes and extended with the same bit-window bookkeeping as
// Reader so bitfields accumulate into a host window and flush as whole
// bytes when the window closes (spec §4.3: "the engine accumulates bits
// into a zeroed host window, then writes the window(s) as bytes when the
// group closes").
type Buffer struct {
	bytes []byte

	windowActive bool
	windowBytes  int
	windowValue  uint64
	seqTop       int
}

// NewBuffer returns an empty Buffer ready for writes.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Bytes returns the accumulated output. Valid only once every bit window
// has been closed.
func (b *Buffer) Bytes() []byte {
	return b.bytes
}

func (b *Buffer) reconcile() {
	if !b.windowActive {
		return
	}
	b.flushWindow(b.windowBytes)
}

func (b *Buffer) flushWindow(size int) {
	v := b.windowValue
	out := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	b.bytes = append(b.bytes, out...)
	b.windowActive = false
	b.windowValue = 0
	b.windowBytes = 0
	b.seqTop = 0
}

// WriteUint appends an unsigned integer of the given byte width.
func (b *Buffer) WriteUint(v uint64, width int, order ByteOrder) error {
	b.reconcile()
	switch width {
	case 1:
		b.bytes = append(b.bytes, byte(v))
	case 2:
		if order == LittleEndian {
			b.bytes = append(b.bytes, byte(v), byte(v>>8))
		} else {
			b.bytes = append(b.bytes, byte(v>>8), byte(v))
		}
	case 3:
		b.bytes = append(b.bytes, write24(v, order)...)
	case 4:
		if order == LittleEndian {
			b.bytes = append(b.bytes, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		} else {
			b.bytes = append(b.bytes, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
		}
	case 8:
		if order == LittleEndian {
			for i := 0; i < 8; i++ {
				b.bytes = append(b.bytes, byte(v>>(8*uint(i))))
			}
		} else {
			for i := 7; i >= 0; i-- {
				b.bytes = append(b.bytes, byte(v>>(8*uint(i))))
			}
		}
	default:
		return errFieldf(ErrUnsupported, "unsupported integer width %d", width)
	}
	return nil
}

// WriteInt appends a two's-complement signed integer, truncated to width
// bytes.
func (b *Buffer) WriteInt(v int64, width int, order ByteOrder) error {
	mask := uint64(1)<<uint(width*8) - 1
	if width == 8 {
		mask = ^uint64(0)
	}
	return b.WriteUint(uint64(v)&mask, width, order)
}

func (b *Buffer) WriteFloat16(v float64, order ByteOrder) error {
	return b.WriteUint(uint64(float64ToFloat16(v)), 2, order)
}

func (b *Buffer) WriteFloat32(v float32, order ByteOrder) error {
	return b.WriteUint(uint64(math.Float32bits(v)), 4, order)
}

func (b *Buffer) WriteFloat64(v float64, order ByteOrder) error {
	return b.WriteUint(math.Float64bits(v), 8, order)
}

// WriteBytes appends raw bytes verbatim.
func (b *Buffer) WriteBytes(v []byte) {
	b.reconcile()
	b.bytes = append(b.bytes, v...)
}

// WritePad appends n zero bytes (the `skip` field kind, spec §3.2).
func (b *Buffer) WritePad(n int) {
	b.reconcile()
	b.bytes = append(b.bytes, make([]byte, n)...)
}

// --- bit window management (C3), write mirror of Reader's ---

// OpenBitWindow ensures a zeroed accumulator of hostBytes is active,
// reusing one already open of the same size.
func (b *Buffer) OpenBitWindow(hostBytes int) {
	if b.windowActive && b.windowBytes == hostBytes {
		return
	}
	b.reconcile()
	b.windowActive = true
	b.windowBytes = hostBytes
	b.windowValue = 0
	b.seqTop = hostBytes * 8
}

// WriteBitsAt ORs value (masked to width bits) into the window at the
// given (start, width) range relative to the window's LSB.
func (b *Buffer) WriteBitsAt(value int64, start, width int) error {
	if !b.windowActive {
		return errFieldf(ErrUnsupported, "bit write with no open host window")
	}
	if start+width > b.windowBytes*8 {
		return errFieldf(ErrUnsupported, "bit range [%d:%d) exceeds %d-bit window", start, start+width, b.windowBytes*8)
	}
	mask := uint64(1)<<uint(width) - 1
	b.windowValue |= (uint64(value) & mask) << uint(start)
	return nil
}

// WriteBitsSeq writes the next `width` bits from the top (MSB-first) of
// the window, auto-advancing the sequential cursor.
func (b *Buffer) WriteBitsSeq(value int64, width int) error {
	if !b.windowActive {
		return errFieldf(ErrUnsupported, "sequential bit write with no open host window")
	}
	if width > b.seqTop {
		return errFieldf(ErrUnsupported, "sequential bitfield needs %d bits, only %d left in window", width, b.seqTop)
	}
	start := b.seqTop - width
	if err := b.WriteBitsAt(value, start, width); err != nil {
		return err
	}
	b.seqTop = start
	return nil
}

// CloseBitWindow flushes the accumulated window to bytes now.
func (b *Buffer) CloseBitWindow() {
	b.reconcile()
}

// CloseBitWindowToSize flushes exactly size bytes, overriding the window's
// natural width (explicit byte-group `size`).
func (b *Buffer) CloseBitWindowToSize(size int) {
	if !b.windowActive {
		return
	}
	b.flushWindow(size)
}

// BitWindowOpen reports whether a bit window is currently active.
func (b *Buffer) BitWindowOpen() bool {
	return b.windowActive
}
