package schema

import (
	"encoding/binary"
	"math"
)

// Reader is the decode-side byte/bit cursor (spec §4.1, C1). It tracks a
// byte position into an input buffer plus a bit-cursor record for
// sub-byte reads, exactly the state spec §4.1 describes: a position p and
// an (anchor_byte, bits_consumed) pair. Modeled on glint's Reader
// (reader.go) — position tracking, Skip, BytesLeft, Remaining — but
// re-targeted at byte-exact big/little-endian primitives instead of
// glint's self-describing varint wire format, and extended with the bit
// window needed by the bitfield engine (bitfield.go).
type Reader struct {
	buf []byte
	pos int

	// Bit-cursor state (§4.1). windowActive is false when the cursor sits
	// on a byte boundary.
	windowActive bool
	windowStart  int // byte offset the window was opened at
	windowBytes  int // width of the host byte window, in bytes
	windowValue  uint64
	seqTop       int // remaining bits available to a sequential (uN:w) read, counted from the window's MSB
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Position returns the current byte offset (after reconciling any open
// bit window), i.e. how many bytes have been consumed so far.
func (r *Reader) Position() int {
	if r.windowActive {
		return r.windowStart + r.windowBytes
	}
	return r.pos
}

// BytesLeft reports how many unread bytes remain.
func (r *Reader) BytesLeft() int {
	return len(r.buf) - r.Position()
}

// Remaining returns every byte not yet consumed.
func (r *Reader) Remaining() []byte {
	return r.buf[r.Position():]
}

// reconcile implements spec §4.1 rule 1: if the bit-cursor has consumed
// any bits, advance to the byte immediately following the host window and
// clear the bit-cursor. It is called automatically before every byte-level
// primitive read/write.
func (r *Reader) reconcile() {
	if !r.windowActive {
		return
	}
	r.pos = r.windowStart + r.windowBytes
	r.windowActive = false
	r.windowValue = 0
	r.windowStart = 0
	r.windowBytes = 0
	r.seqTop = 0
}

// require implements spec §4.1 rule 2: a read that would cross the buffer
// end fails with short-buffer.
func (r *Reader) require(n int) error {
	if r.pos+n > len(r.buf) {
		return errFieldf(ErrShortBuffer, "need %d bytes at offset %d, have %d", n, r.pos, len(r.buf))
	}
	return nil
}

func endianOf(order ByteOrder) binary.ByteOrder {
	if order == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ReadUint reads an unsigned integer of the given byte width (1/2/3/4/8),
// honoring order. 3-byte ("24-bit") reads are zero-extended into a
// uint64 (spec §4.1/§4.2).
func (r *Reader) ReadUint(width int, order ByteOrder) (uint64, error) {
	r.reconcile()
	if err := r.require(width); err != nil {
		return 0, err
	}
	b := r.buf[r.pos : r.pos+width]
	r.pos += width

	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(endianOf(order).Uint16(b)), nil
	case 3:
		return read24(b, order), nil
	case 4:
		return uint64(endianOf(order).Uint32(b)), nil
	case 8:
		return endianOf(order).Uint64(b), nil
	default:
		return 0, errFieldf(ErrUnsupported, "unsupported integer width %d", width)
	}
}

func read24(b []byte, order ByteOrder) uint64 {
	if order == LittleEndian {
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16
	}
	return uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2])
}

func write24(v uint64, order ByteOrder) []byte {
	b := make([]byte, 3)
	if order == LittleEndian {
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
	} else {
		b[0] = byte(v >> 16)
		b[1] = byte(v >> 8)
		b[2] = byte(v)
	}
	return b
}

// ReadInt reads a two's-complement signed integer of the given byte
// width, sign-extending from the top bit of that exact width (spec §4.1:
// "24-bit reads sign-extend from bit 23 for signed variants").
func (r *Reader) ReadInt(width int, order ByteOrder) (int64, error) {
	u, err := r.ReadUint(width, order)
	if err != nil {
		return 0, err
	}
	return signExtend(u, width*8), nil
}

func signExtend(v uint64, bits int) int64 {
	shift := 64 - uint(bits)
	return int64(v<<shift) >> shift
}

// ReadFloat16 decodes IEEE 754 binary16, preserving subnormals and NaN
// bit-exactly (spec §4.1).
func (r *Reader) ReadFloat16(order ByteOrder) (float64, error) {
	u, err := r.ReadUint(2, order)
	if err != nil {
		return 0, err
	}
	return float16ToFloat64(uint16(u)), nil
}

func (r *Reader) ReadFloat32(order ByteOrder) (float32, error) {
	u, err := r.ReadUint(4, order)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(u)), nil
}

func (r *Reader) ReadFloat64(order ByteOrder) (float64, error) {
	u, err := r.ReadUint(8, order)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadBytes extracts exactly n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	r.reconcile()
	if err := r.require(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances n bytes without interpreting them (the `skip` field kind,
// spec §3.2).
func (r *Reader) Skip(n int) error {
	r.reconcile()
	if err := r.require(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// --- bit window management (C3) ---

// OpenBitWindow ensures a host byte window of hostBytes is active at the
// current cursor position. If a window is already open with the same
// size, it is reused (so sequential/explicit bitfields in the same group
// share one window, spec §4.3). Otherwise any open window is reconciled
// first, then hostBytes bytes are read big-endian into the window value
// (spec §4.3: "Multi-byte bit windows ... combine big-endian bytes").
func (r *Reader) OpenBitWindow(hostBytes int) error {
	if r.windowActive && r.windowBytes == hostBytes {
		return nil
	}
	r.reconcile()

	if err := r.require(hostBytes); err != nil {
		return err
	}

	var v uint64
	for i := 0; i < hostBytes; i++ {
		v = v<<8 | uint64(r.buf[r.pos+i])
	}

	r.windowActive = true
	r.windowStart = r.pos
	r.windowBytes = hostBytes
	r.windowValue = v
	r.seqTop = hostBytes * 8
	return nil
}

// ReadBitsAt extracts the inclusive-style (start, width) range relative to
// the window's LSB (bit 0), per spec §4.3's "uN[a+:w]"/"bits<a,w>" family.
func (r *Reader) ReadBitsAt(start, width int, signed bool) (int64, error) {
	if !r.windowActive {
		return 0, errFieldf(ErrUnsupported, "bit read with no open host window")
	}
	if start+width > r.windowBytes*8 {
		return 0, errFieldf(ErrShortBuffer, "bit range [%d:%d) exceeds %d-bit window", start, start+width, r.windowBytes*8)
	}
	mask := uint64(1)<<uint(width) - 1
	raw := (r.windowValue >> uint(start)) & mask
	if signed {
		return signExtend(raw, width), nil
	}
	return int64(raw), nil
}

// ReadBitsSeq extracts the next `width` bits from the top (MSB-first) of
// the currently open window, auto-advancing the sequential cursor (spec
// §4.3 "uN:w").
func (r *Reader) ReadBitsSeq(width int, signed bool) (int64, error) {
	if !r.windowActive {
		return 0, errFieldf(ErrUnsupported, "sequential bit read with no open host window")
	}
	if width > r.seqTop {
		return 0, errFieldf(ErrShortBuffer, "sequential bitfield needs %d bits, only %d left in window", width, r.seqTop)
	}
	start := r.seqTop - width
	v, err := r.ReadBitsAt(start, width, signed)
	if err != nil {
		return 0, err
	}
	r.seqTop = start
	return v, nil
}

// CloseBitWindow forces reconciliation now, advancing the byte cursor past
// the whole host window even if bits remain unconsumed. Used by the
// `consume` attribute and at the close of an explicit byte-group (spec
// §4.3/§4.6).
func (r *Reader) CloseBitWindow() {
	r.reconcile()
}

// CloseBitWindowToSize reconciles to exactly size bytes past windowStart,
// overriding the natural hostBytes width — used when a byte-group declares
// an explicit `size` larger than any single field's host width (spec
// §4.6 "Object and byte-group").
func (r *Reader) CloseBitWindowToSize(size int) {
	if !r.windowActive {
		return
	}
	r.pos = r.windowStart + size
	r.windowActive = false
}

// BitWindowOpen reports whether a bit window is currently active.
func (r *Reader) BitWindowOpen() bool {
	return r.windowActive
}
