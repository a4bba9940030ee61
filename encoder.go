package schema

import "fmt"

// EncodeResult is the return value of Encode (spec §6.1).
type EncodeResult struct {
	Bytes    []byte
	Warnings []Warning

	Err  error
	Kind ErrorKind
}

type encodeState struct {
	b        *Buffer
	warnings []Warning
	md       MetadataInput
}

func (e *encodeState) warn(kind ErrorKind, field, msg string) {
	e.warnings = append(e.warnings, Warning{Kind: kind, Field: field, Msg: msg})
}

// Encode walks s, consuming rec, and produces the exact byte sequence
// Decode would have to read to reproduce it (spec §4.8, the encoder driver
// / C9, Testable property 1: round-trip). md supplies the port when s
// dispatches on one (spec §4.9).
func Encode(s *Schema, rec *Record, md MetadataInput) *EncodeResult {
	if md == nil {
		md = MetadataInput{}
	}

	target := s
	if s.Ports != nil {
		port, ok := portFrom(md)
		if !ok {
			return &EncodeResult{Err: errFieldf(ErrNoPortSchema, "metadata.port not supplied"), Kind: KindNoPortSchema}
		}
		sub, ok := s.Ports[port]
		if !ok {
			return &EncodeResult{Err: errFieldf(ErrNoPortSchema, "no schema mapped to port %d", port), Kind: KindNoPortSchema}
		}
		target = sub
	}

	sc := NewScope()
	st := &encodeState{b: NewBuffer(), md: md}

	if err := encodeFields(target.Fields, st, sc, rec); err != nil {
		return &EncodeResult{Err: err, Kind: kindFor(err), Warnings: st.warnings}
	}

	return &EncodeResult{Bytes: st.b.Bytes(), Warnings: st.warnings}
}

func encodeFields(fields []Field, st *encodeState, sc *Scope, rec *Record) error {
	overrides := buildEncodeOverrides(fields, rec)
	for i := range fields {
		if err := encodeField(&fields[i], st, sc, rec, overrides); err != nil {
			return err
		}
	}
	return nil
}

// encodeOverrides carries values the encoder must compute itself rather
// than read from the caller's record: a Flagged construct's bitmask field
// (set bit per present group, spec §4.6 Flagged) and a Repeat construct's
// count field (set to the list length, spec §4.6 Repeat "count_field").
// Both require looking at a sibling field before it is reached in
// declaration order, so encodeFields pre-scans its own field list once.
// A flags value the caller also supplies must agree with the computed one
// (strict); a count value always replaces whatever the caller supplied.
type encodeOverrides map[string]encodeOverride

type encodeOverride struct {
	value  int64
	strict bool
}

func buildEncodeOverrides(fields []Field, rec *Record) encodeOverrides {
	ov := encodeOverrides{}
	for i := range fields {
		f := &fields[i]
		switch f.Kind {
		case FieldFlagged:
			var bits int64
			for _, g := range f.Flagged.Groups {
				if groupPresent(g.Fields, rec) {
					bits |= int64(1) << uint(g.Bit)
				}
			}
			ov[f.Flagged.Ref] = encodeOverride{value: bits, strict: true}
		case FieldRepeat:
			if f.Repeat.Bound == RepeatCountField {
				v, ok := rec.Get(f.Name)
				n := 0
				if ok && v.Kind == KindList {
					n = len(v.List)
				}
				ov[f.Repeat.CountFieldRef] = encodeOverride{value: int64(n)}
			}
		}
	}
	return ov
}

// groupPresent reports whether a flagged group should be considered part of
// the record: true if any of its fields' names resolve to a non-null value.
func groupPresent(fields []Field, rec *Record) bool {
	for _, f := range fields {
		if v, ok := rec.Get(f.Name); ok && v.Kind != KindNull {
			return true
		}
	}
	return false
}

func encodeField(f *Field, st *encodeState, sc *Scope, rec *Record, overrides encodeOverrides) error {
	switch f.Kind {
	case FieldObject:
		return encodeObject(f, st, sc, rec)
	case FieldByteGroup:
		return encodeByteGroup(f, st, sc, rec)
	case FieldMatch:
		return encodeMatch(f, st, sc, rec)
	case FieldFlagged:
		return encodeFlagged(f, st, sc, rec)
	case FieldTLV:
		return encodeTLV(f, st, sc, rec)
	case FieldRepeat:
		return encodeRepeat(f, st, sc, rec)
	case FieldLiteral:
		sc.Bind(f.Name, String(f.Literal))
		return nil
	case FieldSkip:
		st.b.WritePad(f.Length)
		return nil
	default:
		v, ok := rec.Get(f.Name)
		if !ok {
			if override, has := overrides[f.Name]; has {
				v = Integer(override.value)
			} else {
				return errFieldf(ErrMissingInput, "field %q missing from input", f.Name)
			}
		} else if override, has := overrides[f.Name]; has {
			if !override.strict {
				v = Integer(override.value)
			} else if n, numOk := v.Number(); !numOk || int64(n) != override.value {
				return errFieldf(ErrFlagMismatch, "field %q: input value does not match computed flags", f.Name)
			}
		}
		if err := encodeLeaf(f, v, st.b); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		sc.Bind(f.Name, v)
		if f.Var != "" {
			sc.Bind(f.Var, v)
		}
		return nil
	}
}

func encodeLeaf(f *Field, v Value, b *Buffer) error {
	order := BigEndian
	if f.Endian != nil {
		order = *f.Endian
	}

	switch f.Kind {
	case FieldInteger:
		raw, err := f.Mods.Reverse(v)
		if err != nil {
			return err
		}
		width := int(f.IntWidth) * 8
		if f.Signed && f.Mods.Encoding == EncodingNone {
			return b.WriteInt(int64(raw), int(f.IntWidth), order)
		}
		return b.WriteUint(encodeEncoding(raw, width, f.Mods.Encoding), int(f.IntWidth), order)

	case FieldFloat:
		raw, err := f.Mods.Reverse(v)
		if err != nil {
			return err
		}
		switch f.FloatWidth {
		case FloatWidth16:
			return b.WriteFloat16(raw, order)
		case FloatWidth32:
			return b.WriteFloat32(float32(raw), order)
		default:
			return b.WriteFloat64(raw, order)
		}

	case FieldBool:
		bit := int64(0)
		if v.Bool {
			bit = 1
		}
		if f.Bit != nil {
			if err := f.Bit.encodeBits(b, bit); err != nil {
				return err
			}
			if f.Consume {
				b.CloseBitWindow()
			}
			return nil
		}
		b.WriteBytes([]byte{byte(bit)})
		return nil

	case FieldBitfield:
		raw, err := f.Mods.Reverse(v)
		if err != nil {
			return err
		}
		if err := f.Bit.encodeBits(b, int64(raw)); err != nil {
			return err
		}
		if f.Consume {
			b.CloseBitWindow()
		}
		return nil

	case FieldNibbleDecimal:
		raw, err := f.Mods.Reverse(v)
		if err != nil {
			return err
		}
		b.WriteBytes([]byte{encodeNibbleDecimal(raw, f.Signed)})
		return nil

	case FieldString:
		if v.Kind != KindString {
			return errFieldf(ErrMissingInput, "expected a string value")
		}
		raw := []byte(v.Str)
		if f.LengthRef == "" && f.Length > 0 {
			raw = padOrTruncate(raw, f.Length)
		}
		b.WriteBytes(raw)
		return nil

	case FieldBytes:
		raw, err := parseFormattedBytes(v, f.BytesFmt, f.HexSep)
		if err != nil {
			return err
		}
		if f.LengthRef == "" && f.Length > 0 {
			raw = padOrTruncate(raw, f.Length)
		}
		b.WriteBytes(raw)
		return nil

	case FieldEnum:
		if v.Kind != KindString {
			return errFieldf(ErrMissingInput, "expected a string value")
		}
		key, ok := reverseEnum(f.Enum, v.Str)
		if !ok {
			return errFieldf(ErrMatchNoCase, "enum has no key for value %q", v.Str)
		}
		return b.WriteUint(uint64(key), f.Length, order)

	case FieldBitfieldString:
		raw, err := parseVersionString(v.Str, f.Length)
		if err != nil {
			return err
		}
		b.WriteBytes(raw)
		return nil

	case FieldComputed:
		// Derived-only: consumes no bytes on decode, writes none on encode.
		return nil

	default:
		return errFieldf(ErrUnsupported, "unsupported field kind %s", f.Kind)
	}
}

func padOrTruncate(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	if len(b) > n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func reverseEnum(m map[int64]string, name string) (int64, bool) {
	for k, v := range m {
		if v == name {
			return k, true
		}
	}
	return 0, false
}

func parseVersionString(s string, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	cur := 0
	started := false
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if started {
				out = append(out, byte(cur))
			}
			cur, started = 0, false
			continue
		}
		c := s[i]
		if c < '0' || c > '9' {
			return nil, errFieldf(ErrParseError, "invalid version string %q", s)
		}
		cur = cur*10 + int(c-'0')
		started = true
	}
	return padOrTruncate(out, n), nil
}
