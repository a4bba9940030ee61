package schema

import "fmt"

// MetadataInput is the caller-supplied mapping consumed by Decode/Encode
// (spec §4.9/§6.5): port selection, externally-known fields such as
// received_at/rssi, and anything else the schema's `metadata` declaration
// names.
type MetadataInput map[string]any

// DecodeResult is the return value of Decode (spec §6.1).
type DecodeResult struct {
	Record        *Record
	Quality       map[string]string
	Warnings      []Warning
	BytesConsumed int

	// Err is non-nil on a fatal failure; Record/Quality/BytesConsumed
	// still reflect whatever was decoded before the failure (spec §4.7.3).
	Err  error
	Kind ErrorKind
}

// decodeState threads the mutable pieces of a single decode call through
// the recursive walk, mirroring how glint's decoder threads a Reader by
// value through its instruction closures (decoder.go) — here bundled into
// one struct because our walk is schema-tree-recursive rather than a flat
// instruction list.
type decodeState struct {
	r        *Reader
	quality  map[string]string
	warnings []Warning
	md       MetadataInput
}

func (d *decodeState) warn(kind ErrorKind, field, msg string) {
	d.warnings = append(d.warnings, Warning{Kind: kind, Field: field, Msg: msg})
}

// Decode walks s against buf, producing a DecodeResult (spec §4.7, the
// decoder driver / C8). It never panics: every failure mode in the
// taxonomy of spec §7 is returned as an error on DecodeResult.Err.
func Decode(s *Schema, buf []byte, md MetadataInput) *DecodeResult {
	if md == nil {
		md = MetadataInput{}
	}

	target := s
	if s.Ports != nil {
		port, ok := portFrom(md)
		if !ok {
			return &DecodeResult{Err: errFieldf(ErrNoPortSchema, "metadata.port not supplied"), Kind: KindNoPortSchema}
		}
		sub, ok := s.Ports[port]
		if !ok {
			return &DecodeResult{Err: errFieldf(ErrNoPortSchema, "no schema mapped to port %d", port), Kind: KindNoPortSchema}
		}
		target = sub
	}

	rec := NewRecord()
	sc := NewScope()
	st := &decodeState{r: NewReader(buf), quality: map[string]string{}, md: md}

	err := decodeFields(target.Fields, st, sc, rec)

	res := &DecodeResult{
		Record:        rec,
		Quality:       st.quality,
		Warnings:      st.warnings,
		BytesConsumed: st.r.Position(),
	}

	if err != nil {
		res.Err = err
		res.Kind = kindFor(err)
		return res
	}

	if left := st.r.BytesLeft(); left > 0 {
		if target.Strict {
			res.Err = errFieldf(ErrUnsupported, "trailing-bytes: %d bytes remain", left)
			res.Kind = KindTrailingBytes
			return res
		}
		st.warn(KindTrailingBytes, "", fmt.Sprintf("%d bytes remain unread", left))
	}

	applyMetadataDeclarations(target, md, rec)

	return res
}

func portFrom(md MetadataInput) (int, bool) {
	v, ok := md["port"]
	if !ok {
		return 0, false
	}
	switch p := v.(type) {
	case int:
		return p, true
	case int64:
		return int(p), true
	case float64:
		return int(p), true
	default:
		return 0, false
	}
}

// applyMetadataDeclarations copies caller-supplied metadata values into the
// record for every name the schema's `metadata` list declares (spec
// §3.1/§4.9); these are never read from the byte stream.
func applyMetadataDeclarations(s *Schema, md MetadataInput, rec *Record) {
	for _, decl := range s.Metadata {
		if v, ok := md[decl.Name]; ok {
			rec.Set(decl.Name, toValue(v))
		}
	}
}

func toValue(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case string:
		return String(x)
	case int:
		return Integer(int64(x))
	case int64:
		return Integer(x)
	case float64:
		return Real(x)
	case bool:
		return Bool(x)
	case []byte:
		return Bytes(x)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// decodeFields walks one ordered field list, the shared recursion point
// for Schema.Fields, ObjectSpec.Fields, ByteGroupSpec.Fields, match/flagged
// /TLV case bodies and Repeat iteration bodies (spec §4.6's constructs all
// bottom out in "an ordered fields list").
func decodeFields(fields []Field, st *decodeState, sc *Scope, rec *Record) error {
	for i := range fields {
		if err := decodeField(&fields[i], st, sc, rec); err != nil {
			return err
		}
	}
	return nil
}

func decodeField(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	switch f.Kind {
	case FieldObject:
		return decodeObject(f, st, sc, rec)
	case FieldByteGroup:
		return decodeByteGroup(f, st, sc, rec)
	case FieldMatch:
		return decodeMatch(f, st, sc, rec)
	case FieldFlagged:
		return decodeFlagged(f, st, sc, rec)
	case FieldTLV:
		return decodeTLV(f, st, sc, rec)
	case FieldRepeat:
		return decodeRepeat(f, st, sc, rec)
	case FieldLiteral:
		v := String(f.Literal)
		bindValue(f, sc, rec, v)
		return nil
	case FieldSkip:
		return st.r.Skip(f.Length)
	default:
		v, quality, err := decodeLeaf(f, st.r, sc)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if quality != nil {
			st.quality[f.Name] = *quality
		}
		bindValue(f, sc, rec, v)
		return nil
	}
}

// bindValue records a decoded value both in the output record and in the
// variable scope, under the field's own name and, if `var` was set, under
// its alias too (spec §3.2 `var`, C5).
func bindValue(f *Field, sc *Scope, rec *Record, v Value) {
	rec.Set(f.Name, v)
	sc.Bind(f.Name, v)
	if f.Var != "" {
		sc.Bind(f.Var, v)
	}
}

// decodeLeaf decodes exactly one non-structural field kind into a Value,
// applying the modifier pipeline where one is declared (spec §4.2–§4.5,
// C2/C3/C4).
func decodeLeaf(f *Field, r *Reader, sc *Scope) (Value, *string, error) {
	order := BigEndian
	if f.Endian != nil {
		order = *f.Endian
	}

	switch f.Kind {
	case FieldInteger:
		var raw float64
		if f.Signed {
			i, err := r.ReadInt(int(f.IntWidth), order)
			if err != nil {
				return Value{}, nil, err
			}
			raw = decodeEncoding(uint64(i)&widthMask(int(f.IntWidth)*8), int(f.IntWidth)*8, f.Mods.Encoding)
			if f.Mods.Encoding == EncodingNone {
				raw = float64(i)
			}
		} else {
			u, err := r.ReadUint(int(f.IntWidth), order)
			if err != nil {
				return Value{}, nil, err
			}
			raw = decodeEncoding(u, int(f.IntWidth)*8, f.Mods.Encoding)
		}
		v, q := f.Mods.Apply(raw)
		return v, q, nil

	case FieldFloat:
		var raw float64
		var err error
		switch f.FloatWidth {
		case FloatWidth16:
			raw, err = r.ReadFloat16(order)
		case FloatWidth32:
			var f32 float32
			f32, err = r.ReadFloat32(order)
			raw = float64(f32)
		default:
			raw, err = r.ReadFloat64(order)
		}
		if err != nil {
			return Value{}, nil, err
		}
		v, q := f.Mods.Apply(raw)
		return v, q, nil

	case FieldBool:
		if f.Bit != nil {
			bit, err := f.Bit.decodeBits(r, false)
			if err != nil {
				return Value{}, nil, err
			}
			if f.Consume {
				r.CloseBitWindow()
			}
			return Bool(bit != 0), nil, nil
		}
		b, err := r.ReadBytes(1)
		if err != nil {
			return Value{}, nil, err
		}
		return Bool(b[0] != 0), nil, nil

	case FieldBitfield:
		if f.Bit == nil {
			return Value{}, nil, errFieldf(ErrUnsupported, "bitfield %q has no bit spec", f.Name)
		}
		raw, err := f.Bit.decodeBits(r, f.Signed)
		if err != nil {
			return Value{}, nil, err
		}
		if f.Consume {
			r.CloseBitWindow()
		}
		v, q := f.Mods.Apply(float64(raw))
		return v, q, nil

	case FieldNibbleDecimal:
		if f.Length != 1 {
			return Value{}, nil, errFieldf(ErrUnsupported, "udec/sdec wider than one byte is not supported")
		}
		b, err := r.ReadBytes(1)
		if err != nil {
			return Value{}, nil, err
		}
		raw := decodeNibbleDecimal(b[0], f.Signed)
		v, q := f.Mods.Apply(raw)
		return v, q, nil

	case FieldString:
		length, err := resolveLength(f, r, sc)
		if err != nil {
			return Value{}, nil, err
		}
		b, err := r.ReadBytes(length)
		if err != nil {
			return Value{}, nil, err
		}
		return String(string(b)), nil, nil

	case FieldBytes:
		length, err := resolveLength(f, r, sc)
		if err != nil {
			return Value{}, nil, err
		}
		b, err := r.ReadBytes(length)
		if err != nil {
			return Value{}, nil, err
		}
		return formatBytes(b, f.BytesFmt, f.HexSep), nil, nil

	case FieldEnum:
		u, err := r.ReadUint(f.Length, order)
		if err != nil {
			return Value{}, nil, err
		}
		if name, ok := f.Enum[int64(u)]; ok {
			return String(name), nil, nil
		}
		return String(fmt.Sprintf("unknown(%d)", u)), nil, nil

	case FieldBitfieldString:
		b, err := r.ReadBytes(f.Length)
		if err != nil {
			return Value{}, nil, err
		}
		return String(formatVersionString(b)), nil, nil

	case FieldComputed:
		return decodeComputed(f, sc)

	default:
		return Value{}, nil, errFieldf(ErrUnsupported, "unsupported field kind %s", f.Kind)
	}
}

func widthMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(bits) - 1
}

func resolveLength(f *Field, r *Reader, sc *Scope) (int, error) {
	if f.LengthRef != "" {
		v, err := sc.MustLookup(f.LengthRef)
		if err != nil {
			return 0, err
		}
		n, ok := v.Number()
		if !ok {
			return 0, errFieldf(ErrUndefinedVariable, "$%s is not numeric", f.LengthRef)
		}
		return int(n), nil
	}
	return f.Length, nil
}

// formatVersionString renders raw bytes as a dotted version-style string,
// e.g. [1,2,3] -> "1.2.3" (spec §3.2 `bitfield_string`).
func formatVersionString(b []byte) string {
	s := ""
	for i, x := range b {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d", x)
	}
	return s
}

// decodeComputed evaluates a `number` field (spec §4.5), applying the
// ordinary modifier pipeline to the computed raw value unless a guard
// clause substituted an Else value (which is used as-is: the guard
// replaces the computation outright, not merely its pre-pipeline input).
func decodeComputed(f *Field, sc *Scope) (Value, *string, error) {
	c := f.Computed
	if c.Guard != nil {
		ok, err := c.Guard.holds(sc)
		if err != nil {
			return Value{}, nil, err
		}
		if !ok {
			return c.Guard.Else, nil, nil
		}
	}

	v, err := c.evalCore(sc)
	if err != nil {
		return Value{}, nil, err
	}
	n, ok := v.Number()
	if !ok {
		return v, nil, nil
	}
	result, q := f.Mods.Apply(n)
	return result, q, nil
}
