package schema

// TLVUnknownPolicy controls what happens when a decoded tag matches no
// declared case (spec §4.6 "TLV").
type TLVUnknownPolicy uint8

const (
	TLVUnknownSkip TLVUnknownPolicy = iota
	TLVUnknownError
	TLVUnknownRaw
)

// TLVCase pairs an exact tag value (or, for a composite tag, an exact tuple
// of tag_fields values) with the fields decoded for that entry.
type TLVCase struct {
	Tag    []int64
	Fields []Field
}

// TLVSpec is the payload of a FieldTLV field (spec §4.6 "TLV"): a
// tag-dispatched, optionally length-prefixed entry format. A bare TLV field
// (not wrapped in an explicit Repeat) consumes entries back-to-back until
// the enclosing byte range is exhausted — the natural habitat for
// multiplexed payloads such as the composite-tag example of a multi-entry
// buffer (spec §8.2 scenario "TLV with composite tag"); Once overrides this
// for a TLV nested inside a construct that already governs repetition.
type TLVSpec struct {
	TagSize   int    // bytes per tag; ignored when TagFields is set
	TagFields []Field // composite tag: each decoded as an ordinary field, not exposed in the output record

	LengthSize int // 0 = no explicit length prefix

	Cases   []TLVCase
	Unknown TLVUnknownPolicy
	Merge   bool // true: case fields land flat in the enclosing record; false: nested under f.Name
	Once    bool // true: decode/encode exactly one entry instead of looping to end
}

// decodeTLV dispatches on Merge/Once (spec §4.6 "TLV"). merge:true writes
// every case's fields straight into the enclosing record, as before. For
// merge:false, a Once TLV nests a single object under f.Name, but a bare
// (non-Once) TLV loops until the buffer is exhausted and must not clobber
// f.Name on every iteration — it accumulates a List, mirroring repeat.go's
// multi-item handling.
func decodeTLV(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	t := f.TLV

	if t.Merge {
		for {
			if st.r.BytesLeft() == 0 {
				return nil
			}
			if _, err := decodeOneTLVEntry(f, st, sc, rec); err != nil {
				return err
			}
			if t.Once {
				return nil
			}
		}
	}

	if t.Once {
		if st.r.BytesLeft() == 0 {
			return nil
		}
		v, err := decodeOneTLVEntry(f, st, sc, rec)
		if err != nil {
			return err
		}
		if v != nil {
			rec.Set(f.Name, *v)
		}
		return nil
	}

	items := []Value{}
	for st.r.BytesLeft() > 0 {
		v, err := decodeOneTLVEntry(f, st, sc, rec)
		if err != nil {
			return err
		}
		if v != nil {
			items = append(items, *v)
		}
	}
	rec.Set(f.Name, List(items))
	return nil
}

// decodeOneTLVEntry decodes one tag/length/value entry. When t.Merge, its
// fields are written directly into rec and it returns a nil Value; when
// !t.Merge, the entry's own nested value (an object, or raw bytes for an
// unknown tag) is returned instead of being written, so the caller can
// either set it directly (Once) or append it to an accumulating List.
func decodeOneTLVEntry(f *Field, st *decodeState, sc *Scope, rec *Record) (*Value, error) {
	t := f.TLV
	tagScope := sc.Child()
	tag, err := decodeTag(t, st, tagScope)
	if err != nil {
		return nil, err
	}

	bodyLen := -1
	if t.LengthSize > 0 {
		u, err := st.r.ReadUint(t.LengthSize, BigEndian)
		if err != nil {
			return nil, err
		}
		bodyLen = int(u)
	}

	c := findTLVCase(t.Cases, tag)
	if c == nil {
		switch t.Unknown {
		case TLVUnknownError:
			return nil, errFieldf(ErrUnsupported, "tlv %q: unknown tag %v", f.Name, tag)
		case TLVUnknownRaw:
			n := bodyLen
			if n < 0 {
				n = st.r.BytesLeft()
			}
			raw, err := st.r.ReadBytes(n)
			if err != nil {
				return nil, err
			}
			v := Bytes(raw)
			if t.Merge {
				rec.Set(f.Name, v)
				return nil, nil
			}
			return &v, nil
		default: // TLVUnknownSkip
			st.warn(KindUnknownTag, f.Name, "unknown tag, skipped")
			if bodyLen >= 0 {
				return nil, st.r.Skip(bodyLen)
			}
			return nil, nil
		}
	}

	targetRec, targetScope := rec, tagScope
	if !t.Merge {
		targetRec = NewRecord()
		targetScope = tagScope.Child()
	}

	start := st.r.Position()
	if err := decodeFields(c.Fields, st, targetScope, targetRec); err != nil {
		return nil, err
	}
	if bodyLen >= 0 {
		if consumed := st.r.Position() - start; consumed < bodyLen {
			if err := st.r.Skip(bodyLen - consumed); err != nil {
				return nil, err
			}
		}
	}

	if t.Merge {
		return nil, nil
	}
	v := Map(targetRec)
	return &v, nil
}

func decodeTag(t *TLVSpec, st *decodeState, tagScope *Scope) ([]int64, error) {
	if len(t.TagFields) > 0 {
		tmp := NewRecord()
		if err := decodeFields(t.TagFields, st, tagScope, tmp); err != nil {
			return nil, err
		}
		vals := make([]int64, len(t.TagFields))
		for i, tf := range t.TagFields {
			v, _ := tmp.Get(tf.Name)
			n, _ := v.Number()
			vals[i] = int64(n)
		}
		return vals, nil
	}
	u, err := st.r.ReadUint(t.TagSize, BigEndian)
	if err != nil {
		return nil, err
	}
	return []int64{int64(u)}, nil
}

func findTLVCase(cases []TLVCase, tag []int64) *TLVCase {
	for i := range cases {
		if tagsEqual(cases[i].Tag, tag) {
			return &cases[i]
		}
	}
	return nil
}

func tagsEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// encodeTLV mirrors decodeTLV's Merge dispatch. merge:true fields live
// flat in rec, so cases are matched and emitted by walking rec's own keys
// (encodeTLVMerged, the original behavior). merge:false fields live
// nested under f.Name — a single object (Once) or a List of objects
// (looped) — produced by decodeTLV/decodeOneTLVEntry, so the case for
// each entry must be matched against that nested record's keys instead of
// rec's, or the case lookup never finds its target and nothing is ever
// written (Testable property 1: round-trip).
func encodeTLV(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	t := f.TLV
	if t.Merge {
		return encodeTLVMerged(f, st, sc, rec)
	}

	v, ok := rec.Get(f.Name)
	if !ok {
		return errFieldf(ErrMissingInput, "tlv %q missing from input", f.Name)
	}

	if t.Once {
		if v.Kind != KindMap {
			return errFieldf(ErrMissingInput, "tlv %q: expected an object", f.Name)
		}
		return encodeTLVEntryFromNested(f, st, sc, v.Map)
	}

	if v.Kind != KindList {
		return errFieldf(ErrMissingInput, "tlv %q: expected a list", f.Name)
	}
	for _, item := range v.List {
		if item.Kind != KindMap {
			return errFieldf(ErrMissingInput, "tlv %q: list item is not an object", f.Name)
		}
		if err := encodeTLVEntryFromNested(f, st, sc, item.Map); err != nil {
			return err
		}
	}
	return nil
}

// encodeTLVMerged walks rec's keys in declaration order, emitting one TLV
// entry per case whose fields are present, in the order their values were
// originally bound. This reproduces the wire order of scenario-style
// multi-entry payloads without requiring the caller to redeclare entry
// order separately from field order (Testable property 1: round-trip).
func encodeTLVMerged(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	t := f.TLV
	emitted := make(map[*TLVCase]bool)
	for _, k := range rec.Keys() {
		c := findTLVCaseByFieldName(t.Cases, k)
		if c == nil || emitted[c] {
			continue
		}
		emitted[c] = true
		if err := encodeOneTLVEntry(f, c, st, sc, rec); err != nil {
			return err
		}
		if t.Once {
			return nil
		}
	}
	return nil
}

// encodeTLVEntryFromNested matches a nested (merge:false) entry record
// against its declared case by the entry's own keys, then encodes it.
func encodeTLVEntryFromNested(f *Field, st *encodeState, sc *Scope, nested *Record) error {
	for _, k := range nested.Keys() {
		if c := findTLVCaseByFieldName(f.TLV.Cases, k); c != nil {
			return encodeOneTLVEntry(f, c, st, sc, nested)
		}
	}
	return errFieldf(ErrMissingInput, "tlv %q: no case matches nested entry fields", f.Name)
}

func findTLVCaseByFieldName(cases []TLVCase, name string) *TLVCase {
	for i := range cases {
		for _, cf := range cases[i].Fields {
			if cf.Name == name {
				return &cases[i]
			}
		}
	}
	return nil
}

func encodeOneTLVEntry(f *Field, c *TLVCase, st *encodeState, sc *Scope, rec *Record) error {
	t := f.TLV
	if len(t.TagFields) > 0 {
		for i, tf := range t.TagFields {
			if err := encodeLeaf(&tf, Integer(c.Tag[i]), st.b); err != nil {
				return err
			}
		}
	} else {
		if err := st.b.WriteUint(uint64(c.Tag[0]), t.TagSize, BigEndian); err != nil {
			return err
		}
	}

	tagScope := sc.Child()
	if t.LengthSize == 0 {
		return encodeFields(c.Fields, st, tagScope, rec)
	}

	body := &encodeState{b: NewBuffer()}
	if err := encodeFields(c.Fields, body, tagScope, rec); err != nil {
		return err
	}
	bodyBytes := body.b.Bytes()
	if err := st.b.WriteUint(uint64(len(bodyBytes)), t.LengthSize, BigEndian); err != nil {
		return err
	}
	st.b.WriteBytes(bodyBytes)
	st.warnings = append(st.warnings, body.warnings...)
	return nil
}
