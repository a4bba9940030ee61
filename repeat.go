package schema

// RepeatBound selects how a Repeat construct's iteration count is
// determined (spec §4.6 "Repeat").
type RepeatBound uint8

const (
	RepeatCount RepeatBound = iota
	RepeatCountField
	RepeatByteLength
	RepeatUntilEnd
)

// RepeatSpec is the payload of a FieldRepeat field: an ordered list of
// sub-records, each decoded from its own child scope invisible to
// subsequent iterations (spec §4.6 "Repeat").
type RepeatSpec struct {
	Bound RepeatBound

	Count         int    // RepeatCount
	CountFieldRef string // RepeatCountField
	ByteLengthRef string // RepeatByteLength: $ref names the byte length to consume

	Fields []Field

	Min, Max *int // inclusive; nil = unconstrained
}

func decodeRepeat(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	spec := f.Repeat
	items := []Value{}

	emit := func() error {
		child := sc.Child()
		sub := NewRecord()
		if err := decodeFields(spec.Fields, st, child, sub); err != nil {
			return err
		}
		items = append(items, Map(sub))
		return nil
	}

	switch spec.Bound {
	case RepeatCount:
		for i := 0; i < spec.Count; i++ {
			if err := emit(); err != nil {
				return err
			}
		}

	case RepeatCountField:
		v, err := sc.MustLookup(spec.CountFieldRef)
		if err != nil {
			return err
		}
		n, ok := v.Number()
		if !ok {
			return errFieldf(ErrUndefinedVariable, "$%s is not numeric", spec.CountFieldRef)
		}
		for i := 0; i < int(n); i++ {
			if err := emit(); err != nil {
				return err
			}
		}

	case RepeatByteLength:
		v, err := sc.MustLookup(spec.ByteLengthRef)
		if err != nil {
			return err
		}
		n, ok := v.Number()
		if !ok {
			return errFieldf(ErrUndefinedVariable, "$%s is not numeric", spec.ByteLengthRef)
		}
		target := st.r.Position() + int(n)
		for st.r.Position() < target {
			if err := emit(); err != nil {
				return err
			}
		}

	default: // RepeatUntilEnd
		for st.r.BytesLeft() > 0 {
			if err := emit(); err != nil {
				return err
			}
		}
	}

	if err := checkRepeatBounds(f.Name, len(items), spec.Min, spec.Max); err != nil {
		return err
	}

	rec.Set(f.Name, List(items))
	return nil
}

func checkRepeatBounds(name string, n int, min, max *int) error {
	if min != nil && n < *min {
		return errFieldf(ErrParseError, "repeat %q: got %d items, need at least %d", name, n, *min)
	}
	if max != nil && n > *max {
		return errFieldf(ErrParseError, "repeat %q: got %d items, at most %d allowed", name, n, *max)
	}
	return nil
}

func encodeRepeat(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	spec := f.Repeat
	v, ok := rec.Get(f.Name)
	if !ok || v.Kind != KindList {
		return errFieldf(ErrMissingInput, "repeat %q missing from input", f.Name)
	}

	if err := checkRepeatBounds(f.Name, len(v.List), spec.Min, spec.Max); err != nil {
		return err
	}

	for _, item := range v.List {
		if item.Kind != KindMap {
			return errFieldf(ErrMissingInput, "repeat %q: item is not an object", f.Name)
		}
		child := sc.Child()
		if err := encodeFields(spec.Fields, st, child, item.Map); err != nil {
			return err
		}
	}
	return nil
}
