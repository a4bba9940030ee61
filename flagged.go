package schema

// FlaggedGroup is one bit-gated field group of a Flagged construct, decoded
// only when bit Bit of the referenced bitmask is set (spec §4.6 "Flagged").
type FlaggedGroup struct {
	Bit    int
	Fields []Field
}

// FlaggedSpec is the payload of a FieldFlagged field. Ref names an
// already-decoded (or, on encode, encoder-computed, see
// buildEncodeOverrides) integer field whose bits gate each group.
type FlaggedSpec struct {
	Ref    string
	Groups []FlaggedGroup
}

// decodeFlagged decodes, in declaration order, every group whose bit is set
// in the referenced bitmask. Like Match, groups merge flat into the
// enclosing record/scope.
func decodeFlagged(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	flags, err := sc.MustLookup(f.Flagged.Ref)
	if err != nil {
		return err
	}
	n, ok := flags.Number()
	if !ok {
		return errFieldf(ErrUndefinedVariable, "$%s is not numeric", f.Flagged.Ref)
	}
	bits := int64(n)
	for _, g := range f.Flagged.Groups {
		if bits&(int64(1)<<uint(g.Bit)) == 0 {
			continue
		}
		if err := decodeFields(g.Fields, st, sc, rec); err != nil {
			return err
		}
	}
	return nil
}

// encodeFlagged mirrors decodeFlagged: the bitmask value was already
// computed and bound by encodeFields' buildEncodeOverrides pre-scan, and by
// the time the flags field itself was encoded it is present in scope like
// any other already-written field, so the same bit is used to decide
// whether each group's fields were present (and therefore need encoding).
func encodeFlagged(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	flags, err := sc.MustLookup(f.Flagged.Ref)
	if err != nil {
		return err
	}
	n, ok := flags.Number()
	if !ok {
		return errFieldf(ErrUndefinedVariable, "$%s is not numeric", f.Flagged.Ref)
	}
	bits := int64(n)
	for _, g := range f.Flagged.Groups {
		if bits&(int64(1)<<uint(g.Bit)) == 0 {
			continue
		}
		if err := encodeFields(g.Fields, st, sc, rec); err != nil {
			return err
		}
	}
	return nil
}
