package schema

// decodeObject decodes a nested Object construct (spec §4.6 "Object"): a
// named sub-scope whose fields see the enclosing scope as a parent but
// whose own bindings are not visible to siblings that follow it.
func decodeObject(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	child := sc.Child()
	sub := NewRecord()
	if err := decodeFields(f.Object.Fields, st, child, sub); err != nil {
		return err
	}
	rec.Set(f.Name, Map(sub))
	return nil
}

func encodeObject(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	v, ok := rec.Get(f.Name)
	if !ok || v.Kind != KindMap {
		return errFieldf(ErrMissingInput, "object %q missing from input", f.Name)
	}
	child := sc.Child()
	return encodeFields(f.Object.Fields, st, child, v.Map)
}

// decodeByteGroup decodes a byte-group construct (spec §4.6 "Object and
// byte-group"): an explicit or inferred host-byte window shared by several
// bit-packed sibling fields. The group's own fields land flat in the
// enclosing record/scope (unlike Object, a byte-group is not a separate
// named value — it only exists to share a window).
func decodeByteGroup(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	if err := decodeFields(f.ByteGroup.Fields, st, sc, rec); err != nil {
		return err
	}
	if f.ByteGroup.Size > 0 {
		st.r.CloseBitWindowToSize(f.ByteGroup.Size)
	} else {
		st.r.CloseBitWindow()
	}
	return nil
}

func encodeByteGroup(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	if err := encodeFields(f.ByteGroup.Fields, st, sc, rec); err != nil {
		return err
	}
	if f.ByteGroup.Size > 0 {
		st.b.CloseBitWindowToSize(f.ByteGroup.Size)
	} else {
		st.b.CloseBitWindow()
	}
	return nil
}
