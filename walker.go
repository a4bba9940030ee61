package schema

import "errors"

// ErrSkipVisit, returned from VisitField, tells Walk not to descend into
// that field's children (if it has any) while still continuing with its
// siblings. Modeled on glint's walker.go sentinel of the same name.
var ErrSkipVisit = errors.New("skip-visit")

// Visitor is a read-only observer over a schema tree (spec §3.1's tree
// shape), used by Print/SPrint and available to any caller that wants to
// inspect a compiled Schema without hand-walking Field/ObjectSpec/etc.
// Modeled on glint's Visitor (walker.go), adapted from glint's
// reflect-driven struct walk to this package's schema-tree walk.
type Visitor interface {
	// VisitField is called for every field, leaf or structural, before its
	// children (if any) are visited. Returning ErrSkipVisit suppresses the
	// descent into this field's children only.
	VisitField(path string, f *Field) error
	// EnterScope/ExitScope bracket a nested field list: Object, byte-group,
	// match/flagged/TLV case bodies, a Repeat's body template.
	EnterScope(path string, label string)
	ExitScope(path string)
}

// Walk traverses s's field tree depth-first in declaration order.
func Walk(s *Schema, v Visitor) error {
	if s.Ports != nil {
		for _, sub := range s.Ports {
			if err := walkFields(sub.Fields, "", v); err != nil {
				return err
			}
		}
		return nil
	}
	return walkFields(s.Fields, "", v)
}

func walkFields(fields []Field, prefix string, v Visitor) error {
	for i := range fields {
		f := &fields[i]
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		err := v.VisitField(path, f)
		if errors.Is(err, ErrSkipVisit) {
			continue
		}
		if err != nil {
			return err
		}

		switch f.Kind {
		case FieldObject:
			v.EnterScope(path, "object")
			if err := walkFields(f.Object.Fields, path, v); err != nil {
				return err
			}
			v.ExitScope(path)
		case FieldByteGroup:
			v.EnterScope(path, "byte_group")
			if err := walkFields(f.ByteGroup.Fields, path, v); err != nil {
				return err
			}
			v.ExitScope(path)
		case FieldRepeat:
			v.EnterScope(path, "repeat")
			if err := walkFields(f.Repeat.Fields, path, v); err != nil {
				return err
			}
			v.ExitScope(path)
		case FieldMatch:
			for _, c := range f.Match.Cases {
				v.EnterScope(path, "match case")
				if err := walkFields(c.Fields, path, v); err != nil {
					return err
				}
				v.ExitScope(path)
			}
			if f.Match.DefaultPolicy == MatchDefaultFields {
				v.EnterScope(path, "match default")
				if err := walkFields(f.Match.DefaultFields, path, v); err != nil {
					return err
				}
				v.ExitScope(path)
			}
		case FieldFlagged:
			for _, g := range f.Flagged.Groups {
				v.EnterScope(path, "flagged group")
				if err := walkFields(g.Fields, path, v); err != nil {
					return err
				}
				v.ExitScope(path)
			}
		case FieldTLV:
			for _, c := range f.TLV.Cases {
				v.EnterScope(path, "tlv case")
				if err := walkFields(c.Fields, path, v); err != nil {
					return err
				}
				v.ExitScope(path)
			}
		}
	}
	return nil
}
