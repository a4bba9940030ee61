package schema

// MatchPattern is one case label of a Match construct (spec §4.6 "Match").
// Exactly one of Literal, Set or Range is meaningful; a case with none set
// and Default true is the schema-declared default.
type MatchPattern struct {
	Literal *float64
	Set     []float64
	RangeLo *float64
	RangeHi *float64
	Default bool
}

func (p MatchPattern) matches(v float64) bool {
	switch {
	case p.Literal != nil:
		return v == *p.Literal
	case p.Set != nil:
		for _, s := range p.Set {
			if v == s {
				return true
			}
		}
		return false
	case p.RangeLo != nil && p.RangeHi != nil:
		return v >= *p.RangeLo && v <= *p.RangeHi
	default:
		return p.Default
	}
}

// MatchCase pairs a pattern with the fields decoded when it wins.
type MatchCase struct {
	Pattern MatchPattern
	Fields  []Field
}

// MatchDefaultPolicy selects what happens when no case pattern matches the
// selector (spec §4.6 "Match").
type MatchDefaultPolicy uint8

const (
	MatchDefaultError MatchDefaultPolicy = iota
	MatchDefaultSkip
	MatchDefaultFields
)

// MatchSpec is the payload of a FieldMatch field: tag-dispatch on a
// previously-decoded (or computed) selector value (spec §4.6 "Match").
type MatchSpec struct {
	SelectorRef     string       // $name selector, the common case
	SelectorCompute *ComputeExpr // expression selector, if not a bare ref

	Cases         []MatchCase
	DefaultPolicy MatchDefaultPolicy
	DefaultFields []Field // used only when DefaultPolicy == MatchDefaultFields
}

func (m *MatchSpec) selector(sc *Scope) (float64, error) {
	if m.SelectorCompute != nil {
		return m.SelectorCompute.Eval(sc)
	}
	v, err := sc.MustLookup(m.SelectorRef)
	if err != nil {
		return 0, err
	}
	n, ok := v.Number()
	if !ok {
		return 0, errFieldf(ErrUndefinedVariable, "$%s is not numeric", m.SelectorRef)
	}
	return n, nil
}

func (m *MatchSpec) winner(v float64) *MatchCase {
	for i := range m.Cases {
		if m.Cases[i].Pattern.matches(v) {
			return &m.Cases[i]
		}
	}
	return nil
}

// decodeMatch selects a case by evaluating the selector against the
// current scope, and decodes the winning (or default) case's fields
// directly into the enclosing record/scope — a Match does not introduce a
// nested object of its own.
func decodeMatch(f *Field, st *decodeState, sc *Scope, rec *Record) error {
	m := f.Match
	v, err := m.selector(sc)
	if err != nil {
		return err
	}
	if c := m.winner(v); c != nil {
		return decodeFields(c.Fields, st, sc, rec)
	}
	switch m.DefaultPolicy {
	case MatchDefaultFields:
		return decodeFields(m.DefaultFields, st, sc, rec)
	case MatchDefaultSkip:
		return nil
	default:
		return errFieldf(ErrMatchNoCase, "match %q: selector %v has no case", f.Name, v)
	}
}

func encodeMatch(f *Field, st *encodeState, sc *Scope, rec *Record) error {
	m := f.Match
	v, err := m.selector(sc)
	if err != nil {
		return err
	}
	if c := m.winner(v); c != nil {
		return encodeFields(c.Fields, st, sc, rec)
	}
	switch m.DefaultPolicy {
	case MatchDefaultFields:
		return encodeFields(m.DefaultFields, st, sc, rec)
	case MatchDefaultSkip:
		return nil
	default:
		return errFieldf(ErrMatchNoCase, "match %q: selector %v has no case", f.Name, v)
	}
}
