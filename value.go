package schema

import (
	"fmt"
	"sort"
)

// Kind identifies the dynamic type carried by a Value. The value space is
// closed by design (spec §9, "Dynamic typing") — there is no open
// interface{} escape hatch.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindBool
	KindString
	KindBytes
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Value is the closed dynamic value type produced by Decode and consumed by
// Encode. Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Int  int64
	Real float64
	Bool bool
	Str  string
	Byt  []byte
	List []Value
	Map  *Record
}

// Null is the zero Value representing the absence of a value (spec §9).
var Null = Value{Kind: KindNull}

func Integer(v int64) Value   { return Value{Kind: KindInteger, Int: v} }
func Real(v float64) Value    { return Value{Kind: KindReal, Real: v} }
func Bool(v bool) Value       { return Value{Kind: KindBool, Bool: v} }
func String(v string) Value   { return Value{Kind: KindString, Str: v} }
func Bytes(v []byte) Value    { return Value{Kind: KindBytes, Byt: v} }
func List(v []Value) Value    { return Value{Kind: KindList, List: v} }
func Map(v *Record) Value     { return Value{Kind: KindMap, Map: v} }
func IsNull(v Value) bool     { return v.Kind == KindNull }

// Number returns v as a float64 regardless of whether it was decoded as an
// Integer or a Real, for use by the modifier pipeline (spec §4.4) which
// treats both uniformly until a transform or division reintroduces
// fractional precision.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int), true
	case KindReal:
		return v.Real, true
	default:
		return 0, false
	}
}

func (v Value) String_() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindReal:
		return fmt.Sprintf("%g", v.Real)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("% x", v.Byt)
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindMap:
		return v.Map.String()
	default:
		return "?"
	}
}

// Record is an ordered map from field name to Value: the tree the decoder
// produces and the encoder consumes. Order is preserved so JSON/CLI output
// matches declaration order, the way an ordered map would in a language
// with one; Go maps don't preserve order so we keep an explicit key slice
// alongside the lookup map.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord creates an empty, ready-to-use Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set assigns name to v, appending name to the key order the first time it
// is seen and overwriting the value (but not its position) on repeats.
func (r *Record) Set(name string, v Value) {
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Get returns the value bound to name and whether it was present.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns field names in declaration/insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) String() string {
	if r == nil {
		return "{}"
	}
	keys := append([]string(nil), r.keys...)
	sort.Strings(keys)
	s := "{"
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		v, _ := r.values[k]
		s += k + ": " + v.String_()
	}
	return s + "}"
}
