package main

import (
	"bytes"
	"encoding/json"

	ps "github.com/kungfusheep/payloadschema"
)

// recordJSON renders a *ps.Record as JSON, preserving field declaration
// order the way ps.Record.Keys() exposes it (plain map[string]any loses
// that order under encoding/json, so the object body is built by hand).
func recordJSON(rec *ps.Record) ([]byte, error) {
	if rec == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range rec.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, _ := rec.Get(k)
		val, err := valueJSON(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func valueJSON(v ps.Value) ([]byte, error) {
	switch v.Kind {
	case ps.KindMap:
		return recordJSON(v.Map)
	case ps.KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := valueJSON(item)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case ps.KindBytes:
		return json.Marshal(v.Byt)
	case ps.KindString:
		return json.Marshal(v.Str)
	case ps.KindBool:
		return json.Marshal(v.Bool)
	case ps.KindInteger:
		return json.Marshal(v.Int)
	case ps.KindReal:
		return json.Marshal(v.Real)
	default:
		return []byte("null"), nil
	}
}

// jsonToRecord is the inverse conversion, used by `encode` to turn a
// caller-supplied JSON document back into a *ps.Record.
func jsonToRecord(data []byte) (*ps.Record, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return mapToRecord(raw), nil
}

func mapToRecord(m map[string]any) *ps.Record {
	rec := ps.NewRecord()
	for k, v := range m {
		rec.Set(k, anyToValue(v))
	}
	return rec
}

func anyToValue(v any) ps.Value {
	switch x := v.(type) {
	case nil:
		return ps.Null
	case string:
		return ps.String(x)
	case bool:
		return ps.Bool(x)
	case float64:
		return ps.Real(x)
	case map[string]any:
		return ps.Map(mapToRecord(x))
	case []any:
		items := make([]ps.Value, len(x))
		for i, e := range x {
			items[i] = anyToValue(e)
		}
		return ps.List(items)
	default:
		return ps.Null
	}
}
