package schema

import "testing"

func repeatItemField() []any {
	return []any{
		map[string]any{"name": "v", "type": "u8"},
	}
}

func TestRepeatCountFixed(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "rc", "endian": "big",
		"fields": []any{
			map[string]any{"name": "items", "type": "repeat", "count": 3, "fields": repeatItemField()},
		},
	})
	res := Decode(s, []byte{10, 20, 30}, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	items, _ := res.Record.Get("items")
	if len(items.List) != 3 {
		t.Fatalf("got %d items, want 3", len(items.List))
	}
	want := []int64{10, 20, 30}
	for i, it := range items.List {
		v, _ := it.Map.Get("v")
		if n, _ := v.Number(); int64(n) != want[i] {
			t.Fatalf("item %d = %v, want %d", i, n, want[i])
		}
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if string(enc.Bytes) != string([]byte{10, 20, 30}) {
		t.Fatalf("re-encode = % x, want % x", enc.Bytes, []byte{10, 20, 30})
	}
}

func TestRepeatCountField(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "rcf", "endian": "big",
		"fields": []any{
			map[string]any{"name": "n", "type": "u8", "var": "n"},
			map[string]any{"name": "items", "type": "repeat", "count_field": "n", "fields": repeatItemField()},
		},
	})
	res := Decode(s, []byte{2, 100, 101}, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	items, _ := res.Record.Get("items")
	if len(items.List) != 2 {
		t.Fatalf("got %d items, want 2", len(items.List))
	}
}

func TestRepeatByteLength(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "rbl", "endian": "big",
		"fields": []any{
			map[string]any{"name": "len", "type": "u8", "var": "len"},
			map[string]any{"name": "items", "type": "repeat", "byte_length_field": "len", "fields": repeatItemField()},
			map[string]any{"name": "tail", "type": "u8"},
		},
	})
	res := Decode(s, []byte{3, 1, 2, 3, 99}, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	items, _ := res.Record.Get("items")
	if len(items.List) != 3 {
		t.Fatalf("got %d items, want 3", len(items.List))
	}
	tail, _ := res.Record.Get("tail")
	if n, _ := tail.Number(); n != 99 {
		t.Fatalf("tail = %v, want 99", n)
	}
}

func TestRepeatUntilEnd(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "rue", "endian": "big",
		"fields": []any{
			map[string]any{"name": "items", "type": "repeat", "until": "end", "fields": repeatItemField()},
		},
	})
	res := Decode(s, []byte{1, 2, 3, 4, 5}, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	items, _ := res.Record.Get("items")
	if len(items.List) != 5 {
		t.Fatalf("got %d items, want 5", len(items.List))
	}
}

func TestRepeatMinMaxBoundsOnDecode(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "bounded", "endian": "big",
		"fields": []any{
			map[string]any{
				"name": "items", "type": "repeat", "until": "end",
				"min": 2, "max": 4, "fields": repeatItemField(),
			},
		},
	})
	if res := Decode(s, []byte{1}, nil); res.Err == nil {
		t.Fatal("expected an error when fewer items than min are present")
	}
	if res := Decode(s, []byte{1, 2, 3, 4, 5}, nil); res.Err == nil {
		t.Fatal("expected an error when more items than max are present")
	}
	if res := Decode(s, []byte{1, 2, 3}, nil); res.Err != nil {
		t.Fatalf("decode within bounds: %v", res.Err)
	}
}

func TestRepeatMinMaxBoundsOnEncode(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "bounded_enc", "endian": "big",
		"fields": []any{
			map[string]any{
				"name": "items", "type": "repeat", "count": 0,
				"min": 1, "fields": repeatItemField(),
			},
		},
	})
	rec := NewRecord()
	rec.Set("items", List(nil))
	if res := Encode(s, rec, nil); res.Err == nil {
		t.Fatal("expected an error encoding fewer items than min")
	}
}

func TestRepeatCountFieldComputedOnEncode(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "rcf_enc", "endian": "big",
		"fields": []any{
			map[string]any{"name": "n", "type": "u8", "var": "n"},
			map[string]any{"name": "items", "type": "repeat", "count_field": "n", "fields": repeatItemField()},
		},
	})
	rec := NewRecord()
	rec.Set("n", Integer(0))
	rec.Set("items", List([]Value{
		Map(recordWith("v", Integer(7))),
		Map(recordWith("v", Integer(8))),
	}))
	res := Encode(s, rec, nil)
	if res.Err != nil {
		t.Fatalf("encode: %v", res.Err)
	}
	want := []byte{2, 7, 8}
	if string(res.Bytes) != string(want) {
		t.Fatalf("encode = % x, want % x (count field must be computed from len(items), not the input n)", res.Bytes, want)
	}
}

func recordWith(k string, v Value) *Record {
	r := NewRecord()
	r.Set(k, v)
	return r
}
