package schema

import "testing"

func tlvNestedSchema(once bool) map[string]any {
	return map[string]any{
		"name": "tlv_nested", "endian": "big",
		"fields": []any{
			map[string]any{
				"name": "entry", "type": "tlv", "tag_size": 1, "merge": false, "once": once,
				"cases": []any{
					map[string]any{"tag": 1, "fields": []any{
						map[string]any{"name": "battery", "type": "u8"},
					}},
					map[string]any{"tag": 3, "fields": []any{
						map[string]any{"name": "temperature", "type": "i16", "div": 10.0},
					}},
				},
			},
		},
	}
}

func TestTLVNestedOnceRoundTrip(t *testing.T) {
	s := mustBuild(t, tlvNestedSchema(true))
	buf := mustHex(t, "0164")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	entry, ok := res.Record.Get("entry")
	if !ok || entry.Kind != KindMap {
		t.Fatalf("entry = %+v, want a nested object", entry)
	}
	battery, _ := entry.Map.Get("battery")
	if n, _ := battery.Number(); n != 100 {
		t.Fatalf("battery = %v, want 100", n)
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if string(enc.Bytes) != string(buf) {
		t.Fatalf("re-encode = % x, want % x", enc.Bytes, buf)
	}
}

// A bare (non-Once), merge:false TLV loops until the buffer is exhausted
// and must accumulate every entry into a list rather than overwriting the
// same key on each iteration.
func TestTLVNestedLoopedAccumulatesList(t *testing.T) {
	s := mustBuild(t, tlvNestedSchema(false))
	buf := mustHex(t, "0164 0300FA")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	entry, ok := res.Record.Get("entry")
	if !ok || entry.Kind != KindList {
		t.Fatalf("entry = %+v, want a list", entry)
	}
	if len(entry.List) != 2 {
		t.Fatalf("got %d entries, want 2", len(entry.List))
	}

	battery, ok := entry.List[0].Map.Get("battery")
	if !ok {
		t.Fatal("entry[0] missing battery")
	}
	if n, _ := battery.Number(); n != 100 {
		t.Fatalf("entry[0].battery = %v, want 100", n)
	}

	temp, ok := entry.List[1].Map.Get("temperature")
	if !ok {
		t.Fatal("entry[1] missing temperature")
	}
	if n, _ := temp.Number(); n != 25 {
		t.Fatalf("entry[1].temperature = %v, want 25", n)
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if string(enc.Bytes) != string(buf) {
		t.Fatalf("re-encode = % x, want % x", enc.Bytes, buf)
	}
}
