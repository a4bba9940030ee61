package schema

import (
	"bytes"
	"encoding/hex"
	"math"
	"strings"
	"testing"
)

func mustBuild(t *testing.T, tree map[string]any) *Schema {
	t.Helper()
	s, err := Build(tree)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("hex decode %q: %v", s, err)
	}
	return b
}

// S1 — signed fixed-point.
func TestScenarioSignedFixedPoint(t *testing.T) {
	tree := map[string]any{
		"name": "s1", "endian": "big",
		"fields": []any{
			map[string]any{"name": "temperature", "type": "i16", "div": 10.0, "add": -40.0},
		},
	}
	s := mustBuild(t, tree)
	buf := mustHex(t, "00E7")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	v, _ := res.Record.Get("temperature")
	if got, _ := v.Number(); math.Abs(got-(-16.9)) > 1e-9 {
		t.Fatalf("temperature = %v, want -16.9", got)
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if !bytes.Equal(enc.Bytes, buf) {
		t.Fatalf("round-trip: got % x, want % x", enc.Bytes, buf)
	}
}

// S2 — flagged groups (Decentlab DL-5TM style).
func flaggedSchema() map[string]any {
	return map[string]any{
		"name": "s2", "endian": "big",
		"fields": []any{
			map[string]any{"name": "protocol_version", "type": "u8"},
			map[string]any{"name": "device_id", "type": "u16"},
			map[string]any{"name": "flags", "type": "u16"},
			map[string]any{
				"name": "body", "type": "flagged", "ref": "flags",
				"groups": []any{
					map[string]any{"bit": 0.0, "fields": []any{
						map[string]any{"name": "dielectric", "type": "u16", "div": 50.0},
						map[string]any{"name": "raw_temp", "type": "u16"},
					}},
					map[string]any{"bit": 1.0, "fields": []any{
						map[string]any{"name": "battery", "type": "u16", "div": 1000.0},
					}},
				},
			},
		},
	}
}

func TestScenarioFlaggedGroups(t *testing.T) {
	s := mustBuild(t, flaggedSchema())
	buf := mustHex(t, "02 012F 0003 0258 0098 0BB8")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}

	check := func(name string, want float64) {
		v, ok := res.Record.Get(name)
		if !ok {
			t.Fatalf("missing field %q", name)
		}
		if got, _ := v.Number(); got != want {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
	check("protocol_version", 2)
	check("device_id", 303)
	check("flags", 3)
	check("dielectric", 12.0)
	check("raw_temp", 152)
	check("battery", 3.0)

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if !bytes.Equal(enc.Bytes, buf) {
		t.Fatalf("round-trip: got % x, want % x", enc.Bytes, buf)
	}
}

// S3 — polynomial on a computed ref, layered on the S2 schema.
func TestScenarioPolynomialComputed(t *testing.T) {
	tree := flaggedSchema()
	tree["fields"] = append(tree["fields"].([]any), map[string]any{
		"name": "vwc", "type": "number", "ref": "dielectric",
		"polynomial": []any{0.0000043, -0.00055, 0.0292, -0.053},
	})
	s := mustBuild(t, tree)
	buf := mustHex(t, "02 012F 0003 0258 0098 0BB8")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	v, ok := res.Record.Get("vwc")
	if !ok {
		t.Fatal("missing vwc")
	}
	got, _ := v.Number()
	// 0.0000043*12^3 - 0.00055*12^2 + 0.0292*12 - 0.053 = 0.2256304
	if math.Abs(got-0.2256) > 1e-4 {
		t.Fatalf("vwc = %v, want ~0.2256", got)
	}
}

// S4 — byte-group bitfields.
func TestScenarioByteGroupBitfields(t *testing.T) {
	tree := map[string]any{
		"name": "s4", "endian": "big",
		"fields": []any{
			map[string]any{
				"type": "byte_group",
				"fields": []any{
					map[string]any{"name": "a", "type": "bitfield", "host_bits": 8.0, "bits": "0:3"},
					map[string]any{"name": "b", "type": "bitfield", "host_bits": 8.0, "bits": "4:7"},
				},
			},
		},
	}
	s := mustBuild(t, tree)
	buf := mustHex(t, "A5")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	if res.BytesConsumed != 1 {
		t.Fatalf("BytesConsumed = %d, want 1", res.BytesConsumed)
	}
	a, _ := res.Record.Get("a")
	b, _ := res.Record.Get("b")
	if n, _ := a.Number(); n != 5 {
		t.Fatalf("a = %v, want 5", n)
	}
	if n, _ := b.Number(); n != 10 {
		t.Fatalf("b = %v, want 10", n)
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if !bytes.Equal(enc.Bytes, buf) {
		t.Fatalf("round-trip: got % x, want % x", enc.Bytes, buf)
	}
}

// S5 — TLV with a composite tag.
func TestScenarioTLVCompositeTag(t *testing.T) {
	tree := map[string]any{
		"name": "s5", "endian": "big",
		"fields": []any{
			map[string]any{
				"name": "readings", "type": "tlv",
				"tag_fields": []any{
					map[string]any{"name": "channel", "type": "u8"},
					map[string]any{"name": "sensor", "type": "u8"},
				},
				"cases": []any{
					map[string]any{"tag": []any{3.0, 0x67}, "fields": []any{
						map[string]any{"name": "temperature", "type": "i16", "div": 10.0},
					}},
					map[string]any{"tag": []any{1.0, 0x75}, "fields": []any{
						map[string]any{"name": "battery", "type": "u8"},
					}},
				},
			},
		},
	}
	s := mustBuild(t, tree)
	buf := mustHex(t, "0175 64 0367 00FA")

	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	battery, _ := res.Record.Get("battery")
	temperature, _ := res.Record.Get("temperature")
	if n, _ := battery.Number(); n != 100 {
		t.Fatalf("battery = %v, want 100", n)
	}
	if n, _ := temperature.Number(); n != 25.0 {
		t.Fatalf("temperature = %v, want 25.0", n)
	}

	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if !bytes.Equal(enc.Bytes, buf) {
		t.Fatalf("round-trip: got % x, want % x", enc.Bytes, buf)
	}
}

// S6 — match with a range default.
func matchSchema() map[string]any {
	return map[string]any{
		"name": "s6", "endian": "big",
		"fields": []any{
			map[string]any{"name": "msg_type", "type": "u8"},
			map[string]any{
				"name": "payload", "type": "match", "selector": "msg_type",
				"cases": []any{
					map[string]any{"range": []any{1.0, 5.0}, "fields": []any{
						map[string]any{"name": "code", "type": "u16"},
					}},
				},
				"default": "skip",
			},
		},
	}
}

func TestScenarioMatchRangeDefault(t *testing.T) {
	s := mustBuild(t, matchSchema())

	buf := mustHex(t, "02002A")
	res := Decode(s, buf, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	msgType, _ := res.Record.Get("msg_type")
	code, _ := res.Record.Get("code")
	if n, _ := msgType.Number(); n != 2 {
		t.Fatalf("msg_type = %v, want 2", n)
	}
	if n, _ := code.Number(); n != 42 {
		t.Fatalf("code = %v, want 42", n)
	}
	enc := Encode(s, res.Record, nil)
	if enc.Err != nil {
		t.Fatalf("encode: %v", enc.Err)
	}
	if !bytes.Equal(enc.Bytes, buf) {
		t.Fatalf("round-trip: got % x, want % x", enc.Bytes, buf)
	}

	buf2 := mustHex(t, "F0")
	res2 := Decode(s, buf2, nil)
	if res2.Err != nil {
		t.Fatalf("decode default case: %v", res2.Err)
	}
	if _, ok := res2.Record.Get("code"); ok {
		t.Fatal("code should not be present on the default path")
	}
	msgType2, _ := res2.Record.Get("msg_type")
	if n, _ := msgType2.Number(); n != 240 {
		t.Fatalf("msg_type = %v, want 240", n)
	}

	enc2 := Encode(s, res2.Record, nil)
	if enc2.Err != nil {
		t.Fatalf("encode default case: %v", enc2.Err)
	}
	if !bytes.Equal(enc2.Bytes, buf2) {
		t.Fatalf("round-trip default: got % x, want % x", enc2.Bytes, buf2)
	}
}

// S7 — quality classification.
func qualitySchema() map[string]any {
	return map[string]any{
		"name": "s7", "endian": "big",
		"fields": []any{
			map[string]any{
				"name": "temperature", "type": "i16", "div": 100.0,
				"valid_range": []any{-40.0, 85.0},
			},
		},
	}
}

func TestScenarioQualityClassification(t *testing.T) {
	s := mustBuild(t, qualitySchema())

	res := Decode(s, mustHex(t, "FC18"), nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	v, _ := res.Record.Get("temperature")
	if got, _ := v.Number(); math.Abs(got-(-10.00)) > 1e-9 {
		t.Fatalf("temperature = %v, want -10.00", got)
	}
	if res.Quality["temperature"] != QualityGood {
		t.Fatalf("quality = %q, want good", res.Quality["temperature"])
	}

	res2 := Decode(s, mustHex(t, "FC17C108"), nil)
	if res2.Err != nil {
		t.Fatalf("decode: %v", res2.Err)
	}
	v2, _ := res2.Record.Get("temperature")
	if got, _ := v2.Number(); math.Abs(got-(-10.01)) > 1e-9 {
		t.Fatalf("temperature = %v, want -10.01", got)
	}
	if res2.Quality["temperature"] != QualityGood {
		t.Fatalf("quality = %q, want good", res2.Quality["temperature"])
	}
	if len(res2.Warnings) != 1 || res2.Warnings[0].Kind != KindTrailingBytes {
		t.Fatalf("warnings = %v, want one trailing-bytes warning", res2.Warnings)
	}

	resOOR := Decode(s, mustHex(t, "D8F0"), nil)
	if resOOR.Err != nil {
		t.Fatalf("decode: %v", resOOR.Err)
	}
	if resOOR.Quality["temperature"] != QualityOutOfRange {
		t.Fatalf("quality = %q, want out_of_range", resOOR.Quality["temperature"])
	}
}

// Invariant 7: _quality appears iff at least one field declares valid_range.
func TestInvariantQualityPresenceIsConditional(t *testing.T) {
	noRange := mustBuild(t, map[string]any{
		"name": "no_range", "endian": "big",
		"fields": []any{map[string]any{"name": "x", "type": "u8"}},
	})
	res := Decode(noRange, []byte{7}, nil)
	if res.Err != nil {
		t.Fatalf("decode: %v", res.Err)
	}
	if len(res.Quality) != 0 {
		t.Fatalf("Quality = %v, want empty", res.Quality)
	}

	withRange := mustBuild(t, qualitySchema())
	res2 := Decode(withRange, mustHex(t, "FC18"), nil)
	if res2.Err != nil {
		t.Fatalf("decode: %v", res2.Err)
	}
	if len(res2.Quality) != 1 {
		t.Fatalf("Quality = %v, want exactly one entry", res2.Quality)
	}
}

// Invariant 6: short-buffer safety.
func TestInvariantShortBufferSafety(t *testing.T) {
	s := mustBuild(t, flaggedSchema())
	full := mustHex(t, "02 012F 0003 0258 0098 0BB8")
	for k := 0; k < len(full); k++ {
		res := Decode(s, full[:k], nil)
		if res.Err == nil {
			continue
		}
		if res.Kind != KindShortBuffer {
			t.Fatalf("truncated to %d bytes: kind = %v, want short-buffer", k, res.Kind)
		}
	}
}
