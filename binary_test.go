package schema

import (
	"bytes"
	"testing"
)

func TestBinarySchemaRoundTrip(t *testing.T) {
	mult := 0.1
	s := &Schema{
		Name:   "binary",
		Endian: BigEndian,
		Fields: []Field{
			{Kind: FieldInteger, IntWidth: Width2, Mods: Modifiers{Mult: &mult}},
			{Kind: FieldInteger, Signed: true, IntWidth: Width1},
			{Kind: FieldFloat, FloatWidth: FloatWidth32},
			{Kind: FieldBytes, Length: 4},
			{Kind: FieldBool},
		},
	}

	data, err := EncodeBinarySchema(s)
	if err != nil {
		t.Fatalf("EncodeBinarySchema: %v", err)
	}
	if string(data[0:2]) != "PS" {
		t.Fatalf("magic = %q, want PS", data[0:2])
	}
	if data[4] != 5 {
		t.Fatalf("field count = %d, want 5", data[4])
	}

	back, err := ParseBinarySchema(data)
	if err != nil {
		t.Fatalf("ParseBinarySchema: %v", err)
	}
	if len(back.Fields) != len(s.Fields) {
		t.Fatalf("got %d fields, want %d", len(back.Fields), len(s.Fields))
	}
	for i := range s.Fields {
		if back.Fields[i].Kind != s.Fields[i].Kind {
			t.Fatalf("field %d kind = %v, want %v", i, back.Fields[i].Kind, s.Fields[i].Kind)
		}
	}
	if back.Fields[0].Mods.Mult == nil || *back.Fields[0].Mods.Mult != 0.1 {
		t.Fatalf("field 0 mult = %v, want 0.1", back.Fields[0].Mods.Mult)
	}

	roundTrip, err := EncodeBinarySchema(back)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(roundTrip, data) {
		t.Fatalf("re-encode mismatch:\n got  % x\n want % x", roundTrip, data)
	}
}

func TestBinarySchemaRejectsBadMagicAndShortInput(t *testing.T) {
	if _, err := ParseBinarySchema(nil); err == nil {
		t.Fatal("expected error on empty input")
	}
	if _, err := ParseBinarySchema([]byte("XX\x01\x00\x00")); err == nil {
		t.Fatal("expected error on bad magic")
	}
	if _, err := ParseBinarySchema([]byte("PS\x01\x00\x02")); err == nil {
		t.Fatal("expected error when field records are truncated")
	}
}

func TestExpToMultRoundTrip(t *testing.T) {
	cases := []float64{1, 10, 100, 0.1, 0.01, 0.5}
	for _, mult := range cases {
		exp := multToExp(mult)
		got := expToMult(exp)
		if got != mult {
			t.Errorf("multToExp/expToMult(%v) round-tripped to %v", mult, got)
		}
	}
}

// FuzzParseBinarySchema exercises the one untrusted-input surface in this
// package: a device-provisioned binary schema blob. It must never panic,
// only return an error or a usable *Schema.
func FuzzParseBinarySchema(f *testing.F) {
	seed, _ := EncodeBinarySchema(&Schema{
		Fields: []Field{
			{Kind: FieldInteger, IntWidth: Width2},
			{Kind: FieldFloat, FloatWidth: FloatWidth32},
		},
	})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte("PS"))
	f.Add([]byte("PS\x01\x00\xff"))

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := ParseBinarySchema(data)
		if err != nil {
			return
		}
		if s == nil {
			t.Fatal("nil schema with nil error")
		}
		if _, err := EncodeBinarySchema(s); err != nil {
			t.Fatalf("re-encoding a schema ParseBinarySchema accepted failed: %v", err)
		}
	})
}
