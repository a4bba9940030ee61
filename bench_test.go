package schema

import "testing"

func BenchmarkModifiersApply(b *testing.B) {
	mult := 0.1
	add := -40.0
	m := Modifiers{Mult: &mult, Add: &add}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Apply(float64(i % 4096))
	}
}

func BenchmarkModifiersApplyWithTransformChain(b *testing.B) {
	div := 100.0
	m := Modifiers{
		Div: &div,
		Transform: []TransformOp{
			{Kind: TransformClamp, Lo: -40, Hi: 85},
			{Kind: TransformRound, Arg: 2},
		},
		ValidRange: &Range{Min: -40, Max: 85},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Apply(float64(i%20000) - 10000)
	}
}

func BenchmarkModifiersReverse(b *testing.B) {
	mult := 0.1
	add := -40.0
	m := Modifiers{Mult: &mult, Add: &add}
	v := Real(12.3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Reverse(v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeFlaggedSchema(b *testing.B) {
	s, err := Build(flaggedSchema())
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	buf := []byte{0x02, 0x01, 0x2F, 0x00, 0x03, 0x02, 0x58, 0x00, 0x98, 0x0B, 0xB8}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if res := Decode(s, buf, nil); res.Err != nil {
			b.Fatalf("decode: %v", res.Err)
		}
	}
}

func BenchmarkEncodeFlaggedSchema(b *testing.B) {
	s, err := Build(flaggedSchema())
	if err != nil {
		b.Fatalf("Build: %v", err)
	}
	buf := []byte{0x02, 0x01, 0x2F, 0x00, 0x03, 0x02, 0x58, 0x00, 0x98, 0x0B, 0xB8}
	res := Decode(s, buf, nil)
	if res.Err != nil {
		b.Fatalf("decode: %v", res.Err)
	}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if enc := Encode(s, res.Record, nil); enc.Err != nil {
			b.Fatalf("encode: %v", enc.Err)
		}
	}
}
