package schema

import (
	"context"
	"testing"
)

func TestDecodeAllPreservesOrder(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "seq", "endian": "big",
		"fields": []any{
			map[string]any{"name": "n", "type": "u8"},
		},
	})

	bufs := make([][]byte, 50)
	for i := range bufs {
		bufs[i] = []byte{byte(i)}
	}

	results, err := DecodeAll(context.Background(), s, bufs, nil)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(results) != len(bufs) {
		t.Fatalf("got %d results, want %d", len(results), len(bufs))
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d: %v", i, res.Err)
		}
		v, _ := res.Record.Get("n")
		if n, _ := v.Number(); int(n) != i {
			t.Fatalf("result %d: n = %v, want %d", i, n, i)
		}
	}
}

func TestDecodeAllCancelledContext(t *testing.T) {
	s := mustBuild(t, map[string]any{
		"name": "seq", "endian": "big",
		"fields": []any{map[string]any{"name": "n", "type": "u8"}},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeAll(ctx, s, [][]byte{{1}, {2}, {3}}, nil)
	if err == nil {
		t.Fatal("expected an error from a pre-cancelled context")
	}
}

// The schema compiled by Build is read-only once returned, so the same
// *Schema can be shared across goroutines calling Decode independently of
// DecodeAll; this exercises that guarantee directly (run with -race).
func TestConcurrentDecodeIsRaceFree(t *testing.T) {
	s := mustBuild(t, flaggedSchema())
	buf := mustHex(t, "02 012F 0003 0258 0098 0BB8")

	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			res := Decode(s, buf, nil)
			if res.Err != nil {
				t.Errorf("decode: %v", res.Err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
}
