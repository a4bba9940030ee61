package schema

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DecodeAll decodes every buffer in bufs against s concurrently and returns
// results in the same order as the input. A buffer that fails to decode
// reports its failure in its own result's Err and does not stop the
// others; DecodeAll itself returns an error (and nil results) only when
// ctx is cancelled (spec §5: "a compiled Schema is immutable and safe for concurrent
// decode/encode calls by independent callers"; this is the package's one
// concurrent convenience built on that guarantee). Grounded on
// solidcoredata/dca's use of golang.org/x/sync/errgroup to fan work out
// over a shared context.
func DecodeAll(ctx context.Context, s *Schema, bufs [][]byte, md MetadataInput) ([]*DecodeResult, error) {
	results := make([]*DecodeResult, len(bufs))

	g, ctx := errgroup.WithContext(ctx)
	for i, buf := range bufs {
		i, buf := i, buf
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = Decode(s, buf, md)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
