package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/tkaracan/caliper/internal/observability"
)

// Collect runs the extractor over every source concurrently and merges the
// fragments. Each source is scanned independently; results are merged in
// input order so identical input yields an identical fragment. Any extractor
// error fails the whole collection; a partial edge set would silently skew
// the metrics downstream.
func Collect(ctx context.Context, e Extractor, sources []Source) (Fragment, error) {
	fragments := make([]Fragment, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			_, span := observability.StartExtractSpan(ctx, e.Name(), src.Name)
			defer span.End()

			frag, err := e.Extract(ctx, src)
			observability.RecordExtractResult(span, len(frag.Edges), len(frag.TypeCounts), err)
			if err != nil {
				errs[i] = fmt.Errorf("extract %s: %w", src.Name, err)
				return
			}
			fragments[i] = frag
		}(i, src)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Fragment{}, err
		}
	}
	return Merge(fragments...), nil
}
