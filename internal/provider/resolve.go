package provider

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// MaxConcurrent bounds in-flight provider calls per batch.
const MaxConcurrent = 4

// ResolveMany applies fn to every input with at most MaxConcurrent calls in
// flight. Failed inputs are logged and left out; the remaining results keep
// input order.
func ResolveMany[In, Out any](ctx context.Context, logger *slog.Logger, inputs []In, fn func(context.Context, In) (Out, error)) []Out {
	sem := semaphore.NewWeighted(MaxConcurrent)
	results := make([]Out, len(inputs))
	ok := make([]bool, len(inputs))

	var g errgroup.Group
	for i, in := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Warn("provider batch cancelled", "remaining", len(inputs)-i, "error", err)
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out, err := fn(ctx, in)
			if err != nil {
				logger.Warn("provider lookup failed", "index", i, "error", err)
				return nil
			}
			results[i], ok[i] = out, true
			return nil
		})
	}
	g.Wait()

	out := make([]Out, 0, len(inputs))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	return out
}
