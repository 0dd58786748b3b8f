package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn for indexes 0..n-1, in order when sequential and on at most
// c.workers goroutines otherwise. fn reports failures through its unit, so
// the group never cancels. Scheduling stops once ctx is done; the returned
// count says how many indexes were started.
func (c *Coordinator) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) (int, error) {
	if !c.parallel {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return i, err
			}
			fn(ctx, i)
		}
		return n, nil
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return i, err
		}
		i := i
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	return n, g.Wait()
}
