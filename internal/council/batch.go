package council

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
)

// RunBatch answers several independent problems with the same strategy,
// at most limit at a time (limit <= 0 means no limit). Results are in
// input order. One failed run does not stop the others; their errors are
// joined in input order.
func (r *Runner) RunBatch(ctx context.Context, strategy Strategy, problems []ensemble.Problem, limit int) ([]*Result, error) {
	results := make([]*Result, len(problems))
	errs := make([]error, len(problems))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range problems {
		g.Go(func() error {
			results[i], errs[i] = r.Run(gctx, strategy, p)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}
