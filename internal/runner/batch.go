package runner

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/CMSgov/hpt-validator-sub001/internal/datasource"
)

// ValidateAll validates sources with at most workers files in flight. Each
// file is still validated on one goroutine. Reports come back in input
// order. A source that fails is reported to onError (when non-nil), its
// Report carries the error text and the remaining sources still run. The
// returned error is non-nil only when ctx ends the batch.
func (r *Runner) ValidateAll(ctx context.Context, sources []datasource.Source, workers int, onError func(datasource.Source, error)) ([]Report, error) {
	if workers <= 0 {
		workers = 1
	}
	reports := make([]Report, len(sources))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, src := range sources {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rep, err := r.Validate(ctx, src)
			if err != nil {
				rep.Error = err.Error()
				if onError != nil {
					onError(src, err)
				} else {
					log.Printf("runner: name=%s error=%v", src.Name(), err)
				}
			}
			reports[i] = rep
			return nil
		})
	}
	_ = g.Wait()
	return reports, ctx.Err()
}

// AllValid reports whether every report validated cleanly.
func AllValid(reports []Report) bool {
	for _, rep := range reports {
		if rep.Error != "" || !rep.Result.Valid {
			return false
		}
	}
	return true
}
