package inspect

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// job renders one image and returns its path.
type job struct {
	stage string
	run   func() (string, error)
}

// runJobs runs jobs on at most workers goroutines (GOMAXPROCS when workers
// is not positive). Paths come back in job order. After the first failure no
// new job is started; the error is wrapped with the failing job's stage.
func runJobs(ctx context.Context, jobs []job, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	paths := make([]string, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, j := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			path, err := j.run()
			if err != nil {
				return &StageError{Stage: j.stage, Err: err}
			}
			paths[i] = path
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
