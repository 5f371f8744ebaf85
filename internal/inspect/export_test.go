package inspect

import "context"

// Job and RunJobs expose the render pool to the external test package.
type Job = job

func NewJob(stage string, run func() (string, error)) Job {
	return job{stage: stage, run: run}
}

func RunJobs(ctx context.Context, jobs []Job, workers int) ([]string, error) {
	return runJobs(ctx, jobs, workers)
}
