package inspect_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/calinspect/internal/inspect"
)

var _ = Describe("runJobs", func() {
	ok := func(path string) inspect.Job {
		return inspect.NewJob(inspect.StagePlot, func() (string, error) { return path, nil })
	}

	It("keeps job order whatever the worker count", func() {
		jobs := make([]inspect.Job, 20)
		for i := range jobs {
			jobs[i] = ok(fmt.Sprintf("img%02d.png", i))
		}
		for _, workers := range []int{0, 1, 3, 50} {
			paths, err := inspect.RunJobs(context.Background(), jobs, workers)
			Expect(err).NotTo(HaveOccurred())
			Expect(paths).To(HaveLen(20))
			Expect(paths[0]).To(Equal("img00.png"))
			Expect(paths[19]).To(Equal("img19.png"))
		}
	})

	It("wraps a failure with the job stage", func() {
		boom := errors.New("boom")
		jobs := []inspect.Job{
			ok("a.png"),
			inspect.NewJob(inspect.StageTipTilt, func() (string, error) { return "", boom }),
		}
		_, err := inspect.RunJobs(context.Background(), jobs, 1)
		Expect(err).To(MatchError(boom))

		var se *inspect.StageError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Stage).To(Equal(inspect.StageTipTilt))
	})

	It("starts nothing once the context is canceled", func() {
		var started atomic.Int32
		jobs := []inspect.Job{inspect.NewJob(inspect.StagePlot, func() (string, error) {
			started.Add(1)
			return "x.png", nil
		})}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := inspect.RunJobs(ctx, jobs, 1)
		Expect(err).To(MatchError(context.Canceled))
		Expect(started.Load()).To(BeZero())
	})
})
