// Package jobs runs the periodic pipelines on tickers.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/johnrirwin/newsdesk/internal/logging"
)

// Job is one named periodic task. A zero Interval disables it.
type Job struct {
	Name       string
	Interval   time.Duration
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Runner starts every registered job on its own ticker and skips a tick
// while the previous run of the same job is still going.
type Runner struct {
	jobs   []Job
	guard  *Guard
	lock   Lock
	logger *logging.Logger
	wg     sync.WaitGroup
}

// New creates a runner. lock may be nil for single-replica deployments.
func New(lock Lock, logger *logging.Logger) *Runner {
	return &Runner{
		guard:  NewGuard(),
		lock:   lock,
		logger: logger,
	}
}

func (r *Runner) Add(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start launches the job loops; they stop when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		if job.Interval <= 0 || job.Run == nil {
			r.logger.Info("Job disabled", logging.WithField("job", job.Name))
			continue
		}

		r.logger.Info("Scheduling job", logging.WithFields(map[string]interface{}{
			"job":      job.Name,
			"interval": job.Interval.String(),
		}))

		r.wg.Add(1)
		go func(job Job) {
			defer r.wg.Done()
			r.loop(ctx, job)
		}(job)
	}
}

// Wait blocks until every job loop has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	if job.RunOnStart {
		r.RunNow(ctx, job)
	}

	for {
		select {
		case <-ticker.C:
			r.RunNow(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow executes job once unless a run of it is already in flight here or,
// when a distributed lock is configured, on another replica. It reports
// whether the job actually ran.
func (r *Runner) RunNow(ctx context.Context, job Job) bool {
	if !r.guard.TryAcquire(job.Name) {
		r.logger.Warn("Previous run still in flight, skipping", logging.WithField("job", job.Name))
		return false
	}
	defer r.guard.Release(job.Name)

	if r.lock != nil {
		release, ok := r.lock.TryLock(ctx, job.Name, job.Interval)
		if !ok {
			r.logger.Debug("Job running on another replica, skipping", logging.WithField("job", job.Name))
			return false
		}
		defer release()
	}

	start := time.Now()
	err := job.Run(ctx)
	fields := map[string]interface{}{
		"job":         job.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		r.logger.Error("Job failed", logging.WithFields(fields))
		return true
	}
	r.logger.Debug("Job finished", logging.WithFields(fields))
	return true
}
