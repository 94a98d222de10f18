// Package worker dispatches CPU-bound optimization jobs away from the
// request path. Jobs run in isolated planworker subprocesses, bounded by
// a semaphore sized to the machine's cores minus one. Once a job is
// dispatched it cannot be cancelled; it completes or fails in place.
package worker

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/optimizer"
)

// Job is one optimization request handed to a runner.
type Job struct {
	TaskID      string
	Dishes      []menu.Dish
	Constraints optimizer.Constraints
	Config      optimizer.Config

	// Seed fixes the randomness when non-zero. Production leaves it
	// zero; tests set it for reproducibility.
	Seed int64
}

// Runner executes a single job.
type Runner interface {
	Run(ctx context.Context, job *Job) ([]menu.MenuPlan, error)
}

// Pool bounds concurrent job execution. The ctx passed to Run gates
// queue admission only; a job that started keeps running even if the
// submitter's context is cancelled afterwards.
type Pool struct {
	runner Runner
	sem    *semaphore.Weighted
	size   int
}

// NewPool creates a pool of the given size over the runner. A
// non-positive size defaults to NumCPU-1, floored at 1.
func NewPool(size int, runner Runner) *Pool {
	if size <= 0 {
		size = runtime.NumCPU() - 1
		if size < 1 {
			size = 1
		}
	}
	return &Pool{
		runner: runner,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
	}
}

// Size returns the pool's concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

// Run blocks until a slot is free, then executes the job.
func (p *Pool) Run(ctx context.Context, job *Job) ([]menu.MenuPlan, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.runner.Run(ctx, job)
}
