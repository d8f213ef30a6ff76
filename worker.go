package qshard

import "context"

// Worker executes traversal jobs for a pool.
type Worker struct {
	id   int
	pool *Pool
	jobs chan Job
}

func (w *Worker) run(ctx context.Context) {
	for {
		// Offer ourselves to the pool, then wait for the job it routes to us.
		select {
		case <-ctx.Done():
			return
		case w.pool.workers <- w.jobs:
		}

		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *Worker) process(job Job) {
	defer job.done.Done()
	job.Fn(w.id, job.Lo, job.Hi)
}
