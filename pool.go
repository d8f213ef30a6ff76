package qshard

import (
	"context"
	"sync"
)

/*
Pool is a fixed set of workers that split the outer loop of one dispatcher
traversal. Jobs of a traversal write disjoint addresses, so the only
synchronisation is the join at the end of Run.

A pool is owned by one engine and serves one traversal at a time; gate
submission itself stays single threaded.
*/
type Pool struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    chan chan Job
	jobs       chan Job
	workerList []*Worker
	size       int
}

// NewPool starts size workers. A size below two yields an inline pool.
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:     ctx,
		cancel:  cancel,
		workers: make(chan chan Job, size),
		jobs:    make(chan Job, size*4),
		size:    size,
	}

	if size == 1 {
		return p
	}

	for i := 0; i < size; i++ {
		p.startWorker(i)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.manage()
	}()

	return p
}

// Size returns the number of workers, and so the number of scratch slots a
// traversal needs.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) manage() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			select {
			case <-p.ctx.Done():
				job.done.Done()
				return
			case workerChan := <-p.workers:
				workerChan <- job
			}
		}
	}
}

func (p *Pool) startWorker(id int) {
	worker := &Worker{
		id:   id,
		pool: p,
		jobs: make(chan Job, 1),
	}
	p.workerList = append(p.workerList, worker)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		worker.run(p.ctx)
	}()
}

/*
Run splits [0, n) into contiguous chunks, runs fn over them on the workers and
returns once every chunk is done. fn receives the worker id so it can pick a
per-worker scratch buffer. Small ranges run inline on worker 0.
*/
func (p *Pool) Run(n int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}

	chunks := min(p.size, n)
	if chunks <= 1 || p.ctx.Err() != nil {
		fn(0, 0, n)
		return
	}

	step := (n + chunks - 1) / chunks

	var done sync.WaitGroup
	done.Add((n + step - 1) / step)

	for id, lo := 0, 0; lo < n; id, lo = id+1, lo+step {
		p.jobs <- Job{ID: id, Lo: lo, Hi: min(lo+step, n), Fn: fn, done: &done}
	}

	done.Wait()
}

// Close stops the workers and waits for them to exit.
func (p *Pool) Close() {
	if p == nil {
		return
	}

	p.cancel()
	p.wg.Wait()
}
