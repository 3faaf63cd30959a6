package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a Job produces
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

// Pool runs jobs on a fixed number of workers and returns their results
// in submission order.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	submitMu  sync.Mutex
	submitted int
	closed    bool

	resultsMu sync.Mutex
	results   map[int]Result
}

// NewPool creates a pool with the given number of workers.
// Jobs see a context derived from ctx that Shutdown cancels.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		results:    make(map[int]Result),
	}
}

// Start starts the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)

			p.resultsMu.Lock()
			p.results[ij.index] = result
			p.resultsMu.Unlock()
		}
	}
}

// Submit queues a job. It reports false if the pool is shut down or already waited on.
func (p *Pool) Submit(job Job) bool {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- indexedJob{index: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait waits for all submitted jobs and returns their results in submission order.
// A job that never ran because the pool was shut down has a nil entry.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancelFunc()

	p.submitMu.Lock()
	n := p.submitted
	p.submitMu.Unlock()

	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()

	out := make([]Result, n)
	for i := range out {
		out[i] = p.results[i]
	}
	return out
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.close()
	p.wg.Wait()
}

func (p *Pool) close() {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.jobQueue)
	}
}
