package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errLookup = errors.New("lookup failed")

// lookupResult stands in for one entity's image lookup
type lookupResult struct {
	entity string
	err    error
}

func (r *lookupResult) GetError() error {
	return r.err
}

// lookupJob sleeps for delay (or until cancelled) and then reports its entity
type lookupJob struct {
	entity string
	delay  time.Duration
	fail   bool
	onRun  func()
	onDone func()
}

func (j *lookupJob) Execute(ctx context.Context) Result {
	if j.onRun != nil {
		j.onRun()
	}
	if j.onDone != nil {
		defer j.onDone()
	}

	if j.delay > 0 {
		timer := time.NewTimer(j.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return &lookupResult{entity: j.entity, err: ctx.Err()}
		}
	}
	if j.fail {
		return &lookupResult{entity: j.entity, err: errLookup}
	}
	return &lookupResult{entity: j.entity}
}

func TestNewPool_Workers(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{requested: 8, want: 8},
		{requested: 1, want: 1},
		{requested: 0, want: 1},
		{requested: -3, want: 1},
	}

	for _, tt := range tests {
		p := NewPool(context.Background(), tt.requested)
		if p.workers != tt.want {
			t.Errorf("NewPool(%d): expected %d workers, got %d", tt.requested, tt.want, p.workers)
		}
		p.Shutdown()
	}
}

func TestPool_ResultsFollowSubmissionOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4)
	pool.Start()

	// Far more jobs than the queue holds, and earlier jobs finish last
	const count = 40
	for i := 0; i < count; i++ {
		ok := pool.Submit(&lookupJob{
			entity: fmt.Sprintf("Q%d", i),
			delay:  time.Duration(count-i) * 100 * time.Microsecond,
		})
		if !ok {
			t.Fatalf("Submit %d refused", i)
		}
	}

	results := pool.Wait()
	if len(results) != count {
		t.Fatalf("expected %d results, got %d", count, len(results))
	}
	for i, res := range results {
		if want, got := fmt.Sprintf("Q%d", i), res.(*lookupResult).entity; got != want {
			t.Errorf("results[%d]: expected %s, got %s", i, want, got)
		}
	}
}

func TestPool_NeverExceedsWorkers(t *testing.T) {
	const workers = 3
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var running, peak, finished atomic.Int32
	for i := 0; i < 30; i++ {
		pool.Submit(&lookupJob{
			delay: 5 * time.Millisecond,
			onRun: func() {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
			},
			onDone: func() {
				running.Add(-1)
				finished.Add(1)
			},
		})
	}
	pool.Wait()

	if got := finished.Load(); got != 30 {
		t.Errorf("expected 30 finished jobs, got %d", got)
	}
	if got := peak.Load(); got > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", got, workers)
	}
}

func TestPool_FailuresStayWithTheirJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()

	pool.Submit(&lookupJob{entity: "Q1"})
	pool.Submit(&lookupJob{entity: "Q2", fail: true})
	pool.Submit(&lookupJob{entity: "Q3"})

	results := pool.Wait()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, wantErr := range []bool{false, true, false} {
		if err := results[i].GetError(); (err != nil) != wantErr {
			t.Errorf("results[%d]: unexpected error state %v", i, err)
		}
	}
	if !errors.Is(results[1].GetError(), errLookup) {
		t.Errorf("expected errLookup, got %v", results[1].GetError())
	}
}

func TestPool_SubmitRefusedWhenClosed(t *testing.T) {
	tests := []struct {
		name  string
		close func(p *Pool)
	}{
		{name: "after shutdown", close: func(p *Pool) { p.Shutdown() }},
		{name: "after wait", close: func(p *Pool) { p.Wait() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(context.Background(), 2)
			pool.Start()
			tt.close(pool)

			done := make(chan bool, 1)
			go func() { done <- pool.Submit(&lookupJob{}) }()

			select {
			case ok := <-done:
				if ok {
					t.Error("expected Submit to be refused")
				}
			case <-time.After(time.Second):
				t.Fatal("Submit blocked on a closed pool")
			}
		})
	}
}

func TestPool_ShutdownCancelsRunningJobs(t *testing.T) {
	pool := NewPool(context.Background(), 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&lookupJob{delay: time.Minute, onRun: func() { close(started) }})
	<-started

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not cancel the running job")
	}
}

func TestPool_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&lookupJob{entity: "Q1", delay: time.Minute, onRun: func() { close(started) }})
	<-started
	cancel()

	results := pool.Wait()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].GetError(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", results[0].GetError())
	}
}
