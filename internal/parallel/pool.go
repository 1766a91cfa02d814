// Package parallel runs independent planning jobs on a bounded pool of
// goroutines. A single search is sequential; concurrency happens across
// task files.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines fed through a buffered
// channel, so Submit blocks once every worker is busy and the buffer is
// full.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues task. It blocks while the queue is full and fails with the
// context error or ErrPoolShutdown.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}

	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the workers after their current task. Queued tasks that
// no worker picked up are dropped, so callers wait for their own tasks
// before shutting down.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Job is one unit of work handed to Run.
type Job[T any] func(ctx context.Context) (T, error)

// Result pairs a job's output with its position in the input.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Run executes jobs on a pool of the given size and returns one result per
// job, in input order. A job that could not be submitted carries the
// submission error.
func Run[T any](ctx context.Context, workers int, jobs []Job[T]) []Result[T] {
	results := make([]Result[T], len(jobs))
	if len(jobs) == 0 {
		return results
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	pool := NewWorkerPool(workers)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		err := pool.Submit(ctx, func() {
			defer wg.Done()
			v, err := job(ctx)
			results[i] = Result[T]{Index: i, Value: v, Err: err}
		})
		if err != nil {
			wg.Done()
			results[i] = Result[T]{Index: i, Err: err}
		}
	}
	wg.Wait()
	return results
}
