package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsSubmittedTasks(t *testing.T) {
	pool := NewWorkerPool(3)
	assert.Equal(t, 3, pool.Size())

	var count atomic.Int32
	done := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() {
			count.Add(1)
			done <- struct{}{}
		}))
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	pool.Shutdown()
	assert.Equal(t, int32(10), count.Load())
}

func TestWorkerPool_DefaultsToCPUCount(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	assert.Positive(t, pool.Size())
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Shutdown()
	pool.Shutdown()
	assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolShutdown)
}

func TestWorkerPool_SubmitHonorsContext(t *testing.T) {
	pool := NewWorkerPool(1)
	release := make(chan struct{})
	defer func() {
		close(release)
		pool.Shutdown()
	}()

	block := func() { <-release }
	// one running plus a full buffer of two
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), block))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Submit(ctx, block), context.DeadlineExceeded)
}

func TestRun_ResultsInInputOrder(t *testing.T) {
	var jobs []Job[int]
	for i := 0; i < 20; i++ {
		jobs = append(jobs, func(context.Context) (int, error) {
			time.Sleep(time.Duration(20-i) * time.Millisecond / 10)
			if i == 7 {
				return 0, errors.New("job 7 failed")
			}
			return i * i, nil
		})
	}

	results := Run(context.Background(), 4, jobs)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		if i == 7 {
			assert.EqualError(t, r.Err, "job 7 failed")
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, i*i, r.Value)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	var jobs []Job[struct{}]
	for i := 0; i < 12; i++ {
		jobs = append(jobs, func(context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		})
	}

	Run(context.Background(), 3, jobs)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestRun_CanceledContextReachesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job[string]{
		func(ctx context.Context) (string, error) { return "", ctx.Err() },
		func(ctx context.Context) (string, error) { return "", ctx.Err() },
	}
	for _, r := range Run(ctx, 2, jobs) {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRun_Empty(t *testing.T) {
	assert.Empty(t, Run[int](context.Background(), 4, nil))
}
