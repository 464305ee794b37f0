package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osse101/mobilesync/internal/worker"
)

// MockJob is a simple job for testing
type MockJob struct {
	RunCount atomic.Int32
	Done     chan struct{}
}

func (m *MockJob) Process(ctx context.Context) error {
	m.RunCount.Add(1)
	select {
	case m.Done <- struct{}{}:
	default:
	}
	return nil
}

func waitRuns(t *testing.T, job *MockJob, n int, within time.Duration) {
	t.Helper()
	timeout := time.After(within)
	for i := 0; i < n; i++ {
		select {
		case <-job.Done:
		case <-timeout:
			t.Fatalf("timeout waiting for run %d", i+1)
		}
	}
}

func TestScheduler(t *testing.T) {
	pool := worker.NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	sched := New(pool)
	defer sched.Stop()

	job := &MockJob{Done: make(chan struct{}, 10)}
	sched.Schedule(10*time.Millisecond, job)
	sched.Start()

	waitRuns(t, job, 2, 200*time.Millisecond)
	assert.GreaterOrEqual(t, job.RunCount.Load(), int32(2))
}

func TestScheduler_NothingRunsBeforeStart(t *testing.T) {
	pool := worker.NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	sched := New(pool)
	defer sched.Stop()

	job := &MockJob{Done: make(chan struct{}, 10)}
	sched.Schedule(5*time.Millisecond, job)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), job.RunCount.Load())
}

func TestScheduler_ImmediateRunsAtStart(t *testing.T) {
	pool := worker.NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	sched := New(pool)
	defer sched.Stop()

	job := &MockJob{Done: make(chan struct{}, 10)}
	sched.ScheduleImmediate(time.Hour, job)
	sched.Start()

	waitRuns(t, job, 1, 200*time.Millisecond)
}

func TestScheduler_AddAfterStart(t *testing.T) {
	pool := worker.NewPool(1, 10)
	pool.Start()
	defer pool.Stop()

	sched := New(pool)
	sched.Start()
	defer sched.Stop()

	job := &MockJob{Done: make(chan struct{}, 10)}
	sched.Schedule(10*time.Millisecond, job)

	waitRuns(t, job, 1, 200*time.Millisecond)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	pool := worker.NewPool(1, 10)
	sched := New(pool)
	sched.Schedule(time.Millisecond, &MockJob{Done: make(chan struct{}, 1)})
	sched.Start()

	sched.Stop()
	sched.Stop()
	pool.Stop()
}
