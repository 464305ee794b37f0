package worker

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/metrics"
)

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// Named is implemented by jobs that report a metrics label
type Named interface {
	Name() string
}

type namedJob struct {
	name string
	Job
}

func (n namedJob) Name() string { return n.name }

// WithName labels job for logs and metrics
func WithName(name string, job Job) Job {
	return namedJob{name: name, Job: job}
}

// JobName returns the label for job
func JobName(job Job) string {
	if n, ok := job.(Named); ok {
		return n.Name()
	}
	return UnnamedJob
}

// Pool represents a worker pool
type Pool struct {
	workers  int
	jobQueue chan Job
	timeout  time.Duration
	wg       sync.WaitGroup
	quit     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		timeout:  DefaultJobTimeout,
		quit:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetJobTimeout overrides the per-run deadline
func (p *Pool) SetJobTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
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
		case job := <-p.jobQueue:
			p.run(job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) run(job Job) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	name := JobName(job)
	if err := job.Process(ctx); err != nil {
		metrics.JobRuns.WithLabelValues(name, metrics.ResultError).Inc()
		logger.FromContext(ctx).Error(LogMsgWorkerJobFailed, "job", name, "error", err)
		return
	}
	metrics.JobRuns.WithLabelValues(name, metrics.ResultOK).Inc()
}

// Enqueue adds a job, blocking while the queue is full.
// It returns false once the pool is stopped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	}
}

// TryEnqueue adds a job without blocking and reports whether it was queued
func (p *Pool) TryEnqueue(job Job) bool {
	select {
	case <-p.quit:
		return false
	default:
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		metrics.JobRuns.WithLabelValues(JobName(job), metrics.ResultSkipped).Inc()
		logger.Warn(LogMsgWorkerJobSkipped, "job", JobName(job))
		return false
	}
}

// Stop cancels running jobs and waits for workers to finish
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.cancel()
		p.wg.Wait()
	})
}
