package scheduler

import (
	"sync"
	"time"

	"github.com/osse101/mobilesync/internal/logger"
	"github.com/osse101/mobilesync/internal/worker"
)

// LogMsgJobScheduled is logged for every registered interval job
const LogMsgJobScheduled = "Scheduled background job"

type entry struct {
	interval  time.Duration
	job       worker.Job
	immediate bool
}

// Scheduler feeds interval jobs into a worker pool.
// A tick whose job cannot be queued is skipped, never delayed.
type Scheduler struct {
	workerPool *worker.Pool
	quit       chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	entries    []entry
	started    bool
	stopOnce   sync.Once
}

// New creates a new scheduler
func New(pool *worker.Pool) *Scheduler {
	return &Scheduler{
		workerPool: pool,
		quit:       make(chan struct{}),
	}
}

// Schedule registers a job to run at a fixed interval
func (s *Scheduler) Schedule(interval time.Duration, job worker.Job) {
	s.add(entry{interval: interval, job: job})
}

// ScheduleImmediate registers a job that also runs once at start
func (s *Scheduler) ScheduleImmediate(interval time.Duration, job worker.Job) {
	s.add(entry{interval: interval, job: job, immediate: true})
}

func (s *Scheduler) add(e entry) {
	if e.interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if s.started {
		s.launch(e)
	}
}

// Start launches every registered job; jobs added later start immediately
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, e := range s.entries {
		s.launch(e)
	}
}

func (s *Scheduler) launch(e entry) {
	logger.Info(LogMsgJobScheduled, "job", worker.JobName(e.job), "interval", e.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if e.immediate {
			s.workerPool.TryEnqueue(e.job)
		}
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.workerPool.TryEnqueue(e.job)
			case <-s.quit:
				return
			}
		}
	}()
}

// Stop stops all scheduled jobs
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}
