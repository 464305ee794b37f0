package worker

import "time"

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 5 * time.Minute

// UnnamedJob labels jobs that do not implement Named
const UnnamedJob = "unnamed"

// Log messages - worker pool
const (
	LogMsgWorkerJobFailed  = "Worker job failed"
	LogMsgWorkerJobSkipped = "Worker queue full, job skipped"
)

// Test pool configuration values used in pool_test.go
const (
	TestWorkerCount           = 2
	TestQueueSize             = 10
	TestExpectedJobCount      = 2
	TestWorkerProcessWaitTime = 100 // milliseconds
)
