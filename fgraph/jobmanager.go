// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package fgraph

import "sync"

// Job is a unit of pass-recording work submitted to a JobManager. A
// FrameGraph calls one Job per declared Pass during the record phase,
// so that independent passes can be recorded concurrently when the
// caller opts into a parallel JobManager.
type Job func()

// JobManager runs a batch of Jobs and returns once every one has
// completed. Implementations may run them concurrently (spec.md's
// data model allows a backend/core to parallelize independent passes'
// recording); SerialJobManager is the trivial, always-correct
// baseline, and is the default when a FrameGraph is constructed
// without one.
type JobManager interface {
	Run(jobs []Job)
}

// SerialJobManager runs every Job on the calling goroutine, in order.
// It is the right choice for debugging (deterministic ordering,
// panics surface with their natural stack trace) and for frame graphs
// small enough that parallel recording wouldn't pay for itself.
type SerialJobManager struct{}

// Run implements JobManager.
func (SerialJobManager) Run(jobs []Job) {
	for _, j := range jobs {
		j()
	}
}

// WorkerJobManager runs Jobs across a fixed pool of worker goroutines,
// fed through a channel (the pool-of-goroutines-over-a-channel idiom).
// Run
// blocks until every job in the batch has completed; the pool itself
// stays alive across calls so repeated Run calls (one per frame) do
// not pay goroutine start-up cost each time.
type WorkerJobManager struct {
	jobs chan Job
	wg   sync.WaitGroup
	once sync.Once
}

// NewWorkerJobManager returns a WorkerJobManager backed by n worker
// goroutines. n <= 0 is treated as 1.
func NewWorkerJobManager(n int) *WorkerJobManager {
	if n <= 0 {
		n = 1
	}
	m := &WorkerJobManager{jobs: make(chan Job)}
	for i := 0; i < n; i++ {
		go m.worker()
	}
	return m
}

func (m *WorkerJobManager) worker() {
	for j := range m.jobs {
		j()
		m.wg.Done()
	}
}

// Run implements JobManager, distributing jobs across the worker pool
// and waiting for all of them to finish.
func (m *WorkerJobManager) Run(jobs []Job) {
	m.wg.Add(len(jobs))
	for _, j := range jobs {
		m.jobs <- j
	}
	m.wg.Wait()
}

// Close stops the worker pool. It must not be called while a Run is in
// flight.
func (m *WorkerJobManager) Close() {
	m.once.Do(func() { close(m.jobs) })
}
