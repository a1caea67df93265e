// Package pipeline implements the build engine's concurrency substrate: a
// fixed-size worker pool for Managed jobs, fresh-goroutine dispatch for
// Unbound jobs, and the Sequential/Parallel topographies that decide how a
// batch of jobs is awaited.
package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

var threadCounter atomic.Uint64

// NextThreadID returns a fresh ThreadID, unique for the process's
// lifetime. The build engine calls this once per job it schedules, before
// building the job's closure, so everything that closure evaluates or
// reports is stamped with that id.
func NextThreadID() qerr.ThreadID {
	return qerr.ThreadID(threadCounter.Add(1))
}

// Status is a job's position in its lifecycle, as surfaced to the log
// sink.
type Status int

const (
	Scheduled Status = iota
	Building
	Finished
	Failed
)

// Handle is a job's externally visible state: its lifecycle status, a
// highlight flag the log sink toggles for the task currently in focus,
// and the one-shot completion signal AwaitCompletion blocks on.
type Handle struct {
	mu          sync.Mutex
	status      Status
	highlighted bool
	aborted     bool
	err         error
	done        chan struct{}
}

func newHandle() *Handle {
	return &Handle{status: Scheduled, done: make(chan struct{})}
}

// SetStatus records the job's current lifecycle stage.
func (h *Handle) SetStatus(s Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// Status returns the job's current lifecycle stage.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// SetHighlighted records whether the log sink should draw this job's
// entry as the one currently in focus.
func (h *Handle) SetHighlighted(b bool) {
	h.mu.Lock()
	h.highlighted = b
	h.mu.Unlock()
}

// Highlighted reports the last value passed to SetHighlighted.
func (h *Handle) Highlighted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.highlighted
}

// WasAborted reports whether the job was dropped from a pool's queue
// before it ever ran.
func (h *Handle) WasAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// HadError reports whether the job's Compute returned a non-nil error.
func (h *Handle) HadError() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err != nil
}

// AwaitCompletion blocks until the job has run (or been aborted) and
// returns the error its Compute returned, if any.
func (h *Handle) AwaitCompletion() error {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) complete(err error) {
	h.mu.Lock()
	h.err = err
	if err != nil {
		h.status = Failed
	} else {
		h.status = Finished
	}
	h.mu.Unlock()
	close(h.done)
}

func (h *Handle) abort() {
	h.mu.Lock()
	h.aborted = true
	h.mu.Unlock()
	close(h.done)
}

// Job is one unit of scheduled work: a thunk the scheduler runs exactly
// once, and the Handle tracking its outcome. The caller building Compute
// is responsible for closing over whatever frame stack, thread id, and
// evaluation context the unit of work needs; pipeline has no notion of
// any of that.
type Job struct {
	Compute func() error
	Handle  *Handle
}

// NewJob returns a Job wrapping compute, with a fresh Handle in the
// Scheduled state.
func NewJob(compute func() error) Job {
	return Job{Compute: compute, Handle: newHandle()}
}

// Pool is the fixed-size worker pool backing Managed scheduling: leaf
// work such as command execution is pushed to a shared FIFO and drained
// by a bounded set of long-lived workers, so that arbitrarily deep
// dependency fan-out (always scheduled Unbound, never through a Pool)
// can never starve the pool of workers.
//
// The FIFO-behind-a-mutex-plus-counting-semaphore queue protocol is
// rendered here as a single buffered Go channel: sending blocks once the
// buffer is full exactly as a bounded queue would, and receiving blocks
// until a job is available exactly as waiting on the semaphore would.
// Closing the channel on shutdown cascades termination to every worker
// in one step, which is what the extra semaphore release accomplishes in
// a hand-rolled queue.
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup
}

// NewPool starts a Pool with the given number of workers (at least 1) and
// a queue capacity of cap.
func NewPool(workers, cap int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if cap < 1 {
		cap = 1
	}
	p := &Pool{jobs: make(chan Job, cap)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		if job.Handle.WasAborted() {
			job.Handle.abort()
			continue
		}
		job.Handle.SetStatus(Building)
		err := job.Compute()
		job.Handle.complete(err)
		if err != nil {
			p.AbortQueued()
		}
	}
}

// Submit pushes job to the queue and returns immediately; the caller
// awaits completion through job.Handle.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// AbortQueued marks every job currently sitting in the queue as aborted
// and releases its completion signal, without running its Compute. A
// worker that observes any job's error calls this so siblings already
// waiting in line do not start new work after a fail-fast pipeline has
// already decided to unwind. It is a one-shot snapshot of the queue at
// the moment it runs: jobs Submitted afterward are unaffected, so an
// unrelated branch scheduled later on the same long-lived Pool still
// runs normally.
func (p *Pool) AbortQueued() {
	for {
		select {
		case job := <-p.jobs:
			job.Handle.abort()
		default:
			return
		}
	}
}

// StopSync closes the queue and blocks until every worker has drained it
// and exited.
func (p *Pool) StopSync() {
	close(p.jobs)
	p.wg.Wait()
}

// StopAsync closes the queue without waiting for workers to drain it.
func (p *Pool) StopAsync() {
	close(p.jobs)
}

// Method distinguishes whether a Scheduler submits its jobs to a shared
// fixed Pool (Managed) or spawns a fresh goroutine per job (Unbound).
type Method int

const (
	Managed Method = iota
	Unbound
)

// Topography is how one Scheduler.Run call dispatches the batch of jobs
// it is given: Sequential runs them one at a time, stopping at the first
// error; Parallel dispatches all of them together and waits for every
// one to finish.
type Topography int

const (
	Sequential Topography = iota
	Parallel
)

// Scheduler combines a Method and a Topography: the build engine builds
// one per depends_parallel/run_parallel decision (spec's "running
// dependencies"/"running commands" fields) and calls Run or SendAndAwait
// with the batch of jobs for that decision.
type Scheduler struct {
	Method     Method
	Topography Topography
	Pool       *Pool // only read when Method == Managed
}

// NewScheduler returns a Scheduler. pool is ignored (and may be nil) when
// method is Unbound.
func NewScheduler(method Method, topography Topography, pool *Pool) *Scheduler {
	return &Scheduler{Method: method, Topography: topography, Pool: pool}
}

func (s *Scheduler) dispatch(job Job) {
	switch s.Method {
	case Managed:
		s.Pool.Submit(job)
	default:
		go func() {
			job.Handle.SetStatus(Building)
			err := job.Compute()
			job.Handle.complete(err)
		}()
	}
}

// Run schedules jobs according to s's Method and Topography and blocks
// until the batch has settled: under Sequential, jobs are dispatched and
// awaited one at a time, and a job after the first failure is never
// dispatched at all; under Parallel, every job is dispatched together and
// Run waits for all of them.
func (s *Scheduler) Run(jobs []Job) {
	switch s.Topography {
	case Sequential:
		for _, job := range jobs {
			s.dispatch(job)
			if err := job.Handle.AwaitCompletion(); err != nil {
				return
			}
		}
	default:
		for _, job := range jobs {
			s.dispatch(job)
		}
		for _, job := range jobs {
			job.Handle.AwaitCompletion()
		}
	}
}

// SendAndAwait runs jobs via Run and then implements the halt/soft_report
// handoff: if any thread, anywhere, has stored an error in cat by the
// time the batch settles, one such error (as picked by
// qerr.TriggerReport) is returned for the caller to unwind with.
func (s *Scheduler) SendAndAwait(cat *qerr.Catalog, jobs []Job) error {
	s.Run(jobs)
	if cat.HadErrors() {
		return qerr.TriggerReport(cat)
	}
	return nil
}
