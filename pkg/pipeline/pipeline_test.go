package pipeline

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

func TestHandleLifecycle(t *testing.T) {
	job := NewJob(func() error { return nil })
	if job.Handle.Status() != Scheduled {
		t.Fatalf("new handle status = %v, want Scheduled", job.Handle.Status())
	}
	job.Handle.SetStatus(Building)
	if job.Handle.Status() != Building {
		t.Errorf("Status() = %v, want Building", job.Handle.Status())
	}
	job.Handle.complete(nil)
	if job.Handle.Status() != Finished {
		t.Errorf("Status() after complete(nil) = %v, want Finished", job.Handle.Status())
	}
	if err := job.Handle.AwaitCompletion(); err != nil {
		t.Errorf("AwaitCompletion() = %v, want nil", err)
	}
}

func TestHandleCompleteWithError(t *testing.T) {
	h := newHandle()
	boom := errors.New("boom")
	h.complete(boom)
	if h.Status() != Failed {
		t.Errorf("Status() = %v, want Failed", h.Status())
	}
	if !h.HadError() {
		t.Error("HadError() = false, want true")
	}
	if err := h.AwaitCompletion(); err != boom {
		t.Errorf("AwaitCompletion() = %v, want %v", err, boom)
	}
}

func TestHandleAbort(t *testing.T) {
	h := newHandle()
	h.abort()
	if !h.WasAborted() {
		t.Error("WasAborted() = false, want true")
	}
	if err := h.AwaitCompletion(); err != nil {
		t.Errorf("AwaitCompletion() on aborted handle = %v, want nil", err)
	}
}

func TestPoolRunsSubmittedJob(t *testing.T) {
	p := NewPool(2, 4)
	defer p.StopSync()

	var ran atomic.Bool
	job := NewJob(func() error { ran.Store(true); return nil })
	p.Submit(job)
	if err := job.Handle.AwaitCompletion(); err != nil {
		t.Fatalf("AwaitCompletion() error = %v", err)
	}
	if !ran.Load() {
		t.Error("job never ran")
	}
}

func TestSchedulerSequentialStopsAtFirstError(t *testing.T) {
	s := NewScheduler(Unbound, Sequential, nil)
	var ran []int
	boom := errors.New("boom")
	jobs := make([]Job, 3)
	for i := range jobs {
		i := i
		jobs[i] = NewJob(func() error {
			ran = append(ran, i)
			if i == 0 {
				return boom
			}
			return nil
		})
	}
	s.Run(jobs)
	if len(ran) != 1 || ran[0] != 0 {
		t.Errorf("ran = %v, want only job 0 to have run", ran)
	}
	if jobs[1].Handle.Status() != Scheduled {
		t.Errorf("jobs[1] status = %v, want Scheduled (never dispatched)", jobs[1].Handle.Status())
	}
}

func TestSchedulerParallelRunsAll(t *testing.T) {
	s := NewScheduler(Unbound, Parallel, nil)
	var ran atomic.Int32
	jobs := make([]Job, 5)
	for i := range jobs {
		jobs[i] = NewJob(func() error {
			ran.Add(1)
			return nil
		})
	}
	s.Run(jobs)
	if ran.Load() != 5 {
		t.Errorf("ran = %d jobs, want 5", ran.Load())
	}
	for i, job := range jobs {
		if job.Handle.Status() != Finished {
			t.Errorf("jobs[%d] status = %v, want Finished", i, job.Handle.Status())
		}
	}
}

func TestPoolAbortQueuedSkipsRemainingWork(t *testing.T) {
	p := NewPool(1, 8)
	defer p.StopSync()

	release := make(chan struct{})
	var secondRan atomic.Bool

	first := NewJob(func() error {
		<-release
		return errors.New("first failed")
	})
	second := NewJob(func() error {
		secondRan.Store(true)
		return nil
	})

	p.Submit(first)
	p.Submit(second)

	// second sits queued behind first, which is still blocked on release.
	time.Sleep(20 * time.Millisecond)
	close(release)

	first.Handle.AwaitCompletion()
	second.Handle.AwaitCompletion()

	if secondRan.Load() {
		t.Error("second job ran after a preceding job in the same pool failed")
	}
	if !second.Handle.WasAborted() {
		t.Error("second job was not marked aborted")
	}
}

func TestPoolSurvivesAFailureForLaterUnrelatedJobs(t *testing.T) {
	p := NewPool(1, 8)
	defer p.StopSync()

	failing := NewJob(func() error { return errors.New("boom") })
	p.Submit(failing)
	if err := failing.Handle.AwaitCompletion(); err == nil {
		t.Fatal("AwaitCompletion() = nil, want the job's error")
	}

	// A later, unrelated job submitted to the same long-lived pool after
	// the failure above must still run: AbortQueued only drains what was
	// queued at the moment a job failed, it does not poison the pool.
	var laterRan atomic.Bool
	later := NewJob(func() error { laterRan.Store(true); return nil })
	p.Submit(later)
	if err := later.Handle.AwaitCompletion(); err != nil {
		t.Fatalf("AwaitCompletion() error = %v", err)
	}
	if !laterRan.Load() {
		t.Error("job submitted after an earlier unrelated failure never ran")
	}
	if later.Handle.WasAborted() {
		t.Error("job submitted after an earlier unrelated failure was aborted")
	}
}

func TestSchedulerSendAndAwaitTriggersFirstReportedError(t *testing.T) {
	cat := qerr.NewCatalog()
	s := NewScheduler(Unbound, Parallel, nil)
	jobs := []Job{
		NewJob(func() error {
			qerr.SoftReport(cat, qerr.ThreadID(1), qerr.ErrNoTasks())
			return qerr.ErrNoTasks()
		}),
	}
	err := s.SendAndAwait(cat, jobs)
	if err == nil {
		t.Fatal("SendAndAwait() = nil, want the reported error")
	}
	e, ok := err.(*qerr.Error)
	if !ok || e.Kind != qerr.NoTasks {
		t.Errorf("SendAndAwait() = %v, want NoTasks", err)
	}
}

func TestSchedulerSendAndAwaitNoErrors(t *testing.T) {
	cat := qerr.NewCatalog()
	s := NewScheduler(Unbound, Parallel, nil)
	jobs := []Job{NewJob(func() error { return nil })}
	if err := s.SendAndAwait(cat, jobs); err != nil {
		t.Errorf("SendAndAwait() = %v, want nil", err)
	}
}

func TestNextThreadIDIsUnique(t *testing.T) {
	a := NextThreadID()
	b := NextThreadID()
	if a == b {
		t.Errorf("NextThreadID() returned %v twice", a)
	}
}
