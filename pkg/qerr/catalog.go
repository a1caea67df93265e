package qerr

import "sync"

// ThreadID identifies one goroutine's lane in a Catalog. The pipeline
// package hands out ThreadIDs through NextThreadID, which the build engine
// calls once per job it schedules; qerr never generates one itself, since Go goroutines have no public
// identity to hash.
type ThreadID uint64

// Catalog is the process-wide (but explicitly constructed and passed
// around, never a package-level global) thread-indexed error store. Only
// the first error reported by a given thread is kept: once a thread has
// halted or soft-reported a failure, later reports from the same thread
// are dropped, since the thread is already on its way to unwinding.
type Catalog struct {
	mu   sync.Mutex
	errs map[ThreadID]*Error
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{errs: make(map[ThreadID]*Error)}
}

// Store records err for tid if tid has not already reported an error. It
// reports whether the store took effect.
func (c *Catalog) Store(tid ThreadID, err *Error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.errs[tid]; ok {
		return false
	}
	c.errs[tid] = err
	return true
}

// Errors returns a snapshot of every thread's stored error.
func (c *Catalog) Errors() map[ThreadID]*Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ThreadID]*Error, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// HadErrors reports whether any thread has stored an error.
func (c *Catalog) HadErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) > 0
}

// First returns one stored error, arbitrarily chosen, and true, or nil and
// false if the catalog is empty. The scheduler's trigger_report uses this
// to pick the error it re-raises to the coordinating goroutine.
func (c *Catalog) First() (*Error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, err := range c.errs {
		return err, true
	}
	return nil, false
}

// Halt stores err under tid and returns a frozen copy of stack together
// with err, so the caller can do `return qerr.Halt(cat, tid, stack, err)`
// and have both the frame freeze and the error propagation happen in one
// step. The unwind itself is just Go's normal error return; Halt only
// performs the side effects the unwind must carry with it.
func Halt(cat *Catalog, tid ThreadID, stack Stack, err *Error) (Stack, error) {
	cat.Store(tid, err)
	return stack.Freeze(), err
}

// SoftReport stores err under tid without freezing stack, so the calling
// job can keep running and let siblings contribute their own errors before
// the scheduler later calls TriggerReport.
func SoftReport(cat *Catalog, tid ThreadID, err *Error) {
	cat.Store(tid, err)
}

// TriggerReport returns one stored error (picked by First) for the
// coordinating goroutine to propagate, or nil if the catalog is empty. When
// several threads have stored errors, which of them is returned is not
// defined; it is not necessarily the earliest one stored. Schedulers call
// this after send_and_await observes HadErrors.
func TriggerReport(cat *Catalog) error {
	if err, ok := cat.First(); ok {
		return err
	}
	return nil
}
