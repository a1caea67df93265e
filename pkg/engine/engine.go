// Package engine is the build engine: it turns a parsed configuration and
// an interpreter into a running build, orchestrating task-cache
// construction, dependency-freshness checks, and the two scheduling
// decisions (how dependencies run, how commands run) through the
// pipeline package.
package engine

import (
	"time"

	"github.com/nordtektiger/qvickbuild/pkg/ast"
	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/fsutil"
	"github.com/nordtektiger/qvickbuild/pkg/interp"
	"github.com/nordtektiger/qvickbuild/pkg/logsink"
	"github.com/nordtektiger/qvickbuild/pkg/pipeline"
	"github.com/nordtektiger/qvickbuild/pkg/process"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

// Engine owns everything one build run needs: the parsed configuration
// (through Interp, which also owns the Ast), the shared error catalog,
// the Managed-scheduling worker pool, the Log/CLI sink commands and
// progress narration go to, and whether this run is a dry run.
type Engine struct {
	Interp  *interp.Interp
	Catalog *qerr.Catalog
	Pool    *pipeline.Pool
	Sink    logsink.Sink
	DryRun  bool

	cache map[string]*ast.Task
}

// New returns an Engine ready to have BuildTaskCache called on it.
func New(in *interp.Interp, cat *qerr.Catalog, pool *pipeline.Pool, sink logsink.Sink, dryRun bool) *Engine {
	return &Engine{Interp: in, Catalog: cat, Pool: pool, Sink: sink, DryRun: dryRun}
}

// BuildTaskCache evaluates every task's identifier expression in
// declaration order and registers each resulting key against that task's
// shared handle. It is built once; the result is read-only for the rest
// of the run.
func (e *Engine) BuildTaskCache() error {
	tree := e.Interp.Ast
	if len(tree.Tasks) == 0 {
		return qerr.ErrNoTasks()
	}
	e.cache = make(map[string]*ast.Task, len(tree.Tasks))
	for _, task := range tree.Tasks {
		ctx := interp.NewContext(pipeline.NextThreadID(), qerr.NewStack())
		v, err := e.Interp.Evaluate(task.IdentExpr, ctx)
		if err != nil {
			return err
		}
		keys, ok := v.AsStringList()
		if !ok {
			return qerr.ErrVariableTypeMismatch(v.Ctx, "string or list of string", v.Kind.String())
		}
		for _, key := range keys {
			if _, exists := e.cache[key]; exists {
				return qerr.ErrDuplicateTask(v.Ctx, key)
			}
			e.cache[key] = task
		}
	}
	return nil
}

// SelectTask resolves explicitKey to a task, or, if explicitKey is empty,
// resolves the configuration's topmost task, requiring its identifier to
// evaluate to exactly one key.
func (e *Engine) SelectTask(explicitKey string) (*ast.Task, string, error) {
	if explicitKey != "" {
		task, ok := e.cache[explicitKey]
		if !ok {
			return nil, "", qerr.ErrTaskNotFound(explicitKey)
		}
		return task, explicitKey, nil
	}
	topmost := e.Interp.Ast.Topmost
	if topmost == nil {
		return nil, "", qerr.ErrNoTasks()
	}
	ctx := interp.NewContext(pipeline.NextThreadID(), qerr.NewStack())
	v, err := e.Interp.Evaluate(topmost.IdentExpr, ctx)
	if err != nil {
		return nil, "", err
	}
	key, ok := v.AsString()
	if !ok {
		return nil, "", qerr.ErrAmbiguousTask(v.Ctx)
	}
	return topmost, key, nil
}

// Build resolves explicitKey (or the topmost task, if empty) and runs it
// to completion: resolving dependencies, checking freshness, running
// commands, and narrating progress to Sink.
func (e *Engine) Build(explicitKey string) error {
	if e.cache == nil {
		if err := e.BuildTaskCache(); err != nil {
			return err
		}
	}
	task, key, err := e.SelectTask(explicitKey)
	if err != nil {
		return err
	}
	return e.buildTask(task, key, qerr.NewStack(), pipeline.NextThreadID(), qerr.EntryBuildFrame, nil)
}

// fail records err in the catalog under thread and returns it, so that a
// scheduler's later SendAndAwait observes it via Catalog.HadErrors even
// when the error never passed through the interpreter's own halt path.
func (e *Engine) fail(thread qerr.ThreadID, err *qerr.Error) error {
	qerr.SoftReport(e.Catalog, thread, err)
	return err
}

func (e *Engine) buildTask(task *ast.Task, key string, stack qerr.Stack, thread qerr.ThreadID, frameKind qerr.FrameKind, parent *logsink.Entry) error {
	frameCtx := diag.NewContext(e.Interp.Name, e.Interp.Source, task)
	pushed := stack.Push(qerr.Frame{Kind: frameKind, Name: key, Ctx: frameCtx})
	if pushed.Occurrences(key, qerr.EntryBuildFrame, qerr.DependencyBuildFrame) >= 2 {
		_, err := qerr.Halt(e.Catalog, thread, pushed, qerr.ErrRecursiveTask(frameCtx, key))
		return err
	}

	ctx := interp.NewContext(thread, pushed).InTask(task, key)

	depends, hasDepends, err := e.readStringList(task, "depends", ctx)
	if err != nil {
		return err
	}

	if hasDepends {
		skip, err := e.checkFreshness(task, key, depends, ctx)
		if err != nil {
			return err
		}
		if skip {
			e.Sink.IncrementSkippedTasks()
			return nil
		}
	}

	// The handle is generated only now, because only now do we know for a
	// fact that the task needs to be (re)built: the freshness check above
	// has already ruled out the cached case, which never gets a handle at
	// all.
	visible, err := e.readBool(task, "visible", true, ctx)
	if err != nil {
		return err
	}
	var entry *logsink.Entry
	if parent == nil {
		entry = e.Sink.GenerateEntry(key, pipeline.Scheduled, visible)
	} else {
		entry = e.Sink.DeriveEntryFrom(parent, key, pipeline.Scheduled, visible)
	}
	entry.SetStatus(pipeline.Building)

	if hasDepends {
		if err := e.runDependencies(task, depends, ctx, entry); err != nil {
			entry.SetStatus(pipeline.Failed)
			return err
		}
	}

	if err := e.runCommands(task, ctx, entry); err != nil {
		entry.SetStatus(pipeline.Failed)
		return err
	}

	entry.SetStatus(pipeline.Finished)
	return nil
}

// checkFreshness decides whether key's own build can be skipped: true
// only when key names an existing file whose mtime is at or after the
// maximum latest-change contributed by every name in depends, and none
// of those contributions was "forces rebuild" (a dependency task with no
// depends subtree of its own).
func (e *Engine) checkFreshness(task *ast.Task, key string, depends []string, ctx interp.Context) (bool, error) {
	dependsField := task.Field("depends")
	refCtx := diag.NewContext(e.Interp.Name, e.Interp.Source, dependsField.Expr)

	seen := map[string]bool{key: true}
	var latest time.Time
	for _, name := range depends {
		t, forced, err := e.latestChange(name, seen, ctx, refCtx)
		if err != nil {
			return false, err
		}
		if forced {
			return false, nil
		}
		if t.After(latest) {
			latest = t
		}
	}
	targetTime, ok := fsutil.ModTime(key)
	if !ok {
		return false, nil
	}
	return !targetTime.Before(latest), nil
}

// latestChange computes the maximum of name's own file mtime and,
// recursively, the latestChange of every dependency name in its own
// depends field if name also resolves to a known task. The forced return
// value is true when name (or something it transitively depends on) is a
// task with no depends subtree of its own, which always forces a
// rebuild up the chain. seen guards against a cycle in the depends graph
// looping forever; a name already seen simply contributes nothing
// further, since this walk, unlike building, never needs to terminate by
// raising RecursiveTask.
func (e *Engine) latestChange(name string, seen map[string]bool, ctx interp.Context, refCtx *diag.Context) (time.Time, bool, error) {
	if seen[name] {
		return time.Time{}, false, nil
	}
	seen[name] = true

	fileTime, fileExists := fsutil.ModTime(name)
	task, isTask := e.cache[name]
	if !isTask {
		if !fileExists {
			return time.Time{}, false, e.fail(ctx.Thread, qerr.ErrDependencyFailed(refCtx, name))
		}
		return fileTime, false, nil
	}

	depField := task.Field("depends")
	if depField == nil {
		return time.Time{}, true, nil
	}
	depCtx := ctx.InTask(task, name)
	v, err := e.Interp.Evaluate(depField.Expr, depCtx)
	if err != nil {
		return time.Time{}, false, err
	}
	names, ok := v.AsStringList()
	if !ok {
		return time.Time{}, false, e.fail(ctx.Thread, qerr.ErrVariableTypeMismatch(v.Ctx, "string or list of string", v.Kind.String()))
	}

	max := fileTime
	for _, dn := range names {
		t, forced, err := e.latestChange(dn, seen, ctx, v.Ctx)
		if err != nil {
			return time.Time{}, false, err
		}
		if forced {
			return time.Time{}, true, nil
		}
		if t.After(max) {
			max = t
		}
	}
	return max, false, nil
}

// runDependencies builds every name in depends that also resolves to a
// known task (names that are plain files need no build step of their
// own), through an Unbound scheduler so that dependency fan-out never
// competes with the Managed pool for workers.
func (e *Engine) runDependencies(task *ast.Task, depends []string, ctx interp.Context, entry *logsink.Entry) error {
	var jobs []pipeline.Job
	for _, name := range depends {
		depTask, isTask := e.cache[name]
		if !isTask {
			continue
		}
		name, depTask := name, depTask
		depThread := pipeline.NextThreadID()
		snapshot := ctx.Stack
		jobs = append(jobs, pipeline.NewJob(func() error {
			return e.buildTask(depTask, name, snapshot, depThread, qerr.DependencyBuildFrame, entry)
		}))
	}
	if len(jobs) == 0 {
		return nil
	}
	parallel, err := e.readBool(task, "depends_parallel", false, ctx)
	if err != nil {
		return err
	}
	sched := pipeline.NewScheduler(pipeline.Unbound, topographyOf(parallel), nil)
	return sched.SendAndAwait(e.Catalog, jobs)
}

// runCommands runs task's run field, if present, each command as its own
// pipeline Job through the Managed (pool-backed) scheduler, unless the
// engine is in dry-run mode, in which case every command line is
// narrated to Sink instead of executed.
func (e *Engine) runCommands(task *ast.Task, ctx interp.Context, entry *logsink.Entry) error {
	runList, hasRun, err := e.readStringList(task, "run", ctx)
	if err != nil {
		return err
	}
	if !hasRun {
		return nil
	}
	if e.DryRun {
		for _, cmdline := range runList {
			e.Sink.WriteStandard("would run: " + cmdline)
		}
		return nil
	}

	runField := task.Field("run")
	refCtx := diag.NewContext(e.Interp.Name, e.Interp.Source, runField.Expr)

	jobs := make([]pipeline.Job, 0, len(runList))
	for _, cmdline := range runList {
		cmdline := cmdline
		cmdThread := pipeline.NextThreadID()
		jobs = append(jobs, pipeline.NewJob(func() error {
			if perr := process.Run(cmdline, sinkWriter{e.Sink}, refCtx); perr != nil {
				return e.fail(cmdThread, perr)
			}
			return nil
		}))
	}
	parallel, err := e.readBool(task, "run_parallel", false, ctx)
	if err != nil {
		return err
	}
	sched := pipeline.NewScheduler(pipeline.Managed, topographyOf(parallel), e.Pool)
	return sched.SendAndAwait(e.Catalog, jobs)
}

func topographyOf(parallel bool) pipeline.Topography {
	if parallel {
		return pipeline.Parallel
	}
	return pipeline.Sequential
}

// readBool autocasts the named field to a scalar bool, or returns def if
// the field is absent from task.
func (e *Engine) readBool(task *ast.Task, name string, def bool, ctx interp.Context) (bool, error) {
	f := task.Field(name)
	if f == nil {
		return def, nil
	}
	v, err := e.Interp.Evaluate(f.Expr, ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, e.fail(ctx.Thread, qerr.ErrVariableTypeMismatch(v.Ctx, "bool", v.Kind.String()))
	}
	return b, nil
}

// readStringList autocasts the named field to IList<IString>. The second
// return reports whether the field was present at all, since an absent
// "depends" or "run" field means something different from an empty list.
func (e *Engine) readStringList(task *ast.Task, name string, ctx interp.Context) ([]string, bool, error) {
	f := task.Field(name)
	if f == nil {
		return nil, false, nil
	}
	v, err := e.Interp.Evaluate(f.Expr, ctx)
	if err != nil {
		return nil, true, err
	}
	ss, ok := v.AsStringList()
	if !ok {
		return nil, true, e.fail(ctx.Thread, qerr.ErrVariableTypeMismatch(v.Ctx, "string or list of string", v.Kind.String()))
	}
	return ss, true, nil
}

// sinkWriter adapts a logsink.Sink into an io.Writer, so process.Run can
// stream a command's output straight to the Log/CLI boundary a chunk at
// a time.
type sinkWriter struct {
	sink logsink.Sink
}

func (w sinkWriter) Write(p []byte) (int, error) {
	w.sink.WriteStandard(string(p))
	return len(p), nil
}
