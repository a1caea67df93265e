package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nordtektiger/qvickbuild/pkg/interp"
	"github.com/nordtektiger/qvickbuild/pkg/logsink"
	"github.com/nordtektiger/qvickbuild/pkg/parse"
	"github.com/nordtektiger/qvickbuild/pkg/pipeline"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

func newEngine(t *testing.T, src string, dryRun bool) (*Engine, *logsink.BufferSink) {
	t.Helper()
	a, perr := parse.Parse(t.Name(), src)
	if perr != nil {
		t.Fatalf("Parse() error = %v", perr)
	}
	cat := qerr.NewCatalog()
	in := interp.New(t.Name(), src, a, cat)
	pool := pipeline.NewPool(2, 8)
	t.Cleanup(pool.StopSync)
	sink := logsink.NewBufferSink(logsink.Verbose)
	return New(in, cat, pool, sink, dryRun), sink
}

func TestBuildTaskCacheDuplicateKey(t *testing.T) {
	e, _ := newEngine(t, `"a" { run = "true"; } "a" { run = "true"; }`, false)
	err := e.BuildTaskCache()
	if err == nil {
		t.Fatal("BuildTaskCache() = nil, want DuplicateTask")
	}
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.DuplicateTask {
		t.Errorf("BuildTaskCache() = %v, want DuplicateTask", err)
	}
}

func TestSelectTaskExplicitKeyNotFound(t *testing.T) {
	e, _ := newEngine(t, `"a" { run = "true"; }`, false)
	if err := e.BuildTaskCache(); err != nil {
		t.Fatalf("BuildTaskCache() error = %v", err)
	}
	_, _, err := e.SelectTask("missing")
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.TaskNotFound {
		t.Errorf("SelectTask() = %v, want TaskNotFound", err)
	}
}

func TestSelectTaskAmbiguousTopmost(t *testing.T) {
	e, _ := newEngine(t, `"a", "b" { run = "true"; }`, false)
	if err := e.BuildTaskCache(); err != nil {
		t.Fatalf("BuildTaskCache() error = %v", err)
	}
	_, _, err := e.SelectTask("")
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.AmbiguousTask {
		t.Errorf("SelectTask() = %v, want AmbiguousTask", err)
	}
}

func TestBuildRunsCommandAndFinishesEntry(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	src := `target = "` + out + `"; target { run = "touch \"` + out + `\""; }`

	e, sink := newEngine(t, src, false)
	if err := e.Build(""); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected %s to have been created: %v", out, err)
	}
	if len(sink.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(sink.Entries))
	}
	if sink.Entries[0].Status() != pipeline.Finished {
		t.Errorf("entry status = %v, want Finished", sink.Entries[0].Status())
	}
}

func TestBuildAbstractTaskFinishesSilently(t *testing.T) {
	e, sink := newEngine(t, `"noop" { }`, false)
	if err := e.Build(""); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(sink.Entries) != 1 || sink.Entries[0].Status() != pipeline.Finished {
		t.Errorf("entries = %v, want one Finished entry", sink.Entries)
	}
}

func TestBuildNonZeroCommandFails(t *testing.T) {
	e, sink := newEngine(t, `"main" { run = "exit 3"; }`, false)
	err := e.Build("")
	if err == nil {
		t.Fatal("Build() = nil, want NonZeroProcess")
	}
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.NonZeroProcess {
		t.Errorf("Build() = %v, want NonZeroProcess", err)
	}
	if sink.Entries[0].Status() != pipeline.Failed {
		t.Errorf("entry status = %v, want Failed", sink.Entries[0].Status())
	}
}

func TestBuildDryRunNarratesInsteadOfExecuting(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	src := `target = "` + out + `"; target { run = "touch \"` + out + `\""; }`

	e, sink := newEngine(t, src, true)
	if err := e.Build(""); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(out); err == nil {
		t.Error("dry run executed the command; out.txt should not exist")
	}
	found := false
	for _, line := range sink.Lines {
		if line == "would run: touch \""+out+"\"" {
			found = true
		}
	}
	if !found {
		t.Errorf("Lines = %v, want a \"would run\" line", sink.Lines)
	}
}

func TestBuildSkipsWhenTargetNewerThanDependency(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	target := filepath.Join(dir, "target.txt")
	writeFile(t, src, "src")
	writeFile(t, target, "target")

	srcTime := time.Now().Add(-time.Hour)
	targetTime := time.Now()
	if err := os.Chtimes(src, srcTime, srcTime); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(target, targetTime, targetTime); err != nil {
		t.Fatal(err)
	}

	cfg := `target = "` + target + `"; target { depends = "` + src + `"; run = "exit 9"; }`
	e, sink := newEngine(t, cfg, false)
	if err := e.Build(""); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sink.SkippedTasks != 1 {
		t.Errorf("SkippedTasks = %d, want 1", sink.SkippedTasks)
	}
	if len(sink.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0; a skipped task must never reach entry creation", len(sink.Entries))
	}
}

func TestBuildRunsWhenDependencyNewerThanTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	target := filepath.Join(dir, "target.txt")
	writeFile(t, target, "target")
	writeFile(t, src, "src")

	targetTime := time.Now().Add(-time.Hour)
	srcTime := time.Now()
	if err := os.Chtimes(target, targetTime, targetTime); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(src, srcTime, srcTime); err != nil {
		t.Fatal(err)
	}

	cfg := `target = "` + target + `"; target { depends = "` + src + `"; run = "touch \"` + target + `\""; }`
	e, sink := newEngine(t, cfg, false)
	if err := e.Build(""); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if sink.SkippedTasks != 0 {
		t.Errorf("SkippedTasks = %d, want 0", sink.SkippedTasks)
	}
}

func TestBuildDependencyFailedOnUnknownName(t *testing.T) {
	e, _ := newEngine(t, `"main" { depends = "does-not-exist-anywhere"; run = "true"; }`, false)
	err := e.Build("")
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.DependencyFailed {
		t.Errorf("Build() = %v, want DependencyFailed", err)
	}
}

func TestBuildRunsDependencyTaskBeforeTarget(t *testing.T) {
	dir := t.TempDir()
	depOut := filepath.Join(dir, "dep.txt")
	cfg := `"dep" { run = "touch \"` + depOut + `\""; }
"main" { depends = "dep"; run = "true"; }`

	e, _ := newEngine(t, cfg, false)
	if err := e.Build("main"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(depOut); err != nil {
		t.Errorf("expected dependency task to have run and created %s: %v", depOut, err)
	}
}

func TestBuildRecursiveTaskDependency(t *testing.T) {
	cfg := `"a" { depends = "b"; run = "true"; }
"b" { depends = "a"; run = "true"; }`
	e, _ := newEngine(t, cfg, false)
	err := e.Build("a")
	if err == nil {
		t.Fatal("Build() = nil, want RecursiveTask")
	}
	if qe, ok := err.(*qerr.Error); !ok || qe.Kind != qerr.RecursiveTask {
		t.Errorf("Build() = %v, want RecursiveTask", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}
