// Command qvickbuild is the driver: it parses flags, reads and parses the
// configuration file, builds the requested task, and renders any error to
// stderr. Everything here is deliberately thin; the actual build
// semantics live in pkg/engine.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"sort"

	"github.com/nordtektiger/qvickbuild/pkg/engine"
	"github.com/nordtektiger/qvickbuild/pkg/interp"
	"github.com/nordtektiger/qvickbuild/pkg/logsink"
	"github.com/nordtektiger/qvickbuild/pkg/parse"
	"github.com/nordtektiger/qvickbuild/pkg/pipeline"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
	"github.com/nordtektiger/qvickbuild/pkg/sys"
)

// ansiEscape matches the SGR escape sequences qerr.Error.Show and
// diag.Complain emit. Stripped when the destination fd is not a
// terminal, so redirected output (a log file, a CI pipe) doesn't fill
// up with raw escape bytes.
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*m")

// Flags keeps command-line flags.
type Flags struct {
	File    string
	Task    string
	Verbose bool
	Quiet   bool
	DryRun  bool
	Workers int
}

func newFlagSet(f *Flags) *flag.FlagSet {
	fs := flag.NewFlagSet("qvickbuild", flag.ContinueOnError)
	// Error and usage are printed explicitly.
	fs.SetOutput(io.Discard)

	fs.StringVar(&f.File, "f", "./qvickbuild", "path to the configuration file")
	fs.StringVar(&f.Task, "task", "", "explicit task key to build (default: the topmost task)")
	fs.BoolVar(&f.Verbose, "v", false, "verbose log level")
	fs.BoolVar(&f.Quiet, "q", false, "quiet log level")
	fs.BoolVar(&f.DryRun, "n", false, "dry run: list commands instead of executing them")
	fs.IntVar(&f.Workers, "workers", runtime.NumCPU(), "managed worker pool size")

	return fs
}

func usage(out io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(out, "Usage: qvickbuild [flags]")
	fmt.Fprintln(out, "Supported flags:")
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// Run parses args and runs the build, writing narration to fds[1] and
// errors to fds[2]. It returns the process exit code.
func Run(fds [3]*os.File, args []string) int {
	f := &Flags{}
	fs := newFlagSet(f)
	if err := fs.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			usage(fds[2], fs)
			return 0
		}
		fmt.Fprintln(fds[2], err)
		usage(fds[2], fs)
		return 2
	}

	level := logsink.Standard
	switch {
	case f.Verbose:
		level = logsink.Verbose
	case f.Quiet:
		level = logsink.Quiet
	}

	src, err := os.ReadFile(f.File)
	if err != nil {
		renderErr(fds[2], qerr.ErrInvalidInputFile(f.File, err))
		return 1
	}

	a, perr := parse.Parse(f.File, string(src))
	if perr != nil {
		renderErr(fds[2], perr)
		return 1
	}

	cat := qerr.NewCatalog()
	in := interp.New(f.File, string(src), a, cat)
	pool := pipeline.NewPool(f.Workers, f.Workers*4)
	defer pool.StopSync()

	sink := logsink.NewBufferSink(level)
	eng := engine.New(in, cat, pool, sink, f.DryRun)

	buildErr := eng.Build(f.Task)
	flushSink(fds[1], sink)
	if buildErr != nil {
		renderCatalog(fds[2], cat, buildErr)
		return 1
	}
	return 0
}

func flushSink(w io.Writer, sink *logsink.BufferSink) {
	for _, line := range sink.Lines {
		fmt.Fprintln(w, line)
	}
	if sink.SkippedTasks > 0 {
		fmt.Fprintf(w, "%d task(s) skipped, up to date\n", sink.SkippedTasks)
	}
}

// renderLine writes text to w, stripping ANSI styling first unless w is
// a file whose fd is a terminal.
func renderLine(w io.Writer, text string) {
	if f, ok := w.(*os.File); ok && !sys.IsATTY(f.Fd()) {
		text = ansiEscape.ReplaceAllString(text, "")
	}
	fmt.Fprintln(w, text)
}

func renderErr(w io.Writer, err error) {
	if e, ok := err.(*qerr.Error); ok {
		renderLine(w, e.Show(""))
		return
	}
	renderLine(w, err.Error())
}

// renderCatalog renders primary, then every other error the catalog
// collected across goroutines, each prefixed with its thread id, per the
// "when multiple threads contributed" rendering policy.
func renderCatalog(w io.Writer, cat *qerr.Catalog, primary error) {
	renderErr(w, primary)

	errs := cat.Errors()
	if len(errs) <= 1 {
		return
	}
	tids := make([]qerr.ThreadID, 0, len(errs))
	for tid := range errs {
		tids = append(tids, tid)
	}
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })

	for _, tid := range tids {
		e := errs[tid]
		if e == primary {
			continue
		}
		renderLine(w, fmt.Sprintf("[thread %d] %s", tid, e.Show("")))
	}
}

func main() {
	os.Exit(Run([3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args))
}
