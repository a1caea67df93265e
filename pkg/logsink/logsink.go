// Package logsink is the engine's external Log/CLI boundary (spec §6):
// a pure side-effect sink the build engine posts progress to, plus the
// internal diagnostic loggers for the pipeline, process and engine
// subsystems. Nothing in the engine reads a Sink call's return value back
// for correctness; a UI is free to ignore every call.
package logsink

import (
	"io"
	"sync"

	"github.com/nordtektiger/qvickbuild/logutil"
	"github.com/nordtektiger/qvickbuild/pkg/pipeline"
)

var (
	PipelineLogger = logutil.GetLogger("[pipeline] ")
	ProcessLogger  = logutil.GetLogger("[process] ")
	EngineLogger   = logutil.GetLogger("[engine] ")
)

// SetOutput redirects every subsystem logger above to w. Until it is
// called they write to io.Discard; the driver does not call it.
func SetOutput(w io.Writer) { logutil.SetOutput(w) }

// Level is the global log level the driver selects with -v/-q, filtering
// which WriteQuiet/WriteStandard/WriteVerbose calls a Sink actually
// surfaces.
type Level int

const (
	Quiet Level = iota
	Standard
	Verbose
)

// Entry is the handle a Sink hands back from GenerateEntry/
// DeriveEntryFrom: a named unit of progress the build engine narrates as
// it schedules, builds, finishes or fails.
type Entry struct {
	mu          sync.Mutex
	Description string
	Parent      *Entry
	Visible     bool
	status      pipeline.Status
	highlighted bool
}

// SetStatus records the entry's current lifecycle stage.
func (e *Entry) SetStatus(s pipeline.Status) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

// Status returns the entry's current lifecycle stage.
func (e *Entry) Status() pipeline.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetHighlighted records whether the UI should draw this entry as the
// one currently in focus.
func (e *Entry) SetHighlighted(b bool) {
	e.mu.Lock()
	e.highlighted = b
	e.mu.Unlock()
}

// Highlighted returns the last value passed to SetHighlighted.
func (e *Entry) Highlighted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highlighted
}

// Sink is the external collaborator contract the core posts to. Every
// method is a side effect only; the engine never branches on what a Sink
// returns.
type Sink interface {
	WriteQuiet(text string)
	WriteStandard(text string)
	WriteVerbose(text string)
	GenerateEntry(description string, status pipeline.Status, visible bool) *Entry
	DeriveEntryFrom(parent *Entry, description string, status pipeline.Status, visible bool) *Entry
	IncrementSkippedTasks()
}

// NoopSink implements Sink by ignoring every call, for callers (tests,
// headless invocations) that have no use for progress narration.
type NoopSink struct{}

func (NoopSink) WriteQuiet(string)    {}
func (NoopSink) WriteStandard(string) {}
func (NoopSink) WriteVerbose(string)  {}

func (NoopSink) GenerateEntry(description string, status pipeline.Status, visible bool) *Entry {
	return &Entry{Description: description, Visible: visible, status: status}
}

func (NoopSink) DeriveEntryFrom(parent *Entry, description string, status pipeline.Status, visible bool) *Entry {
	return &Entry{Description: description, Parent: parent, Visible: visible, status: status}
}

func (NoopSink) IncrementSkippedTasks() {}

// BufferSink is the default Sink: it buffers level-filtered text lines
// and every generated entry in memory, for the driver's non-interactive
// mode and for tests to inspect what the engine narrated.
type BufferSink struct {
	mu           sync.Mutex
	Level        Level
	Lines        []string
	Entries      []*Entry
	SkippedTasks int
}

// NewBufferSink returns a BufferSink that keeps writes at level or less
// verbose and drops writes more verbose than level.
func NewBufferSink(level Level) *BufferSink {
	return &BufferSink{Level: level}
}

func (s *BufferSink) write(level Level, text string) {
	if s.Level < level {
		return
	}
	s.mu.Lock()
	s.Lines = append(s.Lines, text)
	s.mu.Unlock()
}

func (s *BufferSink) WriteQuiet(text string)    { s.write(Quiet, text) }
func (s *BufferSink) WriteStandard(text string) { s.write(Standard, text) }
func (s *BufferSink) WriteVerbose(text string)  { s.write(Verbose, text) }

func (s *BufferSink) GenerateEntry(description string, status pipeline.Status, visible bool) *Entry {
	e := &Entry{Description: description, Visible: visible, status: status}
	s.mu.Lock()
	s.Entries = append(s.Entries, e)
	s.mu.Unlock()
	return e
}

func (s *BufferSink) DeriveEntryFrom(parent *Entry, description string, status pipeline.Status, visible bool) *Entry {
	e := &Entry{Description: description, Parent: parent, Visible: visible, status: status}
	s.mu.Lock()
	s.Entries = append(s.Entries, e)
	s.mu.Unlock()
	return e
}

func (s *BufferSink) IncrementSkippedTasks() {
	s.mu.Lock()
	s.SkippedTasks++
	s.mu.Unlock()
}
