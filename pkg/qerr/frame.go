package qerr

import (
	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/persistent/vector"
)

// FrameKind distinguishes the three shapes of context frame the build
// engine and interpreter push while evaluating a configuration.
type FrameKind int

const (
	EntryBuildFrame FrameKind = iota
	DependencyBuildFrame
	IdentifierEvaluateFrame
)

// Frame is one entry in a Stack: a named unit of work currently under
// evaluation, together with the source reference that explains where it
// came from.
type Frame struct {
	Kind FrameKind
	Name string
	Ctx  *diag.Context
}

// Show renders a frame as a "note: while ..." line. The driver's error
// output does not include these lines.
func (f Frame) Show(indent string) string {
	var verb string
	switch f.Kind {
	case EntryBuildFrame:
		verb = "building task " + quote(f.Name)
	case DependencyBuildFrame:
		verb = "building dependency " + quote(f.Name)
	case IdentifierEvaluateFrame:
		verb = "evaluating " + quote(f.Name)
	default:
		verb = "doing something unknown"
	}
	note := "note: while " + verb
	if f.Ctx == nil {
		return note
	}
	return note + "\n" + indent + f.Ctx.ShowCompact(indent)
}

func quote(s string) string { return "\"" + s + "\"" }

// Stack is a per-goroutine, immutable sequence of Frames. Pushing or
// popping never mutates the receiver; it returns a new Stack that shares
// structure with the old one, so handing a Stack value to a freshly spawned
// goroutine is a plain copy, not a deep clone. Once Freeze has been called
// on a Stack, Push and Pop on it are no-ops, mirroring the "frozen on error"
// rule: a goroutine that has already raised an error stops narrating further
// frames on the path back to its caller.
type Stack struct {
	frames vector.Vector
	frozen bool
}

// NewStack returns an empty, unfrozen Stack.
func NewStack() Stack {
	return Stack{frames: vector.Empty}
}

// Push returns a Stack with f appended, unless the receiver is frozen.
func (s Stack) Push(f Frame) Stack {
	if s.frozen {
		return s
	}
	return Stack{frames: s.frames.Conj(f), frozen: false}
}

// Pop returns a Stack with its last frame removed, unless the receiver is
// frozen or already empty.
func (s Stack) Pop() Stack {
	if s.frozen || s.frames.Len() == 0 {
		return s
	}
	rest := s.frames.Pop()
	if rest == nil {
		rest = vector.Empty
	}
	return Stack{frames: rest}
}

// Freeze returns a Stack that ignores further Push/Pop calls, preserving
// the frames accumulated so far for rendering.
func (s Stack) Freeze() Stack {
	return Stack{frames: s.frames, frozen: true}
}

// Len returns the number of frames currently on the stack.
func (s Stack) Len() int { return s.frames.Len() }

// Occurrences counts frames on the stack whose Name matches name and whose
// Kind is one of kinds. The build engine and interpreter call this right
// before (or right after) pushing a new frame to detect recursion: a count
// of 2 or more means the same task or identifier is already being
// evaluated further down the stack.
func (s Stack) Occurrences(name string, kinds ...FrameKind) int {
	set := make(map[FrameKind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	n := 0
	for it := s.frames.Iterator(); it.HasElem(); it.Next() {
		f := it.Elem().(Frame)
		if f.Name == name && set[f.Kind] {
			n++
		}
	}
	return n
}

// Frames returns the stack's frames in push order (innermost last),
// innermost-last matching the order they were entered.
func (s Stack) Frames() []Frame {
	out := make([]Frame, 0, s.frames.Len())
	for it := s.frames.Iterator(); it.HasElem(); it.Next() {
		out = append(out, it.Elem().(Frame))
	}
	return out
}
