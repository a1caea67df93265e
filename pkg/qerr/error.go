package qerr

import (
	"fmt"

	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/strutil"
)

// Error is the concrete type behind every error the lexer, parser,
// interpreter, build engine and process layer raise. Its Kind is always one
// of the values declared in kind.go; callers that need to distinguish error
// conditions switch on Kind, never on the formatted message.
type Error struct {
	Kind    Kind
	Message string
	Context *diag.Context
}

// New builds an Error of the given kind, pointing at ctx, with message
// formatted from format and args. ctx may be nil when no source reference
// is available (e.g. a process-layer failure with no configuration origin).
func New(kind Kind, ctx *diag.Context, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: ctx}
}

func (e *Error) Error() string {
	return e.Message
}

// Show renders the error the way the top-level driver presents it to the
// user: a bold red "<Kind>: <message>" line, followed by the highlighted
// source excerpt when a Context is available.
func (e *Error) Show(indent string) string {
	head := "\033[31;1m" + strutil.Title(e.Kind.String()) + ": " + e.Message + "\033[m"
	if e.Context == nil {
		return head
	}
	return head + "\n" + indent + e.Context.Show(indent)
}

// Is reports whether err is a *Error of the given kind, so callers can use
// errors.Is(err, qerr.AmbiguousTask) style checks without an extra Kind()
// accessor on every call site.
func (k Kind) Is(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}

// --- Constructors for catalog members whose message needs structured data ---

func ErrNoMatchingIdentifier(ctx *diag.Context, name string) *Error {
	return New(NoMatchingIdentifier, ctx, "no matching identifier %q", name)
}

func ErrListTypeMismatch(ctx *diag.Context) *Error {
	return New(ListTypeMismatch, ctx, "list elements have mismatched types")
}

func ErrReplaceTypeMismatch(ctx *diag.Context) *Error {
	return New(ReplaceTypeMismatch, ctx, "replace filter and product must be strings")
}

func ErrReplaceChunksLength(ctx *diag.Context, filterWildcards, productWildcards int) *Error {
	return New(ReplaceChunksLength, ctx,
		"replace product has %d wildcards, filter has only %d", productWildcards, filterWildcards)
}

func ErrVariableTypeMismatch(ctx *diag.Context, want, got string) *Error {
	return New(VariableTypeMismatch, ctx, "expected %s, got %s", want, got)
}

func ErrNonZeroProcess(ctx *diag.Context, cmdline string, code int) *Error {
	return New(NonZeroProcess, ctx, "command %q exited with status %d", cmdline, code)
}

func ErrProcessInternal(ctx *diag.Context, cmdline string, cause error) *Error {
	return New(ProcessInternal, ctx, "command %q failed to start: %v", cmdline, cause)
}

func ErrTaskNotFound(key string) *Error {
	return New(TaskNotFound, nil, "no task named %q", key)
}

func ErrNoTasks() *Error {
	return New(NoTasks, nil, "configuration defines no tasks")
}

func ErrAmbiguousTask(ctx *diag.Context) *Error {
	return New(AmbiguousTask, ctx, "topmost task identifier is ambiguous; pass -task")
}

func ErrDependencyFailed(ctx *diag.Context, name string) *Error {
	return New(DependencyFailed, ctx, "dependency %q is neither a file nor a known task", name)
}

func ErrInvalidSymbol(ctx *diag.Context, b byte) *Error {
	return New(InvalidSymbol, ctx, "invalid symbol %q", b)
}

func ErrInvalidLiteral(ctx *diag.Context) *Error {
	return New(InvalidLiteral, ctx, "invalid literal")
}

func ErrInvalidGrammar(ctx *diag.Context, want string) *Error {
	return New(InvalidGrammar, ctx, "expected %s", want)
}

func ErrNoValue(ctx *diag.Context) *Error {
	return New(NoValue, ctx, "expression has no value")
}

func ErrNoLinestop(ctx *diag.Context) *Error {
	return New(NoLinestop, ctx, "expected ';'")
}

func ErrNoIterator(ctx *diag.Context) *Error {
	return New(NoIterator, ctx, "expected iterator identifier after 'as'")
}

func ErrNoTaskOpen(ctx *diag.Context) *Error {
	return New(NoTaskOpen, ctx, "expected '{'")
}

func ErrNoTaskClose(ctx *diag.Context) *Error {
	return New(NoTaskClose, ctx, "expected '}'")
}

func ErrInvalidListEnd(ctx *diag.Context) *Error {
	return New(InvalidListEnd, ctx, "expected ',' or end of list")
}

func ErrNoReplacementIdentifier(ctx *diag.Context) *Error {
	return New(NoReplacementIdentifier, ctx, "expected expression before ':'")
}

func ErrNoReplacementOriginal(ctx *diag.Context) *Error {
	return New(NoReplacementOriginal, ctx, "expected filter pattern after ':'")
}

func ErrNoReplacementArrow(ctx *diag.Context) *Error {
	return New(NoReplacementArrow, ctx, "expected '->'")
}

func ErrNoReplacementReplacement(ctx *diag.Context) *Error {
	return New(NoReplacementReplacement, ctx, "expected product pattern after '->'")
}

func ErrInvalidEscapedExpression(ctx *diag.Context) *Error {
	return New(InvalidEscapedExpression, ctx, "invalid escaped expression")
}

func ErrNoExpressionClose(ctx *diag.Context) *Error {
	return New(NoExpressionClose, ctx, "expected ']'")
}

func ErrEmptyExpression(ctx *diag.Context) *Error {
	return New(EmptyExpression, ctx, "expression is empty")
}

func ErrInvalidInputFile(path string, cause error) *Error {
	return New(InvalidInputFile, nil, "cannot read configuration %q: %v", path, cause)
}

func ErrInvalidEscapeCode(ctx *diag.Context, b byte) *Error {
	return New(InvalidEscapeCode, ctx, "invalid escape code %q", b)
}

func ErrAdjacentWildcards(ctx *diag.Context) *Error {
	return New(AdjacentWildcards, ctx, "adjacent wildcards in pattern")
}

func ErrRecursiveVariable(ctx *diag.Context, name string) *Error {
	return New(RecursiveVariable, ctx, "recursive reference to variable %q", name)
}

func ErrRecursiveTask(ctx *diag.Context, key string) *Error {
	return New(RecursiveTask, ctx, "recursive dependency on task %q", key)
}

func ErrDuplicateIdentifier(ctx *diag.Context, name string) *Error {
	return New(DuplicateIdentifier, ctx, "duplicate field %q", name)
}

func ErrDuplicateTask(ctx *diag.Context, key string) *Error {
	return New(DuplicateTask, ctx, "duplicate task key %q", key)
}
