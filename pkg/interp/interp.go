// Package interp evaluates AST expressions into values: identifier lookup
// with caching, string formatting with globbing, list type-checking and
// flattening, and the wildcard replace operator.
package interp

import (
	"strings"
	"sync"

	"github.com/nordtektiger/qvickbuild/pkg/ast"
	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
	"github.com/nordtektiger/qvickbuild/pkg/value"
	"github.com/nordtektiger/qvickbuild/pkg/wildcard"
)

// Interp holds the state shared across every evaluation of one parsed
// configuration: the AST being evaluated, the shared error catalog, and
// the value cache. The cache is guarded by its own mutex so that recursive
// evaluation happening on different goroutines never observes a torn
// insert; the Ast itself is read-only once parsed.
type Interp struct {
	Ast     *ast.Ast
	Name    string
	Source  string
	Catalog *qerr.Catalog

	cacheMu sync.Mutex
	cache   []cacheEntry
}

type cacheEntry struct {
	name      string
	taskScope *ast.Task
	value     value.Value
}

// New returns an Interp ready to evaluate a against cat.
func New(name, source string, a *ast.Ast, cat *qerr.Catalog) *Interp {
	return &Interp{Ast: a, Name: name, Source: source, Catalog: cat}
}

// Context is the evaluation context threaded through every call to
// Evaluate: which task (if any) field lookups should resolve against,
// what the task's iterator is currently bound to, whether a trailing "*"
// should be expanded against the filesystem, and the diagnostic machinery
// (frame stack, thread id) needed to report an error if evaluation fails.
type Context struct {
	TaskScope     *ast.Task
	TaskIteration string
	UseGlobbing   bool
	Stack         qerr.Stack
	Thread        qerr.ThreadID
}

// NewContext returns a Context for evaluating at global scope (no task),
// with globbing enabled, the way the build engine evaluates task
// identifier expressions during task-cache construction.
func NewContext(thread qerr.ThreadID, stack qerr.Stack) Context {
	return Context{UseGlobbing: true, Stack: stack, Thread: thread}
}

// InTask returns a copy of c scoped to task, with its iterator bound to
// iteration.
func (c Context) InTask(task *ast.Task, iteration string) Context {
	c2 := c
	c2.TaskScope = task
	c2.TaskIteration = iteration
	return c2
}

// WithGlobbing returns a copy of c with UseGlobbing set to b.
func (c Context) WithGlobbing(b bool) Context {
	c2 := c
	c2.UseGlobbing = b
	return c2
}

func (in *Interp) ctx(r diag.Ranger) *diag.Context {
	return diag.NewContext(in.Name, in.Source, r)
}

func (in *Interp) halt(ctx Context, err *qerr.Error) (value.Value, Context, error) {
	newStack, e := qerr.Halt(in.Catalog, ctx.Thread, ctx.Stack, err)
	ctx.Stack = newStack
	return value.Value{}, ctx, e
}

// Evaluate evaluates expr under ctx, returning its Value or an error. Every
// error it returns has gone through a halt, which stores it in the Catalog
// under ctx.Thread (unless that thread already stored one).
func (in *Interp) Evaluate(expr ast.Expr, ctx Context) (value.Value, error) {
	var v value.Value
	var err error
	switch n := expr.(type) {
	case ast.Literal:
		return value.NewString(n.Text, true, in.ctx(n)), nil
	case ast.Boolean:
		return value.NewBool(n.Value, true, in.ctx(n)), nil
	case ast.Identifier:
		v, _, err := in.evalIdentifier(n, ctx)
		return v, err
	case ast.FormattedLiteral:
		v, err = in.evalFormattedLiteral(n, ctx)
	case ast.List:
		v, err = in.evalList(n, ctx)
	case ast.Replace:
		v, err = in.evalReplace(n, ctx)
	default:
		panic("interp: unhandled AST expression type")
	}
	if qe, ok := err.(*qerr.Error); ok && qe != nil {
		_, _, err = in.halt(ctx, qe)
	}
	return v, err
}

func (in *Interp) evalIdentifier(n ast.Identifier, ctx Context) (value.Value, Context, error) {
	frame := qerr.Frame{Kind: qerr.IdentifierEvaluateFrame, Name: n.Name, Ctx: in.ctx(n)}
	pushed := ctx.Stack.Push(frame)
	if pushed.Occurrences(n.Name, qerr.IdentifierEvaluateFrame) >= 2 {
		v, c, err := in.halt(ctx, qerr.ErrRecursiveVariable(in.ctx(n), n.Name))
		return v, c, err
	}
	ctx.Stack = pushed

	if v, ok := in.cacheLookup(n.Name, ctx.TaskScope); ok {
		return v, ctx, nil
	}

	if ctx.TaskScope != nil {
		if f := ctx.TaskScope.Field(n.Name); f != nil {
			v, err := in.Evaluate(f.Expr, ctx)
			if err != nil {
				return value.Value{}, ctx, err
			}
			in.cacheStore(n.Name, ctx.TaskScope, v)
			return v, ctx, nil
		}
		if n.Name == ctx.TaskScope.IteratorName {
			return value.NewString(ctx.TaskIteration, false, in.ctx(n)), ctx, nil
		}
	}

	if f := in.Ast.GlobalField(n.Name); f != nil {
		globalCtx := ctx
		globalCtx.TaskScope = nil
		v, err := in.Evaluate(f.Expr, globalCtx)
		if err != nil {
			return value.Value{}, ctx, err
		}
		in.cacheStore(n.Name, nil, v)
		return v, ctx, nil
	}

	v, c, err := in.halt(ctx, qerr.ErrNoMatchingIdentifier(in.ctx(n), n.Name))
	return v, c, err
}

// cacheLookup implements the "reachable from" rule: a global cache entry
// (taskScope nil) is visible everywhere; a task-local entry is visible
// only while evaluating within the same task.
func (in *Interp) cacheLookup(name string, scope *ast.Task) (value.Value, bool) {
	in.cacheMu.Lock()
	defer in.cacheMu.Unlock()
	for _, e := range in.cache {
		if e.name != name {
			continue
		}
		if e.taskScope == nil || e.taskScope == scope {
			return e.value, true
		}
	}
	return value.Value{}, false
}

func (in *Interp) cacheStore(name string, scope *ast.Task, v value.Value) {
	if !v.Immutable {
		return
	}
	in.cacheMu.Lock()
	defer in.cacheMu.Unlock()
	in.cache = append(in.cache, cacheEntry{name: name, taskScope: scope, value: v})
}

func (in *Interp) evalFormattedLiteral(n ast.FormattedLiteral, ctx Context) (value.Value, error) {
	var b strings.Builder
	immutable := true
	for _, child := range n.Children {
		v, err := in.Evaluate(child, ctx)
		if err != nil {
			return value.Value{}, err
		}
		immutable = immutable && v.Immutable
		b.WriteString(stringify(v))
	}
	text := b.String()

	if ctx.UseGlobbing && strings.Contains(text, "*") {
		matches, werr := wildcard.ComputePaths(text)
		if werr != nil {
			werr.Context = in.ctx(n)
			return value.Value{}, werr
		}
		if len(matches) == 1 {
			return value.NewString(matches[0], immutable, in.ctx(n)), nil
		}
		return value.NewStringList(matches, immutable, in.ctx(n)), nil
	}
	return value.NewString(text, immutable, in.ctx(n)), nil
}

func stringify(v value.Value) string {
	switch v.Kind {
	case value.String:
		return v.Str
	case value.Bool:
		return boolString(v.BoolVal)
	case value.StringList:
		return strings.Join(v.Strs, " ")
	case value.BoolList:
		parts := make([]string, len(v.Bools))
		for i, b := range v.Bools {
			parts[i] = boolString(b)
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func scalarKind(k value.Kind) value.Kind {
	switch k {
	case value.String, value.StringList:
		return value.String
	case value.Bool, value.BoolList:
		return value.Bool
	default:
		return k
	}
}

func (in *Interp) evalList(n ast.List, ctx Context) (value.Value, error) {
	var strs []string
	var bools []bool
	var elemKind value.Kind
	immutable := true

	for i, child := range n.Items {
		v, err := in.Evaluate(child, ctx)
		if err != nil {
			return value.Value{}, err
		}
		immutable = immutable && v.Immutable
		k := scalarKind(v.Kind)
		if i == 0 {
			elemKind = k
		} else if k != elemKind {
			return value.Value{}, qerr.ErrListTypeMismatch(in.ctx(child))
		}
		switch elemKind {
		case value.String:
			if v.Kind == value.StringList {
				strs = append(strs, v.Strs...)
			} else {
				strs = append(strs, v.Str)
			}
		case value.Bool:
			if v.Kind == value.BoolList {
				bools = append(bools, v.Bools...)
			} else {
				bools = append(bools, v.BoolVal)
			}
		}
	}

	if elemKind == value.Bool {
		return value.NewBoolList(bools, immutable, in.ctx(n)), nil
	}
	return value.NewStringList(strs, immutable, in.ctx(n)), nil
}

func (in *Interp) evalReplace(n ast.Replace, ctx Context) (value.Value, error) {
	inner := ctx.WithGlobbing(false)

	inputVal, err := in.Evaluate(n.Input, inner)
	if err != nil {
		return value.Value{}, err
	}
	filterVal, err := in.Evaluate(n.Filter, inner)
	if err != nil {
		return value.Value{}, err
	}
	productVal, err := in.Evaluate(n.Product, inner)
	if err != nil {
		return value.Value{}, err
	}

	if filterVal.Kind != value.String || productVal.Kind != value.String {
		return value.Value{}, qerr.ErrReplaceTypeMismatch(in.ctx(n))
	}
	inputs, ok := inputVal.AsStringList()
	if !ok {
		return value.Value{}, qerr.ErrReplaceTypeMismatch(in.ctx(n))
	}

	out, werr := wildcard.ComputeReplace(inputs, filterVal.Str, productVal.Str)
	if werr != nil {
		werr.Context = in.ctx(n)
		return value.Value{}, werr
	}

	immutable := inputVal.Immutable && filterVal.Immutable && productVal.Immutable
	return value.NewStringList(out, immutable, in.ctx(n)), nil
}
