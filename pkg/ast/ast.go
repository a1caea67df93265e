// Package ast defines the abstract syntax tree the parser produces and the
// interpreter walks.
package ast

import "github.com/nordtektiger/qvickbuild/pkg/diag"

// Expr is any expression node: Identifier, Literal, FormattedLiteral, List,
// Boolean or Replace.
type Expr interface {
	diag.Ranger
	exprNode()
}

// Identifier references a field, task iterator or global name.
type Identifier struct {
	Name string
	diag.Ranging
}

// Literal is a plain string with no embedded expression.
type Literal struct {
	Text string
	diag.Ranging
}

// FormattedLiteral is a string built from a run of Literal and Identifier
// children, at least one of which is an Identifier (an escaped expression
// in the source).
type FormattedLiteral struct {
	Children []Expr
	diag.Ranging
}

// List is a comma-separated sequence of expressions. The parser collapses
// a single-element list into its sole element, so every List node here has
// at least two Items.
type List struct {
	Items []Expr
	diag.Ranging
}

// Boolean is a literal true or false.
type Boolean struct {
	Value bool
	diag.Ranging
}

// Replace is the wildcard replacement operator: Input : Filter -> Product.
type Replace struct {
	Input, Filter, Product Expr
	diag.Ranging
}

func (Identifier) exprNode()       {}
func (Literal) exprNode()          {}
func (FormattedLiteral) exprNode() {}
func (List) exprNode()             {}
func (Boolean) exprNode()          {}
func (Replace) exprNode()          {}

// Field is a named expression, either at global scope or inside a Task.
type Field struct {
	Name string
	Expr Expr
	diag.Ranging
}

// DefaultIterator is the iterator name a Task gets when it has no explicit
// "as" clause.
const DefaultIterator = "__task__"

// Task is a unit of work keyed by the value(s) its identifier expression
// evaluates to. Fields preserves declaration order; FieldsByName is kept in
// step with it for O(1) lookup (the build engine and interpreter look up
// fields like "depends" and "run" by name far more often than they iterate
// all of them).
type Task struct {
	IdentExpr    Expr
	IteratorName string
	Fields       []*Field
	FieldsByName map[string]*Field
	diag.Ranging
}

// Field returns the task-local field named name, or nil if there is none.
func (t *Task) Field(name string) *Field {
	if t.FieldsByName == nil {
		return nil
	}
	return t.FieldsByName[name]
}

// AddField appends f to the task, keeping FieldsByName in sync. It returns
// false without modifying the task if a field with the same name already
// exists (the caller turns that into a DuplicateIdentifier error).
func (t *Task) AddField(f *Field) bool {
	if t.FieldsByName == nil {
		t.FieldsByName = make(map[string]*Field)
	}
	if _, ok := t.FieldsByName[f.Name]; ok {
		return false
	}
	t.FieldsByName[f.Name] = f
	t.Fields = append(t.Fields, f)
	return true
}

// Ast is a whole parsed configuration.
type Ast struct {
	GlobalFields   []*Field
	GlobalsByName  map[string]*Field
	Tasks          []*Task
	Topmost        *Task
}

// GlobalField returns the global field named name, or nil if there is none.
func (a *Ast) GlobalField(name string) *Field {
	if a.GlobalsByName == nil {
		return nil
	}
	return a.GlobalsByName[name]
}

// AddGlobalField appends f as a global field, keeping GlobalsByName in
// sync. It returns false without modifying the Ast if a global field with
// the same name already exists.
func (a *Ast) AddGlobalField(f *Field) bool {
	if a.GlobalsByName == nil {
		a.GlobalsByName = make(map[string]*Field)
	}
	if _, ok := a.GlobalsByName[f.Name]; ok {
		return false
	}
	a.GlobalsByName[f.Name] = f
	a.GlobalFields = append(a.GlobalFields, f)
	return true
}

// AddTask appends t to the Ast, recording it as Topmost if it is the first.
func (a *Ast) AddTask(t *Task) {
	a.Tasks = append(a.Tasks, t)
	if a.Topmost == nil {
		a.Topmost = t
	}
}
