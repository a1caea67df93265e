// Package value implements the small value system the interpreter
// evaluates expressions into: strings, booleans, and homogeneous lists of
// either, each tagged with whether it is safe to cache.
package value

import "github.com/nordtektiger/qvickbuild/pkg/diag"

// Kind identifies which of the four Value shapes a Value holds.
type Kind int

const (
	String Kind = iota
	Bool
	StringList
	BoolList
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case StringList:
		return "list of string"
	case BoolList:
		return "list of bool"
	default:
		return "unknown value kind"
	}
}

// Value is the evaluator's result type. Immutable is true when evaluating
// the expression that produced it involved no task-iteration variable, and
// is therefore safe to place in the interpreter's value cache.
type Value struct {
	Kind      Kind
	Str       string
	BoolVal   bool
	Strs      []string
	Bools     []bool
	Immutable bool
	Ctx       *diag.Context
}

// NewString returns an IString value.
func NewString(s string, immutable bool, ctx *diag.Context) Value {
	return Value{Kind: String, Str: s, Immutable: immutable, Ctx: ctx}
}

// NewBool returns an IBool value.
func NewBool(b bool, immutable bool, ctx *diag.Context) Value {
	return Value{Kind: Bool, BoolVal: b, Immutable: immutable, Ctx: ctx}
}

// NewStringList returns an IList<IString> value.
func NewStringList(ss []string, immutable bool, ctx *diag.Context) Value {
	return Value{Kind: StringList, Strs: ss, Immutable: immutable, Ctx: ctx}
}

// NewBoolList returns an IList<IBool> value.
func NewBoolList(bs []bool, immutable bool, ctx *diag.Context) Value {
	return Value{Kind: BoolList, Bools: bs, Immutable: immutable, Ctx: ctx}
}

// AsStringList autocasts v to IList<IString>: a scalar IString is wrapped;
// an IList<IString> is returned as-is. Any other kind fails.
func (v Value) AsStringList() ([]string, bool) {
	switch v.Kind {
	case String:
		return []string{v.Str}, true
	case StringList:
		return v.Strs, true
	default:
		return nil, false
	}
}

// AsBoolList autocasts v to IList<IBool>, by the same rule as AsStringList.
func (v Value) AsBoolList() ([]bool, bool) {
	switch v.Kind {
	case Bool:
		return []bool{v.BoolVal}, true
	case BoolList:
		return v.Bools, true
	default:
		return nil, false
	}
}

// AsString autocasts v to a scalar IString: an IString is returned as-is;
// an IList<IString> of length 1 is unwrapped. Any other shape, including a
// longer list, fails.
func (v Value) AsString() (string, bool) {
	switch {
	case v.Kind == String:
		return v.Str, true
	case v.Kind == StringList && len(v.Strs) == 1:
		return v.Strs[0], true
	default:
		return "", false
	}
}

// AsBool autocasts v to a scalar IBool, by the same rule as AsString.
func (v Value) AsBool() (bool, bool) {
	switch {
	case v.Kind == Bool:
		return v.BoolVal, true
	case v.Kind == BoolList && len(v.Bools) == 1:
		return v.Bools[0], true
	default:
		return false, false
	}
}

// Equal reports whether v and w hold structurally equal values, ignoring
// Immutable and Ctx. Used to check that re-evaluating a pure expression
// repeatedly yields the same result.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	switch v.Kind {
	case String:
		return v.Str == w.Str
	case Bool:
		return v.BoolVal == w.BoolVal
	case StringList:
		return stringsEqual(v.Strs, w.Strs)
	case BoolList:
		return boolsEqual(v.Bools, w.Bools)
	default:
		return false
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
