package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAsStringListWrapsScalar(t *testing.T) {
	v := NewString("a", true, nil)
	got, ok := v.AsStringList()
	if !ok {
		t.Fatal("AsStringList() ok = false")
	}
	if diff := cmp.Diff([]string{"a"}, got); diff != "" {
		t.Errorf("AsStringList() diff:\n%s", diff)
	}
}

func TestAsStringListPassesThroughList(t *testing.T) {
	v := NewStringList([]string{"a", "b"}, true, nil)
	got, ok := v.AsStringList()
	if !ok {
		t.Fatal("AsStringList() ok = false")
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("AsStringList() diff:\n%s", diff)
	}
}

func TestAsStringListRejectsBool(t *testing.T) {
	v := NewBool(true, true, nil)
	if _, ok := v.AsStringList(); ok {
		t.Error("AsStringList() on IBool succeeded, want failure")
	}
}

func TestAsStringUnwrapsSingletonList(t *testing.T) {
	v := NewStringList([]string{"only"}, true, nil)
	got, ok := v.AsString()
	if !ok || got != "only" {
		t.Errorf("AsString() = %q, %v, want only, true", got, ok)
	}
}

func TestAsStringRejectsLongerList(t *testing.T) {
	v := NewStringList([]string{"a", "b"}, true, nil)
	if _, ok := v.AsString(); ok {
		t.Error("AsString() on a 2-element list succeeded, want failure")
	}
}

func TestEqualIgnoresImmutableAndCtx(t *testing.T) {
	a := NewString("x", true, nil)
	b := NewString("x", false, nil)
	if !a.Equal(b) {
		t.Error("Equal() = false for values differing only in Immutable")
	}
}

func TestEqualDetectsDifference(t *testing.T) {
	a := NewStringList([]string{"a", "b"}, true, nil)
	b := NewStringList([]string{"a", "c"}, true, nil)
	if a.Equal(b) {
		t.Error("Equal() = true for different lists")
	}
}
