package wildcard

import (
	"reflect"
	"testing"

	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

func TestTokenize(t *testing.T) {
	p, err := Tokenize("a*b")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := Pattern{{Literal: "a"}, {Wildcard: true}, {Literal: "b"}}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Tokenize(a*b) = %+v, want %+v", p, want)
	}
}

func TestTokenizeAdjacentWildcards(t *testing.T) {
	_, err := Tokenize("a**b")
	if err == nil || err.Kind != qerr.AdjacentWildcards {
		t.Fatalf("Tokenize(a**b) err = %v, want AdjacentWildcards", err)
	}
}

func TestTokenizeLeadingTrailingStar(t *testing.T) {
	p, err := Tokenize("*a*")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	want := Pattern{{Wildcard: true}, {Literal: "a"}, {Wildcard: true}}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("Tokenize(*a*) = %+v, want %+v", p, want)
	}
}

func TestMatchCapturesWildcards(t *testing.T) {
	p, _ := Tokenize("*.c")
	captured, ok := p.Match("a.c")
	if !ok || len(captured) != 1 || captured[0] != "a" {
		t.Errorf("Match(a.c) = %v, %v, want [a], true", captured, ok)
	}
}

func TestMatchCapturesMultipleWildcardsLeftmostAnchor(t *testing.T) {
	p, _ := Tokenize("a*b*c")
	captured, ok := p.Match("a1b2b3c")
	want := []string{"1", "2b3"}
	if !ok || !reflect.DeepEqual(captured, want) {
		t.Errorf("Match(a1b2b3c) = %v, %v, want %v, true", captured, ok, want)
	}
}

func TestMatchBacktracksPastRepeatedAnchorToReachEnd(t *testing.T) {
	p, _ := Tokenize("*.txt")
	captured, ok := p.Match("a.txt.txt")
	want := []string{"a.txt"}
	if !ok || !reflect.DeepEqual(captured, want) {
		t.Errorf("Match(a.txt.txt) = %v, %v, want %v, true", captured, ok, want)
	}
}

func TestMatchNoMatch(t *testing.T) {
	p, _ := Tokenize("*.c")
	if _, ok := p.Match("a.o"); ok {
		t.Error("Match(a.o) against *.c succeeded, want failure")
	}
}

func TestMatchNoWildcards(t *testing.T) {
	p, _ := Tokenize("exact")
	if _, ok := p.Match("exact"); !ok {
		t.Error("literal pattern failed to match itself")
	}
	if _, ok := p.Match("other"); ok {
		t.Error("literal pattern matched a different string")
	}
}

func TestWeave(t *testing.T) {
	p, _ := Tokenize("*.o")
	if got := p.Weave([]string{"a"}); got != "a.o" {
		t.Errorf("Weave = %q, want a.o", got)
	}
}

func TestComputeReplace(t *testing.T) {
	out, err := ComputeReplace([]string{"a.c", "b.c"}, "*.c", "*.o")
	if err != nil {
		t.Fatalf("ComputeReplace() error = %v", err)
	}
	want := []string{"a.o", "b.o"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("ComputeReplace() = %v, want %v", out, want)
	}
}

func TestComputeReplacePassthroughOnNoMatch(t *testing.T) {
	out, err := ComputeReplace([]string{"a.txt"}, "*.c", "*.o")
	if err != nil {
		t.Fatalf("ComputeReplace() error = %v", err)
	}
	if len(out) != 1 || out[0] != "a.txt" {
		t.Errorf("ComputeReplace() = %v, want passthrough [a.txt]", out)
	}
}

func TestComputeReplaceIdentityPatternIsNoop(t *testing.T) {
	inputs := []string{"a.c", "b.c"}
	out, err := ComputeReplace(inputs, "*.c", "*.c")
	if err != nil {
		t.Fatalf("ComputeReplace() error = %v", err)
	}
	if !reflect.DeepEqual(out, inputs) {
		t.Errorf("ComputeReplace(p, p) = %v, want inputs unchanged %v", out, inputs)
	}
}

func TestComputeReplaceChunksLength(t *testing.T) {
	_, err := ComputeReplace([]string{"a.c"}, "*.c", "*-*.o")
	if err == nil || err.Kind != qerr.ReplaceChunksLength {
		t.Fatalf("ComputeReplace() err = %v, want ReplaceChunksLength", err)
	}
}
