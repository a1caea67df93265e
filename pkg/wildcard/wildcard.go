// Package wildcard implements the glob/replace pattern engine: tokenizing
// a pattern into literal and wildcard components, matching a string against
// those components with captured segments, globbing the filesystem, and
// weaving captured segments into a replacement pattern.
package wildcard

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

// Component is one piece of a tokenized pattern: either a fixed Literal or
// a Wildcard ('*').
type Component struct {
	Wildcard bool
	Literal  string
}

// Pattern is a tokenized glob/replace pattern: a sequence of Components
// that strictly alternates between Wildcard and non-empty Literal (empty
// literal runs between stars are elided during tokenization), beginning and
// ending with either kind.
type Pattern []Component

// NumWildcards returns how many Wildcard components p has.
func (p Pattern) NumWildcards() int {
	n := 0
	for _, c := range p {
		if c.Wildcard {
			n++
		}
	}
	return n
}

// Tokenize splits pattern on '*' into a Pattern. Two wildcards with no
// literal between them (e.g. "a**b") are rejected with AdjacentWildcards
// before any matching is attempted, in a single O(n) scan.
func Tokenize(pattern string) (Pattern, *qerr.Error) {
	parts := strings.Split(pattern, "*")
	var p Pattern
	for i, part := range parts {
		if i > 0 {
			p = append(p, Component{Wildcard: true})
		}
		if part != "" {
			p = append(p, Component{Literal: part})
		}
	}
	for i := 1; i < len(p); i++ {
		if p[i].Wildcard && p[i-1].Wildcard {
			return nil, qerr.ErrAdjacentWildcards(nil)
		}
	}
	return p, nil
}

// Match matches s against p. It returns the captured segments (one per
// Wildcard, in left-to-right order) and true on success, or nil and false
// if s does not match.
//
// Matching is position-locked for Literal components: each one must occur
// starting exactly at the current cursor. Each Wildcard captures up to the
// leftmost occurrence of the literal that anchors it (the next component),
// except the final Wildcard in the pattern, which always captures the
// remaining suffix of s. The one exception to "leftmost" is a Wildcard
// whose anchor is itself the pattern's last component: that anchor must
// consume the string to its exact end, so a leftmost occurrence that
// leaves a trailing remainder is rejected in favor of a later one that
// reaches the end, rather than failing the whole match outright.
func (p Pattern) Match(s string) ([]string, bool) {
	var captured []string
	pos := 0
	for i, c := range p {
		if !c.Wildcard {
			if !strings.HasPrefix(s[pos:], c.Literal) {
				return nil, false
			}
			pos += len(c.Literal)
			continue
		}
		if i == len(p)-1 {
			captured = append(captured, s[pos:])
			pos = len(s)
			continue
		}
		anchor := p[i+1].Literal
		rest := s[pos:]
		if i+1 == len(p)-1 {
			idx := findAnchorReachingEnd(rest, anchor)
			if idx == -1 {
				return nil, false
			}
			captured = append(captured, rest[:idx])
			pos += idx
			continue
		}
		idx := strings.Index(rest, anchor)
		if idx == -1 {
			return nil, false
		}
		captured = append(captured, rest[:idx])
		pos += idx
	}
	if pos != len(s) {
		return nil, false
	}
	return captured, true
}

// findAnchorReachingEnd searches s forward through every occurrence of
// anchor, returning the index of the first one that consumes s to its
// exact end, or -1 if none does. Used when anchor is a pattern's final
// component: a leftmost occurrence that leaves a trailing remainder must
// be skipped in favor of a later one, rather than failing the match.
func findAnchorReachingEnd(s, anchor string) int {
	search := 0
	for {
		j := strings.Index(s[search:], anchor)
		if j == -1 {
			return -1
		}
		cand := search + j
		if cand+len(anchor) == len(s) {
			return cand
		}
		search = cand + 1
	}
}

// Weave substitutes captured segments into p's Wildcard components, in
// order, left to right, and returns the resulting string. Captured
// segments beyond the number of Wildcards in p are discarded.
func (p Pattern) Weave(captured []string) string {
	var b strings.Builder
	wi := 0
	for _, c := range p {
		if c.Wildcard {
			if wi < len(captured) {
				b.WriteString(captured[wi])
			}
			wi++
			continue
		}
		b.WriteString(c.Literal)
	}
	return b.String()
}

// ComputePaths walks the filesystem rooted at "." recursively and returns
// every path whose slash-separated relative form matches pattern. Walk
// errors (e.g. a directory that cannot be read) are silently skipped, as
// they represent environment state the matcher has no business reporting.
func ComputePaths(pattern string) ([]string, *qerr.Error) {
	p, err := Tokenize(pattern)
	if err != nil {
		return nil, err
	}
	var matches []string
	_ = filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == "." {
			return nil
		}
		rel := filepath.ToSlash(path)
		if _, ok := p.Match(rel); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	sort.Strings(matches)
	return matches, nil
}

// ComputeReplace tokenizes filter and product, requiring product to have
// no more wildcards than filter, then matches each element of inputs
// against filter. A match is rewoven through product; a non-match passes
// the element through unchanged.
func ComputeReplace(inputs []string, filter, product string) ([]string, *qerr.Error) {
	filterPat, err := Tokenize(filter)
	if err != nil {
		return nil, err
	}
	productPat, err := Tokenize(product)
	if err != nil {
		return nil, err
	}
	if productPat.NumWildcards() > filterPat.NumWildcards() {
		return nil, qerr.ErrReplaceChunksLength(nil, filterPat.NumWildcards(), productPat.NumWildcards())
	}

	out := make([]string, len(inputs))
	for i, in := range inputs {
		captured, ok := filterPat.Match(in)
		if !ok {
			out[i] = in
			continue
		}
		out[i] = productPat.Weave(captured)
	}
	return out, nil
}
