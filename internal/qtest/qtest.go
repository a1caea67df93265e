// Package qtest contains small test fixtures shared across this module's
// package tests: writing a configuration source to a temp file, touching
// a file's mtime for freshness tests, and scaling timing-sensitive
// sleeps so they survive a slow CI runner.
package qtest

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	whitespaceOnlyLines = regexp.MustCompile(`(?m)^[ \t]+$`)
	leadingWhitespace   = regexp.MustCompile(`(?m)(^[ \t]*)(?:[^ \t\n])`)
)

// Cleanuper is the subset of testing.TB that Set needs. *testing.T and
// *testing.B both satisfy it.
type Cleanuper interface {
	Cleanup(func())
}

// OK panics if err is not nil. Intended for the "can't happen in a test
// fixture" case, where handling the error properly would only obscure
// the test.
func OK(err error) {
	if err != nil {
		panic(err)
	}
}

// OK1 panics if err is not nil, otherwise returns v. Intended for
// wrapping a function that returns one value and an error.
func OK1[T any](v T, err error) T {
	OK(err)
	return v
}

// Set assigns v to *p for the duration of the current test, restoring
// the old value on cleanup. Used to scope a package-level variable
// override (a worker-pool size, a default flag) to one test.
func Set[T any](c Cleanuper, p *T, v T) {
	old := *p
	*p = v
	c.Cleanup(func() { *p = old })
}

// WriteFile writes content to a file under dir, creating any missing
// parent directories, and returns the file's full path. Used to build a
// throwaway configuration or dependency fixture under t.TempDir().
func WriteFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	OK(os.MkdirAll(filepath.Dir(path), 0o700))
	OK(os.WriteFile(path, []byte(content), 0o600))
	return path
}

// Touch sets path's modification time to at, creating the file first if
// it does not already exist. Used to pin the relative staleness of a
// target and its dependencies in a freshness test without depending on
// wall-clock timing between two os.WriteFile calls.
func Touch(path string, at time.Time) {
	if _, err := os.Stat(path); err != nil {
		OK(os.MkdirAll(filepath.Dir(path), 0o700))
		OK(OK1(os.Create(path)).Close())
	}
	OK(os.Chtimes(path, at, at))
}

// ScaledMs returns ms milliseconds scaled by the QVICKBUILD_TEST_TIME_SCALE
// environment variable, defaulting to a scale of 1 when the variable is
// absent or invalid. Tests that need a real sleep to order two goroutines
// (rather than measuring elapsed time) use this instead of a bare
// time.Sleep so they still pass on a slow CI runner.
func ScaledMs(ms int) time.Duration {
	return time.Duration(float64(ms) * float64(time.Millisecond) * testTimeScale())
}

func testTimeScale() float64 {
	v := os.Getenv("QVICKBUILD_TEST_TIME_SCALE")
	if v == "" {
		return 1
	}
	scale, err := strconv.ParseFloat(v, 64)
	if err != nil || scale <= 0 {
		return 1
	}
	return scale
}

// Dedent removes any common leading whitespace from every line in text,
// and strips a single leading newline, so a multiline configuration
// fixture can be written as an indented raw string literal in test
// source while still lexing as left-aligned source text.
func Dedent(text string) string {
	var margin string

	if len(text) > 0 && text[0] == '\n' {
		text = whitespaceOnlyLines.ReplaceAllString(text[1:], "")
	} else {
		text = whitespaceOnlyLines.ReplaceAllString(text, "")
	}
	indents := leadingWhitespace.FindAllStringSubmatch(text, -1)

	for i, indent := range indents {
		switch {
		case i == 0:
			margin = indent[1]
		case strings.HasPrefix(indent[1], margin):
			continue
		case strings.HasPrefix(margin, indent[1]):
			margin = indent[1]
		default:
			margin = ""
		}
		if margin == "" && i > 0 {
			break
		}
	}

	if margin != "" {
		text = regexp.MustCompile("(?m)^"+margin).ReplaceAllString(text, "")
	}
	return text
}
