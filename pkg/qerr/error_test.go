package qerr

import (
	"strings"
	"testing"

	"github.com/nordtektiger/qvickbuild/pkg/diag"
)

func TestErrorError(t *testing.T) {
	err := ErrTaskNotFound("release")
	if err.Error() != `no task named "release"` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorShowWithoutContext(t *testing.T) {
	err := ErrNoTasks()
	show := err.Show("")
	if !strings.Contains(show, "configuration defines no tasks") {
		t.Errorf("Show() = %q, missing message", show)
	}
}

func TestErrorShowWithContext(t *testing.T) {
	src := "main = [bad];"
	ctx := diag.NewContext("qvickbuild", src, diag.Ranging{From: 7, To: 11})
	err := ErrInvalidEscapedExpression(ctx)
	show := err.Show("")
	if !strings.Contains(show, "invalid escaped expression") {
		t.Errorf("Show() missing message: %q", show)
	}
	if !strings.Contains(show, "line 1") {
		t.Errorf("Show() missing source excerpt: %q", show)
	}
}

func TestKindIs(t *testing.T) {
	err := ErrAmbiguousTask(nil)
	if !AmbiguousTask.Is(err) {
		t.Error("AmbiguousTask.Is(err) = false, want true")
	}
	if TaskNotFound.Is(err) {
		t.Error("TaskNotFound.Is(err) = true, want false")
	}
}
