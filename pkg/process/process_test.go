package process

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nordtektiger/qvickbuild/pkg/qerr"
)

func TestRunSuccess(t *testing.T) {
	var out bytes.Buffer
	if err := Run("exit 0", &out, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	var out bytes.Buffer
	err := Run("exit 7", &out, nil)
	if err == nil {
		t.Fatal("Run() = nil, want NonZeroProcess")
	}
	if err.Kind != qerr.NonZeroProcess {
		t.Errorf("Run() kind = %v, want NonZeroProcess", err.Kind)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	var out bytes.Buffer
	if err := Run("echo hello-from-process", &out, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "hello-from-process") {
		t.Errorf("Run() output = %q, want it to contain hello-from-process", out.String())
	}
}

func TestRunCapturesStderr(t *testing.T) {
	var out bytes.Buffer
	if err := Run("echo on-stderr >&2", &out, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "on-stderr") {
		t.Errorf("Run() output = %q, want it to contain on-stderr", out.String())
	}
}
