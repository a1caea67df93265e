// Package process captures one shell command's output, PTY-first with a
// pipe+exec fallback, the way the build engine's run/run_parallel fields
// spawn commands.
package process

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/nordtektiger/qvickbuild/pkg/diag"
	"github.com/nordtektiger/qvickbuild/pkg/qerr"
	"github.com/nordtektiger/qvickbuild/pkg/sys"
)

const readChunkSize = 4096

var errPTYUnavailable = errors.New("process: pty unavailable")

// Run execs "/bin/sh -c cmdline", streaming every byte the command
// produces to out as it arrives, and returns once the command has
// exited. ref, if non-nil, is attached to any error Run returns so the
// driver can point at the run field element that produced cmdline.
func Run(cmdline string, out io.Writer, ref *diag.Context) *qerr.Error {
	code, err := runPTY(cmdline, out)
	if errors.Is(err, errPTYUnavailable) {
		code, err = runPipe(cmdline, out)
	}
	if err != nil {
		return qerr.ErrProcessInternal(ref, cmdline, err)
	}
	if code != 0 {
		return qerr.ErrNonZeroProcess(ref, cmdline, code)
	}
	return nil
}

// runPTY allocates a pseudoterminal, clones the controlling terminal's
// winsize and termios onto its slave side, and runs cmdline with the
// slave as its controlling terminal. The master-read loop is a dedicated
// goroutine doing plain blocking Reads, the same shape elvish's own PTY
// consumer (website/cmd/ttyshot) uses to drain a pty master concurrently
// with the command running.
func runPTY(cmdline string, out io.Writer) (int, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return 0, errPTYUnavailable
	}
	defer master.Close()

	cloneTerminal(master, slave)

	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		slave.Close()
		return 0, errPTYUnavailable
	}
	slave.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, readChunkSize)
		for {
			n, err := master.Read(buf)
			if n > 0 {
				out.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	<-done
	return exitCode(waitErr)
}

// cloneTerminal best-effort copies the controlling terminal's window
// size and terminal attributes onto the pty slave, matching the shared
// protocol's "winsize and termios are cloned from the controlling
// terminal." If the driver's stdin is not a terminal (e.g. under a CI
// runner), this is a silent no-op: the child still gets a usable pty,
// just with whatever default geometry the kernel assigns it.
func cloneTerminal(master, slave *os.File) {
	if !sys.IsATTY(os.Stdin.Fd()) {
		return
	}
	if row, col := sys.WinSize(os.Stdin); row > 0 && col > 0 {
		pty.Setsize(master, &pty.Winsize{Rows: uint16(row), Cols: uint16(col)})
	}
	if term, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), unix.TCGETS); err == nil {
		unix.IoctlSetTermios(int(slave.Fd()), unix.TCSETS, term)
	}
}

// runPipe is the fallback path when pty.Open fails: a plain pipe-backed
// exec with stdout and stderr both forwarded to out.
func runPipe(cmdline string, out io.Writer) (int, error) {
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdout = out
	cmd.Stderr = out
	return exitCode(cmd.Run())
}

func exitCode(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, waitErr
}
