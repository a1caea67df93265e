// Package sys provides the small set of OS-level queries the process
// layer needs to clone the controlling terminal's geometry onto a
// subprocess's pseudoterminal: is a given file a terminal, and what size
// is it.
package sys

import (
	"os"

	"github.com/mattn/go-isatty"
)

// WinSize queries the size of the terminal referenced by file.
func WinSize(file *os.File) (row, col int) { return winSize(file) }

// IsATTY determines whether the given file descriptor is a terminal.
func IsATTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
