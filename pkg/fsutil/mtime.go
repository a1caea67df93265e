// Package fsutil adapts the build engine to the filesystem: it answers the
// single question the engine asks of disk state, "when was this path last
// modified".
package fsutil

import (
	"os"
	"time"
)

// ModTime returns the modification time of path and true, or the zero
// value and false if path does not exist or cannot be stat'd.
func ModTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
