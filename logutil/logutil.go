// Package logutil hands out named internal diagnostic loggers, all
// writing to io.Discard until SetOutput redirects every logger handed
// out so far to a single destination.
package logutil

import (
	"io"
	"log"
	"sync"
)

// Discard is a Logger that ignores all loggings.
var Discard = log.New(io.Discard, "", 0)

var (
	mu      sync.Mutex
	loggers []*log.Logger
)

// GetLogger returns a Logger with the given prefix, initially writing to
// io.Discard. It is registered so a later call to SetOutput also
// redirects it.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := log.New(io.Discard, prefix, log.LstdFlags)
	loggers = append(loggers, l)
	return l
}

// SetOutput redirects every logger returned by GetLogger so far to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetOutput(w)
	}
}
