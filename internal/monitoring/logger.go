package monitoring

import (
	"log"
	"sync/atomic"
)

type logFunc func(format string, v ...interface{})

var current atomic.Pointer[logFunc]

func init() {
	f := logFunc(log.Printf)
	current.Store(&f)
}

// Logf is the package-level diagnostic logger. It forwards to log.Printf
// unless replaced by SetLogger. The receive goroutine and the evaluation
// loop both log through it, so the swap is atomic.
func Logf(format string, v ...interface{}) {
	(*current.Load())(format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	lf := logFunc(f)
	current.Store(&lf)
}

// Warnf logs with a warning prefix. Noise and degraded-mode conditions use
// it so they can be grepped apart from routine lines.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
