package ingest

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/tesseract/internal/monitoring"
)

// logCapture collects monitoring output from any goroutine.
type logCapture struct {
	mu    sync.Mutex
	lines []string
}

func captureLogs(t *testing.T) *logCapture {
	t.Helper()
	lc := &logCapture{}
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lc.mu.Lock()
		defer lc.mu.Unlock()
		lc.lines = append(lc.lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })
	return lc
}

func (lc *logCapture) count(substr string) int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	n := 0
	for _, l := range lc.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}
