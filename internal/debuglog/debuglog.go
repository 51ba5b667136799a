// Package debuglog is deckard's trace-logging facility, generalized from
// the teacher's internal/debug: output is suppressed in stdio MCP mode
// (writing to stdout would corrupt the JSON-RPC stream) and otherwise goes
// to a timestamped file under the process's log directory.
package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu        sync.Mutex
	out       io.Writer
	file      *os.File
	stdioMode bool
)

// SetStdioMode enables stdio MCP mode, which suppresses all output to
// avoid corrupting the framed JSON-RPC stream over stdin/stdout.
func SetStdioMode(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	stdioMode = enabled
}

// SetOutput sets a custom writer for debug output. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// InitLogFile opens a timestamped log file under dir and routes output
// there. Returns the file path.
func InitLogFile(dir string) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("deckard-%s.log", time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	if file != nil {
		_ = file.Close()
	}
	file = f
	out = f
	return path, nil
}

// Close closes any open log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	out = nil
	return err
}

// Printf writes a formatted trace line, unless stdio mode is active or no
// output sink has been configured.
func Printf(format string, args ...any) {
	mu.Lock()
	w, suppressed := out, stdioMode
	mu.Unlock()

	if suppressed || w == nil {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	fmt.Fprintf(w, "[%s] "+format+"\n", append([]any{ts}, args...)...)
}
