// Package logger provides the zerolog and logrus implementations of the
// core logger interface.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/psst/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger { return corelogger.OrNop(l) }

// Backends.
const (
	BackendZerolog = "zerolog"
	BackendLogrus  = "logrus"
)

var (
	mu      sync.RWMutex
	backend = BackendZerolog
	level   = "info"
	// output receives every record. Standard output is reserved for the
	// command banners.
	output io.Writer = os.Stderr
)

// Configure selects the backend and minimum level used by New.
func Configure(name, lvl string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = BackendZerolog
	}
	if name != BackendZerolog && name != BackendLogrus {
		return fmt.Errorf("unknown logging backend %q", name)
	}
	lvl = strings.ToLower(strings.TrimSpace(lvl))
	if lvl == "" {
		lvl = "info"
	}
	zl, err := zerolog.ParseLevel(lvl)
	if err != nil || zl == zerolog.NoLevel {
		return fmt.Errorf("unknown logging level %q", lvl)
	}
	mu.Lock()
	backend, level = name, lvl
	mu.Unlock()
	return nil
}

// SetOutput redirects records of loggers created afterwards.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// New returns a Logger for the given component using the configured backend.
func New(component string) Logger {
	mu.RLock()
	name, lvl, w := backend, level, output
	mu.RUnlock()
	if name == BackendLogrus {
		return newLogrusLogger(component, lvl, w)
	}
	return newZerologLogger(component, lvl, w)
}
