// Package logger provides namespaced debug logging for truss.
//
// Loggers are silent unless the DEBUG environment variable selects their
// namespace, so rules and parsers can log freely without affecting normal
// CLI output.
package logger

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/JuanMarchetto/truss/pkg/tty"
)

// Logger writes debug messages for a single namespace such as "cst:parse".
type Logger struct {
	namespace string
	enabled   bool
	color     string

	mu      sync.Mutex
	lastLog time.Time
}

var (
	debugEnv    = os.Getenv("DEBUG")
	debugColors = os.Getenv("DEBUG_COLORS") != "0"
	isTTY       = tty.IsStderrTerminal()

	outputMu sync.Mutex
	output   io.Writer = os.Stderr

	// 256-color codes readable on light and dark backgrounds.
	colorPalette = []string{
		"\033[38;5;33m",
		"\033[38;5;35m",
		"\033[38;5;166m",
		"\033[38;5;125m",
		"\033[38;5;37m",
		"\033[38;5;161m",
		"\033[38;5;136m",
		"\033[38;5;124m",
		"\033[38;5;28m",
		"\033[38;5;63m",
	}

	colorReset = "\033[0m"
)

// New creates a Logger for namespace. Whether it is enabled is decided once,
// here, from the DEBUG variable using npm debug syntax:
//
//	DEBUG=*                 all namespaces
//	DEBUG=workflow:*        every rule logger
//	DEBUG=cst:parse,xref:*  a list of patterns
//	DEBUG=*,-workflow:*     everything except the rule loggers
func New(namespace string) *Logger {
	return &Logger{
		namespace: namespace,
		enabled:   computeEnabled(namespace),
		color:     selectColor(namespace),
		lastLog:   time.Now(),
	}
}

// SetOutput redirects all loggers to w and returns a function restoring the
// previous writer. Tests use it instead of swapping os.Stderr.
func SetOutput(w io.Writer) (restore func()) {
	outputMu.Lock()
	prev := output
	output = w
	outputMu.Unlock()
	return func() {
		outputMu.Lock()
		output = prev
		outputMu.Unlock()
	}
}

// Enabled reports whether DEBUG selected this logger's namespace.
func (l *Logger) Enabled() bool {
	return l.enabled
}

// Namespace returns the namespace the logger was created with.
func (l *Logger) Namespace() string {
	return l.namespace
}

// Printf logs a formatted message followed by the time elapsed since the
// previous message of this logger.
func (l *Logger) Printf(format string, args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprintf(format, args...))
}

// Print logs its arguments like fmt.Sprint.
func (l *Logger) Print(args ...any) {
	if !l.enabled {
		return
	}
	l.write(fmt.Sprint(args...))
}

func (l *Logger) write(message string) {
	l.mu.Lock()
	now := time.Now()
	diff := now.Sub(l.lastLog)
	l.lastLog = now
	l.mu.Unlock()

	ns := l.namespace
	if l.color != "" {
		ns = l.color + ns + colorReset
	}

	outputMu.Lock()
	defer outputMu.Unlock()
	fmt.Fprintf(output, "%s %s +%s\n", ns, message, formatDuration(diff))
}

// formatDuration renders elapsed time the way the debug package does:
// 0ms, 15ms, 2s, 3m.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func selectColor(namespace string) string {
	if !debugColors || !isTTY {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(namespace))
	return colorPalette[h.Sum32()%uint32(len(colorPalette))]
}

// computeEnabled matches namespace against the comma separated DEBUG patterns.
// Exclusions win over inclusions regardless of their position.
func computeEnabled(namespace string) bool {
	enabled := false
	for _, pattern := range strings.Split(debugEnv, ",") {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if excluded, ok := strings.CutPrefix(pattern, "-"); ok {
			if matchPattern(namespace, excluded) {
				return false
			}
			continue
		}
		if matchPattern(namespace, pattern) {
			enabled = true
		}
	}
	return enabled
}

// matchPattern supports a single '*' wildcard at the start, the end or in
// the middle of the pattern.
func matchPattern(namespace, pattern string) bool {
	if pattern == "*" || pattern == namespace {
		return true
	}
	prefix, suffix, found := strings.Cut(pattern, "*")
	if !found {
		return false
	}
	return len(namespace) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(namespace, prefix) &&
		strings.HasSuffix(namespace, suffix)
}
