package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Color codes
const (
	reset      = "\033[0m"
	dim        = "\033[2m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	blue       = "\033[34m"
	magenta    = "\033[35m"
	cyan       = "\033[36m"
	white      = "\033[37m"
	boldRed    = "\033[1;31m"
	boldGreen  = "\033[1;32m"
	boldYellow = "\033[1;33m"
)

// Emojis for different log types
const (
	infoEmoji     = "ℹ️ "
	successEmoji  = "✅ "
	errorEmoji    = "❌ "
	warnEmoji     = "⚠️ "
	stepEmoji     = "👉 "
	debugEmoji    = "🔍 "
	prEmoji       = "🔄 "
	gitEmoji      = "📦 "
	branchEmoji   = "🌿 "
	cacheEmoji    = "🗃️ "
	generateEmoji = "✨ "
)

const lineWidth = 80

// Logger struct with debug flag
type Logger struct {
	debug bool

	mu  sync.Mutex
	out io.Writer
}

// New creates a new logger instance writing to stdout
func New(debug bool) *Logger {
	return &Logger{debug: debug, out: os.Stdout}
}

// SetOutput redirects all log lines to w
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// formatMessage wraps long lines at word boundaries
func formatMessage(msg string) string {
	lines := strings.Split(msg, "\n")
	var formatted []string

	for _, line := range lines {
		if len(line) <= lineWidth {
			formatted = append(formatted, line)
			continue
		}

		words := strings.Fields(line)
		current := ""
		for _, word := range words {
			if len(current)+len(word)+1 > lineWidth {
				formatted = append(formatted, current)
				current = word
			} else if current == "" {
				current = word
			} else {
				current += " " + word
			}
		}
		if current != "" {
			formatted = append(formatted, current)
		}
	}

	return strings.Join(formatted, "\n")
}

func (l *Logger) print(color, emoji, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s%s%s%s\n", color, emoji, formatMessage(msg), reset)
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.print(blue, infoEmoji, format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	l.print(boldGreen, successEmoji, format, args...)
}

// Error prints an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.print(boldRed, errorEmoji, format, args...)
}

// Warning prints a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.print(boldYellow, warnEmoji, format, args...)
}

// Step prints a pipeline step message
func (l *Logger) Step(format string, args ...interface{}) {
	l.print(cyan, stepEmoji, format, args...)
}

// Debug prints a debug message if debug is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print(dim, debugEmoji, format, args...)
}

// PR prints a PR-related message
func (l *Logger) PR(format string, args ...interface{}) {
	l.print(magenta, prEmoji, format, args...)
}

// Git prints a git-related message
func (l *Logger) Git(format string, args ...interface{}) {
	l.print(white, gitEmoji, format, args...)
}

// Branch prints a branch-related message
func (l *Logger) Branch(format string, args ...interface{}) {
	l.print(green, branchEmoji, format, args...)
}

// Cache prints a cache hit/miss message
func (l *Logger) Cache(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print(yellow, cacheEmoji, format, args...)
}

// Generate prints a generation-related message
func (l *Logger) Generate(format string, args ...interface{}) {
	l.print(magenta, generateEmoji, format, args...)
}

// IsDebug returns whether debug logging is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}
