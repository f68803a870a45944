// Package logging is a small leveled wrapper around the standard logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// Level orders verbosity; higher is noisier.
type Level int

const (
	LevelError Level = iota + 1
	LevelInfo
	LevelDebug
	LevelSpam
)

var names = map[Level]string{LevelError: "error", LevelInfo: "info", LevelDebug: "debug", LevelSpam: "spam"}

func (l Level) String() string {
	if n, ok := names[l]; ok {
		return n
	}
	return strconv.Itoa(int(l))
}

// ParseLevel accepts a level name or its number (1-4).
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(LevelError) || n > int(LevelSpam) {
			return 0, fmt.Errorf("log level %d out of range 1-4", n)
		}
		return Level(n), nil
	}
	for l, n := range names {
		if n == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Logger writes messages at or below its level.
type Logger struct {
	max Level
	out map[Level]*log.Logger
}

// New returns a logger writing to w.
func New(w io.Writer, max Level) *Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	l := &Logger{max: max, out: map[Level]*log.Logger{}}
	for lvl, n := range names {
		l.out[lvl] = log.New(w, strings.ToUpper(n)+" ", flags)
	}
	return l
}

// Default logs info and errors to stderr.
func Default() *Logger { return New(os.Stderr, LevelInfo) }

// Discard drops everything.
func Discard() *Logger { return New(io.Discard, 0) }

// Enabled reports whether messages at lvl are written.
func (l *Logger) Enabled(lvl Level) bool { return l != nil && lvl <= l.max }

// Logf writes a message at lvl.
func (l *Logger) Logf(lvl Level, format string, args ...any) {
	if !l.Enabled(lvl) {
		return
	}
	_ = l.out[lvl].Output(3, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) { l.Logf(LevelError, format, args...) }
func (l *Logger) Infof(format string, args ...any) { l.Logf(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.Logf(LevelDebug, format, args...) }
func (l *Logger) Spamf(format string, args ...any) { l.Logf(LevelSpam, format, args...) }
