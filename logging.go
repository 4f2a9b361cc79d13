package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Log levels. PROGRESS lines carry streaming throughput updates and are safe
// to filter out when tailing.
const (
	levelInfo     = "INFO"
	levelSuccess  = "SUCCESS"
	levelWarning  = "WARNING"
	levelError    = "ERROR"
	levelProgress = "PROGRESS"
)

// migLogger writes one line per event as "[YYYY-MM-DD HH:MM:SS] [LEVEL] msg"
// to stderr and, when configured, a per-run log file. Safe for use from
// parallel table workers.
type migLogger struct {
	mu   sync.Mutex
	out  io.Writer
	file *os.File
}

var logx = &migLogger{out: os.Stderr}

// openLogFile tees log output into <dir>/migration_YYYYMMDD_HHMMSS.log.
func (l *migLogger) openLogFile(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	name := filepath.Join(dir, time.Now().Format("migration_20060102_150405.log"))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
	return nil
}

func (l *migLogger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *migLogger) log(level, format string, args ...any) {
	line := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, args...))
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.out, line)
	if l.file != nil {
		io.WriteString(l.file, line)
	}
}

func (l *migLogger) Infof(format string, args ...any)     { l.log(levelInfo, format, args...) }
func (l *migLogger) Successf(format string, args ...any)  { l.log(levelSuccess, format, args...) }
func (l *migLogger) Warningf(format string, args ...any)  { l.log(levelWarning, format, args...) }
func (l *migLogger) Errorf(format string, args ...any)    { l.log(levelError, format, args...) }
func (l *migLogger) Progressf(format string, args ...any) { l.log(levelProgress, format, args...) }
