package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Level names double as log file names (<level>.log) in the log directory.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger writing to stdout/stderr and to one file per
// level inside logDir, creating the directory when needed.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{logDir: logDir}

	writers := make(map[string]io.Writer, 3)
	for _, level := range []string{LevelInfo, LevelWarning, LevelError} {
		file, err := os.OpenFile(l.FilePath(level), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open log file for %s: %w", level, err)
		}
		l.files = append(l.files, file)

		console := io.Writer(os.Stdout)
		if level == LevelError {
			console = os.Stderr
		}
		writers[level] = io.MultiWriter(console, file)
	}

	l.setupLoggers(writers[LevelInfo], writers[LevelWarning], writers[LevelError])
	return l, nil
}

// NewWriterLogger sends every level to w. Used by tools and tests that have
// no log directory.
func NewWriterLogger(w io.Writer) *Logger {
	l := &Logger{}
	l.setupLoggers(w, w, w)
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger(io.Discard)
}

func (l *Logger) setupLoggers(info, warning, errorW io.Writer) {
	l.infoLog = log.New(info, "INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warning, "WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorW, "ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// FilePath returns the file backing the given level. Empty for writer loggers.
func (l *Logger) FilePath(level string) string {
	if l.logDir == "" {
		return ""
	}
	return filepath.Join(l.logDir, level+".log")
}

// CleanLogs truncates the file of the given level.
func (l *Logger) CleanLogs(level string) error {
	path := l.FilePath(level)
	if path == "" {
		return fmt.Errorf("logger has no log directory")
	}

	l.mu.Lock()
	err := os.Truncate(path, 0)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", path, err)
	}

	l.Info("Log file %s has been cleared", filepath.Base(path))
	return nil
}

// Close closes the underlying log files.
func (l *Logger) Close() {
	for _, file := range l.files {
		file.Close()
	}
	l.files = nil
}
