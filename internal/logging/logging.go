package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ANSI color codes for terminal output
const (
	colorRed    = "\033[97;41m" // White text on red background
	colorGreen  = "\033[97;42m" // White text on green background
	colorYellow = "\033[90;43m" // Black text on yellow background
	colorBlue   = "\033[97;44m" // White text on blue background
	colorCyan   = "\033[97;46m" // White text on cyan background
	colorReset  = "\033[0m"
)

// Log levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levelRank = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

type Logger struct {
	*log.Logger
	writer *lumberjack.Logger
	level  int
}

func NewLogger(config *LogConfig) (*Logger, error) {
	level := strings.ToLower(config.Level)
	if level == "" {
		level = LevelInfo
	}
	rank, ok := levelRank[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s", config.Level)
	}

	if config.File == "" {
		return newStdoutLogger(level), nil
	}

	// Expand home directory in log file path
	logFile, err := ExpandHome(config.File)
	if err != nil {
		return nil, err
	}

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Set up log rotation
	writer := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    config.MaxSize, // MB
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge, // days
		Compress:   true,
	}

	// Create a multi-writer that writes to both file and stdout
	multiWriter := io.MultiWriter(writer, os.Stdout)

	return &Logger{
		Logger: log.New(multiWriter, "", log.LstdFlags),
		writer: writer,
		level:  rank,
	}, nil
}

func newStdoutLogger(level string) *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
		level:  levelRank[level],
	}
}

// NewDiscardLogger returns a logger that drops everything. Handy in tests.
func NewDiscardLogger() *Logger {
	return &Logger{
		Logger: log.New(io.Discard, "", 0),
		level:  levelRank[LevelError] + 1,
	}
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

func (l *Logger) Close() error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Close()
}

func (l *Logger) enabled(level string) bool {
	return levelRank[level] >= l.level
}

// Log methods with colors (always enabled for better visibility)
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.enabled(LevelDebug) {
		return
	}
	prefix := colorBlue + "[DEBUG]" + colorReset
	l.Printf(prefix+" "+format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	if !l.enabled(LevelInfo) {
		return
	}
	prefix := colorGreen + "[INFO]" + colorReset
	l.Printf(prefix+" "+format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if !l.enabled(LevelWarn) {
		return
	}
	prefix := colorYellow + "[WARN]" + colorReset
	l.Printf(prefix+" "+format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	if !l.enabled(LevelError) {
		return
	}
	prefix := colorRed + "[ERROR]" + colorReset
	l.Printf(prefix+" "+format, v...)
}

// Error handling utilities
type ErrorWithContext struct {
	Err     error
	Context string
}

func (e *ErrorWithContext) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Err)
}

func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Err:     err,
		Context: context,
	}
}

// Common errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrStore         = errors.New("store error")
	ErrSinkhole      = errors.New("sinkhole error")
	ErrService       = errors.New("service error")
)

// FormatHTTPStatus returns a colored string based on the status code
func (l *Logger) FormatHTTPStatus(status int) string {
	var color string
	switch {
	case status >= 500:
		color = colorRed
	case status >= 400:
		color = colorYellow
	case status >= 300:
		color = colorCyan
	case status >= 200:
		color = colorGreen
	default:
		color = colorBlue
	}
	return fmt.Sprintf("%s %d %s", color, status, colorReset)
}

// LogHTTPRequest logs a control API request at debug level
func (l *Logger) LogHTTPRequest(method, path, requestID string, status, bytes int, latency string) {
	l.Debug("[HTTP] %s | %-6s | %s | %s | %d bytes | %s",
		l.FormatHTTPStatus(status),
		method,
		path,
		requestID,
		bytes,
		latency,
	)
}

// LogHTTPError logs a failed control API request
func (l *Logger) LogHTTPError(method, path, requestID string, status int, message string, err error) {
	l.Warn("[HTTP-ERROR] %s | %-6s | %s | %s | %s: %v",
		l.FormatHTTPStatus(status),
		method,
		path,
		requestID,
		message,
		err,
	)
}
