// Package logging provides structured logging for apigate
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/apigate-dev/apigate/pkg/config"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Error      string                 `json:"error,omitempty"`
	SourceFile string                 `json:"source_file,omitempty"`
	SourceLine int                    `json:"source_line,omitempty"`
}

// Logger provides structured logging functionality. The gateway takes a
// Logger as an injected collaborator; there is no process-global logger.
type Logger struct {
	level     LogLevel
	writer    io.Writer
	formatter Formatter
	mu        sync.RWMutex
	fields    map[string]interface{} // Default fields for all log entries
}

// Formatter interface for log formatting
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// JSONFormatter formats log entries as JSON
type JSONFormatter struct{}

// TextFormatter formats log entries as plain text
type TextFormatter struct{}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Format formats a log entry as plain text
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	var builder strings.Builder

	builder.WriteString(entry.Timestamp.Format("2006-01-02 15:04:05"))
	builder.WriteString(" ")

	builder.WriteString(fmt.Sprintf("[%s]", strings.ToUpper(entry.Level)))
	builder.WriteString(" ")

	if entry.Component != "" {
		builder.WriteString(fmt.Sprintf("[%s]", entry.Component))
		builder.WriteString(" ")
	}

	builder.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		builder.WriteString(" ")
		for key, value := range entry.Fields {
			builder.WriteString(fmt.Sprintf("%s=%v ", key, value))
		}
	}

	if entry.Error != "" {
		builder.WriteString(fmt.Sprintf(" error=%s", entry.Error))
	}

	if entry.RequestID != "" {
		builder.WriteString(fmt.Sprintf(" request_id=%s", entry.RequestID))
	}

	builder.WriteString("\n")
	return []byte(builder.String()), nil
}

// NewLogger creates a new structured logger from configuration
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	logger := &Logger{
		level:  ParseLogLevel(cfg.Level),
		fields: make(map[string]interface{}),
	}

	if err := logger.setupWriter(cfg); err != nil {
		return nil, fmt.Errorf("failed to setup writer: %w", err)
	}

	logger.setupFormatter(cfg)

	return logger, nil
}

// NewTestLogger creates a logger writing JSON entries to w at debug
// level. It is intended for tests.
func NewTestLogger(w io.Writer) *Logger {
	return &Logger{
		level:     DebugLevel,
		writer:    w,
		formatter: &JSONFormatter{},
		fields:    make(map[string]interface{}),
	}
}

// NewNopLogger creates a logger that discards everything. It is the
// gateway's default when no logger is injected.
func NewNopLogger() *Logger {
	return &Logger{
		level:     ErrorLevel,
		writer:    io.Discard,
		formatter: &JSONFormatter{},
		fields:    make(map[string]interface{}),
	}
}

// setupWriter configures the output writer
func (l *Logger) setupWriter(cfg *config.LoggingConfig) error {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		l.writer = os.Stdout
	case "stderr":
		l.writer = os.Stderr
	case "discard":
		l.writer = io.Discard
	case "file":
		if cfg.FilePath == "" {
			return fmt.Errorf("file path must be specified for file output")
		}

		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		l.writer = file
	default:
		return fmt.Errorf("unsupported output type: %s", cfg.Output)
	}

	return nil
}

// setupFormatter configures the log formatter
func (l *Logger) setupFormatter(cfg *config.LoggingConfig) {
	switch strings.ToLower(cfg.Format) {
	case "text":
		l.formatter = &TextFormatter{}
	default:
		l.formatter = &JSONFormatter{}
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newLogger := &Logger{
		level:     l.level,
		writer:    l.writer,
		formatter: l.formatter,
		fields:    make(map[string]interface{}, len(l.fields)+1),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	newLogger.fields[key] = value

	return newLogger
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newLogger := &Logger{
		level:     l.level,
		writer:    l.writer,
		formatter: l.formatter,
		fields:    make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}

	return newLogger
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// WithError adds an error field to the logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// WithContext extracts the request ID from ctx, if one was stored with
// ContextWithRequestID.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return l.WithField("request_id", requestID)
	}
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.isLevelEnabled(DebugLevel) {
		l.log(DebugLevel, fmt.Sprintf(msg, args...), nil)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.isLevelEnabled(InfoLevel) {
		l.log(InfoLevel, fmt.Sprintf(msg, args...), nil)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.isLevelEnabled(WarnLevel) {
		l.log(WarnLevel, fmt.Sprintf(msg, args...), nil)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.isLevelEnabled(ErrorLevel) {
		l.log(ErrorLevel, fmt.Sprintf(msg, args...), nil)
	}
}

// log is the internal logging method
func (l *Logger) log(level LogLevel, message string, err error) {
	entry := &LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   message,
		Fields:    l.copyFields(),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	// Promote well-known fields out of the generic map
	if entry.Fields != nil {
		if component, ok := entry.Fields["component"].(string); ok {
			entry.Component = component
			delete(entry.Fields, "component")
		}
		if requestID, ok := entry.Fields["request_id"].(string); ok {
			entry.RequestID = requestID
			delete(entry.Fields, "request_id")
		}
		if errMsg, ok := entry.Fields["error"].(string); ok {
			entry.Error = errMsg
			delete(entry.Fields, "error")
		}
		if len(entry.Fields) == 0 {
			entry.Fields = nil
		}
	}

	// Add source information for error and warn levels
	if level >= WarnLevel {
		file, line := getCallerInfo(3)
		entry.SourceFile = file
		entry.SourceLine = line
	}

	l.writeEntry(entry)
}

// writeEntry writes a log entry using the configured formatter
func (l *Logger) writeEntry(entry *LogEntry) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	data, err := l.formatter.Format(entry)
	if err != nil {
		// Fallback to standard log if formatting fails
		log.Printf("Failed to format log entry: %v", err)
		return
	}

	if _, err := l.writer.Write(data); err != nil {
		log.Printf("Failed to write log entry: %v", err)
	}
}

// isLevelEnabled checks if a log level is enabled
func (l *Logger) isLevelEnabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// copyFields creates a copy of the logger's fields
func (l *Logger) copyFields() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.fields) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return fields
}

// getCallerInfo gets the file and line number of the caller
func getCallerInfo(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores a request ID on the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored on the context, or
// an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
