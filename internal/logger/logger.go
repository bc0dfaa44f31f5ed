// Package logger provides leveled logging for the monitoring service.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG] ",
	InfoLevel:  "[INFO] ",
	WarnLevel:  "[WARN] ",
	ErrorLevel: "[ERROR] ",
}

// Logger provides leveled logging on top of the standard library logger.
type Logger struct {
	level  Level
	logger *log.Logger
}

var defaultLogger *Logger

// Init initializes the default logger with the specified level and format.
func Init(level string, format string) {
	var l Level
	switch strings.ToLower(level) {
	case "debug":
		l = DebugLevel
	case "warn":
		l = WarnLevel
	case "error":
		l = ErrorLevel
	default:
		l = InfoLevel
	}

	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}

	defaultLogger = &Logger{
		level:  l,
		logger: log.New(os.Stderr, "", flags),
	}
}

func logf(level Level, format string, args ...any) {
	if defaultLogger == nil || defaultLogger.level > level {
		return
	}
	// Output depth 3: logf → exported wrapper → caller.
	_ = defaultLogger.logger.Output(3, fmt.Sprintf(levelTags[level]+format, args...))
}

func Debug(format string, args ...any) { logf(DebugLevel, format, args...) }

func Info(format string, args ...any) { logf(InfoLevel, format, args...) }

func Warn(format string, args ...any) { logf(WarnLevel, format, args...) }

func Error(format string, args ...any) { logf(ErrorLevel, format, args...) }

// Fatal logs at fatal level and terminates the process.
func Fatal(format string, args ...any) {
	msg := fmt.Sprintf("[FATAL] "+format, args...)
	if defaultLogger != nil {
		_ = defaultLogger.logger.Output(2, msg)
	}
	os.Exit(1)
}
