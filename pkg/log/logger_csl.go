package log

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarn
	LevelError
	LevelCritical
	LevelAlert
	LevelEmergency
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "notice":
		return LevelNotice
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "critical":
		return LevelCritical
	case "alert":
		return LevelAlert
	case "emergency":
		return LevelEmergency
	default:
		return LevelInfo
	}
}

type CslLogger struct {
	out   *log.Logger
	level Level
}

func NewCslLogger() (*CslLogger, error) {
	return NewCslLoggerWith(os.Stderr, LevelInfo), nil
}

func NewCslLoggerWith(w io.Writer, level Level) *CslLogger {
	return &CslLogger{
		out:   log.New(w, "", log.LstdFlags),
		level: level,
	}
}

func (l *CslLogger) print(level Level, prefix, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf(prefix+format, args...)
}

func (l *CslLogger) Info(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelInfo, "[INFO] ", format, args...)
}

func (l *CslLogger) Alert(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelAlert, "[ALERT] ", format, args...)
}

func (l *CslLogger) Error(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelError, "[ERROR] ", format, args...)
}

func (l *CslLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelWarn, "[WARN] ", format, args...)
}

func (l *CslLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelDebug, "[DEBUG] ", format, args...)
}

func (l *CslLogger) Critical(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelCritical, "[CRITICAL] ", format, args...)
}

func (l *CslLogger) Emergency(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelEmergency, "[EMERGENCY] ", format, args...)
}

func (l *CslLogger) Notice(ctx context.Context, format string, args ...interface{}) {
	l.print(LevelNotice, "[NOTICE] ", format, args...)
}
