package csdl

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

// Logger receives structured conversion events. Args are slog-style key/value pairs.
// Path traces entry into resolution steps and is the most verbose level.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Path(msg string, args ...any)
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Path(string, ...any)  {}

// LevelPath is the slog level used for Path events
const LevelPath = slog.LevelDebug - 4

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a slog.Logger. A nil logger uses slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s *slogLogger) Path(msg string, args ...any) {
	s.l.Log(context.Background(), LevelPath, msg, args...)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger adapts a zap.Logger. A nil logger discards everything.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (z *zapLogger) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }
func (z *zapLogger) Path(msg string, args ...any) {
	z.s.Debugw(msg, append([]any{"trace", true}, args...)...)
}
