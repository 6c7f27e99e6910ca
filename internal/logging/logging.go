package logging

import (
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string { return levelNames[l] }

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return l
		}
	}
	return LevelInfo
}

// Options configures the process logger.
type Options struct {
	Level      Level
	Format     string // "json" (default) or "console"
	File       string // optional rotating log file, in addition to Output
	MaxSizeMB  int
	MaxBackups int
	Output     io.Writer // defaults to stderr
	Fields     map[string]interface{}
}

type Logger struct {
	z *zap.Logger
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
	atomicLevel   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.LevelKey = "lvl"
	cfg.MessageKey = "msg"
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return cfg
}

// Configure builds the process logger from opts.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	atomicLevel.SetLevel(opts.Level.zapLevel())

	var enc zapcore.Encoder
	if opts.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(encoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(out), atomicLevel)}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotator), atomicLevel))
	}

	z := zap.New(zapcore.NewTee(cores...)).With(toFields(opts.Fields)...)
	mu.Lock()
	defaultLogger = &Logger{z: z}
	mu.Unlock()
}

func current() *Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Configure(Options{Level: LevelInfo})
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// toFields converts a field map in key order so output is stable.
func toFields(m map[string]interface{}) []zap.Field {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := m[k].(error); ok {
			fields = append(fields, zap.String(k, err.Error()))
			continue
		}
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}

// WithFields returns a logger that adds fields to every entry.
func WithFields(fields map[string]interface{}) *Logger {
	return &Logger{z: current().z.With(toFields(fields)...)}
}

func (l *Logger) log(lvl Level, msg string, extra map[string]interface{}) {
	if ce := l.z.Check(lvl.zapLevel(), msg); ce != nil {
		ce.Write(toFields(extra)...)
	}
}

func (l *Logger) Debug(msg string, extra map[string]interface{}) { l.log(LevelDebug, msg, extra) }
func (l *Logger) Info(msg string, extra map[string]interface{})  { l.log(LevelInfo, msg, extra) }
func (l *Logger) Warn(msg string, extra map[string]interface{})  { l.log(LevelWarn, msg, extra) }
func (l *Logger) Error(msg string, extra map[string]interface{}) { l.log(LevelError, msg, extra) }

// Top-level convenience wrappers
func Debug(msg string, extra map[string]interface{}) { current().Debug(msg, extra) }
func Info(msg string, extra map[string]interface{})  { current().Info(msg, extra) }
func Warn(msg string, extra map[string]interface{})  { current().Warn(msg, extra) }
func Error(msg string, extra map[string]interface{}) { current().Error(msg, extra) }

func SetLevel(lvl Level) {
	atomicLevel.SetLevel(lvl.zapLevel())
}

// Sync flushes buffered entries.
func Sync() error {
	return current().z.Sync()
}
