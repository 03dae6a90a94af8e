package logger

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/blemidi/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements contracts.Logger on top of Uber's zap.
type ZapLogger struct {
	logger atomic.Pointer[zap.Logger]
	level  zap.AtomicLevel

	mu        sync.Mutex // guards closeSink and destination swaps
	closeSink func()
}

// NewZapLogger creates a production zap logger writing JSON to stderr.
func NewZapLogger() contracts.Logger {
	z := &ZapLogger{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	z.logger.Store(z.build(zapcore.Lock(os.Stderr)))
	return z
}

// NewFromZap wraps an existing zap logger. Level filtering is applied by the
// wrapper on top of whatever the core enables.
func NewFromZap(l *zap.Logger) *ZapLogger {
	z := &ZapLogger{level: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
	z.logger.Store(l.WithOptions(zap.AddCallerSkip(2)))
	return z
}

func (z *ZapLogger) build(ws zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, z.level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// Level returns the current logging level.
func (z *ZapLogger) Level() contracts.LogLevel {
	return fromZapLevel(z.level.Level())
}

// SetDestination switches output between stderr and a file. On failure the
// previous destination is kept and the error is logged.
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	z.mu.Lock()
	defer z.mu.Unlock()

	switch dest {
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			z.Error("file log destination requires a path")
			return
		}
		ws, closeFn, err := zap.Open(filePath[0])
		if err != nil {
			z.Error("failed to open log file", z.Field().String("path", filePath[0]), z.Field().Error("error", err))
			return
		}
		z.swap(z.build(ws), closeFn)
	case contracts.ConsoleLog:
		z.swap(z.build(zapcore.Lock(os.Stderr)), nil)
	default:
		z.Warn(fmt.Sprintf("unknown log destination %q", dest))
	}
}

func (z *ZapLogger) swap(l *zap.Logger, closeFn func()) {
	old := z.logger.Swap(l)
	_ = old.Sync()
	if z.closeSink != nil {
		z.closeSink()
	}
	z.closeSink = closeFn
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Load().Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}
	l := z.logger.Load()
	zf := toZapFields(fields)
	switch level {
	case zapcore.DebugLevel:
		l.Debug(msg, zf...)
	case zapcore.InfoLevel:
		l.Info(msg, zf...)
	case zapcore.WarnLevel:
		l.Warn(msg, zf...)
	case zapcore.ErrorLevel:
		l.Error(msg, zf...)
	case zapcore.FatalLevel:
		l.Fatal(msg, zf...)
	}
}

// contracts.LogLevel shares zapcore's numbering for the levels it defines.
func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch {
	case level <= contracts.DebugLevel:
		return zapcore.DebugLevel
	case level >= contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.Level(level)
	}
}

// fromZapLevel folds zap's panic levels into FatalLevel.
func fromZapLevel(level zapcore.Level) contracts.LogLevel {
	if level >= zapcore.DPanicLevel {
		return contracts.FatalLevel
	}
	return contracts.LogLevel(level)
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok && f.key != "" {
			out = append(out, f.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	key   string
	field zap.Field
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return &zapField{key, zap.Bool(key, val)}
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return &zapField{key, zap.Int(key, val)}
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return &zapField{key, zap.Float64(key, val)}
}

func (f *zapField) String(key string, val string) contracts.Field {
	return &zapField{key, zap.String(key, val)}
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return &zapField{key, zap.Time(key, val)}
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return &zapField{key, zap.Int64(key, val)}
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return &zapField{key, zap.NamedError(key, val)}
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return &zapField{key, zap.Uint64(key, val)}
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return &zapField{key, zap.Uint8(key, val)}
}

func (f *zapField) Binary(key string, val []byte) contracts.Field {
	return &zapField{key, zap.Binary(key, val)}
}
