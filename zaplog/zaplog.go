// Package zaplog adapts go.uber.org/zap to prefstore.Logger.
package zaplog

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/suyash-sneo/prefstore"
)

type logger struct {
	z *zap.Logger
}

// New wraps z. A nil z yields a no-op logger.
func New(z *zap.Logger) prefstore.Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return logger{z: z}
}

// NewConsole returns a zap logger writing human-readable lines to w.
func NewConsole(w io.Writer, level zapcore.Level) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	config.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	))
}

// NewJSON returns a zap logger writing JSON lines to w.
func NewJSON(w io.Writer, level zapcore.Level) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(config),
		zapcore.Lock(zapcore.AddSync(w)),
		level,
	))
}

// ParseLevel maps a level name ("debug", "info", ...) to a zap level. The
// empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(s)
}

func (l logger) Debug(msg string, fields ...prefstore.Field) { l.z.Debug(msg, convert(fields)...) }
func (l logger) Info(msg string, fields ...prefstore.Field)  { l.z.Info(msg, convert(fields)...) }
func (l logger) Warn(msg string, fields ...prefstore.Field)  { l.z.Warn(msg, convert(fields)...) }
func (l logger) Error(msg string, fields ...prefstore.Field) { l.z.Error(msg, convert(fields)...) }

func convert(fields []prefstore.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[i] = zap.NamedError(f.Key, err)
			continue
		}
		out[i] = zap.Any(f.Key, f.Value)
	}
	return out
}
