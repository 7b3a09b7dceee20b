// Package security adapts infrastructure loggers to the service logging port.
package security

import (
	"time"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLoggerAdapter writes ports.Logger calls to a zap.Logger.
type ZapLoggerAdapter struct {
	logger *zap.Logger
}

var _ ports.Logger = (*ZapLoggerAdapter)(nil)

// NewZapLogger reports the service call site rather than the adapter as the caller.
func NewZapLogger(logger *zap.Logger) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(2))}
}

// With returns an adapter that adds fields to every entry.
func (z *ZapLoggerAdapter) With(fields ...ports.Field) *ZapLoggerAdapter {
	return &ZapLoggerAdapter{logger: z.logger.With(toZap(fields)...)}
}

func (z *ZapLoggerAdapter) Debug(msg string, fields ...ports.Field) {
	z.write(zapcore.DebugLevel, msg, fields)
}

func (z *ZapLoggerAdapter) Info(msg string, fields ...ports.Field) {
	z.write(zapcore.InfoLevel, msg, fields)
}

func (z *ZapLoggerAdapter) Warn(msg string, fields ...ports.Field) {
	z.write(zapcore.WarnLevel, msg, fields)
}

func (z *ZapLoggerAdapter) Error(msg string, fields ...ports.Field) {
	z.write(zapcore.ErrorLevel, msg, fields)
}

// write skips field conversion entirely when the level is disabled.
func (z *ZapLoggerAdapter) write(level zapcore.Level, msg string, fields []ports.Field) {
	if ce := z.logger.Check(level, msg); ce != nil {
		ce.Write(toZap(fields)...)
	}
}

func toZap(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out[i] = zap.String(f.Key, v)
		case int:
			out[i] = zap.Int(f.Key, v)
		case int64:
			out[i] = zap.Int64(f.Key, v)
		case bool:
			out[i] = zap.Bool(f.Key, v)
		case time.Duration:
			out[i] = zap.Duration(f.Key, v)
		case error:
			out[i] = zap.NamedError(f.Key, v)
		default:
			out[i] = zap.Any(f.Key, v)
		}
	}
	return out
}
