package security

import (
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/book-market-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerAdapter_ConvertsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Warn("completion failed",
		ports.String("payment_id", "pay_1"),
		ports.Int64("sales", 3),
		ports.Duration("elapsed", 2*time.Second),
		ports.Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "completion failed", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "pay_1", fields["payment_id"])
	assert.Equal(t, int64(3), fields["sales"])
	assert.Equal(t, 2*time.Second, fields["elapsed"])
	assert.Equal(t, "boom", fields["error"])
}

func TestZapLoggerAdapter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("hidden")
	logger.Info("info")
	logger.Error("error")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "info", logs.All()[0].Message)
	assert.Equal(t, "error", logs.All()[1].Message)
}

func TestZapLoggerAdapter_WithAndAmount(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With(ports.String("component", "payout"))

	logger.Info("payout requested", ports.Amount("amount", decimal.RequireFromString("15.4")))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "payout", fields["component"])
	assert.Equal(t, "15.40", fields["amount"])
}
