package logger

import (
	"context"
	"testing"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	atom := zap.NewAtomicLevelAt(level)
	core, logs := observer.New(atom)
	return NewFromZap(zap.New(core), atom), logs
}

func TestZapLogger_LogFieldsAreExpanded(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	log.Info("товар отправлен", interfaces.LogField{Key: "product_id", Value: int64(42)}, "action", "upsert")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(42), fields["product_id"])
	assert.Equal(t, "upsert", fields["action"])
}

func TestZapLogger_ContextFields(t *testing.T) {
	log, logs := newObservedLogger(zapcore.DebugLevel)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTraceID(ctx, "trace-1")
	log.ErrorWithContext(ctx, "ошибка")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
}

func TestZapLogger_SetLevelAffectsDerivedLoggers(t *testing.T) {
	log, logs := newObservedLogger(zapcore.InfoLevel)
	child := log.WithField("component", "bulk")

	child.Debug("не должно попасть")
	assert.Equal(t, 0, logs.Len())

	log.SetLevel(interfaces.DebugLevel)
	assert.Equal(t, interfaces.DebugLevel, child.GetLevel())

	child.Debug("теперь видно")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "bulk", logs.All()[0].ContextMap()["component"])
}

func TestGetLoggerLevel(t *testing.T) {
	assert.Equal(t, interfaces.DebugLevel, GetLoggerLevel("debug"))
	assert.Equal(t, interfaces.ErrorLevel, GetLoggerLevel("error"))
	assert.Equal(t, interfaces.InfoLevel, GetLoggerLevel("garbage"))
}
