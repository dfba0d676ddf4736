package logger

import (
	"context"
	"os"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

// Ключи контекста, которые попадают в записи *WithContext
const (
	requestIDKey ctxKey = "request_id"
	traceIDKey   ctxKey = "trace_id"
)

// ZapLogger адаптер для Zap, реализующий LoggerPort
type ZapLogger struct {
	logger *zap.SugaredLogger
	level  zap.AtomicLevel
}

// NewZapLogger создает новый логгер на основе Zap
func NewZapLogger(level string, isProduction bool) (interfaces.LoggerPort, error) {
	var config zap.Config

	if isProduction {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return NewFromZap(logger, config.Level), nil
}

// NewFromZap оборачивает готовый zap.Logger; level должен быть тем же, что у ядра логгера
func NewFromZap(logger *zap.Logger, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{logger: logger.Sugar(), level: level}
}

// ContextWithRequestID добавляет идентификатор запроса в контекст
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithTraceID добавляет идентификатор трассировки в контекст
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// RequestIDFromContext извлекает идентификатор запроса
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func parseLevel(levelStr string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// GetLoggerLevel преобразует строковый уровень логирования в LogLevel
func GetLoggerLevel(levelStr string) interfaces.LogLevel {
	switch levelStr {
	case "debug":
		return interfaces.DebugLevel
	case "warn":
		return interfaces.WarnLevel
	case "error":
		return interfaces.ErrorLevel
	case "fatal":
		return interfaces.FatalLevel
	case "panic":
		return interfaces.PanicLevel
	default:
		return interfaces.InfoLevel
	}
}

var levels = map[interfaces.LogLevel]zapcore.Level{
	interfaces.DebugLevel: zapcore.DebugLevel,
	interfaces.InfoLevel:  zapcore.InfoLevel,
	interfaces.WarnLevel:  zapcore.WarnLevel,
	interfaces.ErrorLevel: zapcore.ErrorLevel,
	interfaces.FatalLevel: zapcore.FatalLevel,
	interfaces.PanicLevel: zapcore.PanicLevel,
}

// convertToZapFields преобразует LogField в zap.Field
func convertToZapFields(args ...interface{}) []interface{} {
	for i, arg := range args {
		if field, ok := arg.(interfaces.LogField); ok {
			args[i] = zap.Any(field.Key, field.Value)
		}
	}
	return args
}

// extractFieldsFromContext извлекает поля из контекста
func (z *ZapLogger) extractFieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		fields = append(fields, zap.String(string(requestIDKey), reqID))
	}

	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String(string(traceIDKey), traceID))
	}

	return fields
}

// Debug реализация интерфейса LoggerPort
func (z *ZapLogger) Debug(msg string, args ...interface{}) {
	z.logger.Debugw(msg, convertToZapFields(args...)...)
}

// Info реализация интерфейса LoggerPort
func (z *ZapLogger) Info(msg string, args ...interface{}) {
	z.logger.Infow(msg, convertToZapFields(args...)...)
}

// Warn реализация интерфейса LoggerPort
func (z *ZapLogger) Warn(msg string, args ...interface{}) {
	z.logger.Warnw(msg, convertToZapFields(args...)...)
}

// Error реализация интерфейса LoggerPort
func (z *ZapLogger) Error(msg string, args ...interface{}) {
	z.logger.Errorw(msg, convertToZapFields(args...)...)
}

// Fatal реализация интерфейса LoggerPort
func (z *ZapLogger) Fatal(msg string, args ...interface{}) {
	z.logger.Fatalw(msg, convertToZapFields(args...)...)
	os.Exit(1)
}

// DebugWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {
	z.logger.Debugw(msg, append(convertToZapFields(args...), z.extractFieldsFromContext(ctx)...)...)
}

// InfoWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{}) {
	z.logger.Infow(msg, append(convertToZapFields(args...), z.extractFieldsFromContext(ctx)...)...)
}

// WarnWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{}) {
	z.logger.Warnw(msg, append(convertToZapFields(args...), z.extractFieldsFromContext(ctx)...)...)
}

// ErrorWithContext реализация интерфейса LoggerPort
func (z *ZapLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {
	z.logger.Errorw(msg, append(convertToZapFields(args...), z.extractFieldsFromContext(ctx)...)...)
}

// WithFields реализация интерфейса LoggerPort
func (z *ZapLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort {
	zapFields := make([]interface{}, 0, len(fields)*2)
	for _, field := range fields {
		zapFields = append(zapFields, field.Key, field.Value)
	}
	return &ZapLogger{logger: z.logger.With(zapFields...), level: z.level}
}

// WithField реализация интерфейса LoggerPort
func (z *ZapLogger) WithField(key string, value interface{}) interfaces.LoggerPort {
	return &ZapLogger{logger: z.logger.With(key, value), level: z.level}
}

// WithTraceID реализация интерфейса LoggerPort
func (z *ZapLogger) WithTraceID(traceID string) interfaces.LoggerPort {
	return z.WithField(string(traceIDKey), traceID)
}

// SetLevel меняет уровень для этого логгера и всех производных от него
func (z *ZapLogger) SetLevel(level interfaces.LogLevel) {
	zl, ok := levels[level]
	if !ok {
		zl = zapcore.InfoLevel
	}
	z.level.SetLevel(zl)
}

// GetLevel реализация интерфейса LoggerPort
func (z *ZapLogger) GetLevel() interfaces.LogLevel {
	current := z.level.Level()
	for level, zl := range levels {
		if zl == current {
			return level
		}
	}
	return interfaces.InfoLevel
}

// Sync реализация интерфейса LoggerPort
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}
