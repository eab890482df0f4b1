package logger

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// Init builds the global logger once: the production config when
// production is true, the development config otherwise.
func Init(production bool) {
	once.Do(func() {
		l, err := build(production)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		logger = l
	})
}

func build(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// L returns the global logger. Used before Init, it falls back to APP_ENV.
func L() *zap.Logger {
	Init(os.Getenv("APP_ENV") == "production")
	return logger
}

// Use swaps the global logger. Tests pass zap.NewNop() here.
func Use(l *zap.Logger) {
	once.Do(func() {})
	logger = l
}

// Sync flushes buffered entries.
func Sync() {
	if logger == nil {
		return
	}
	_ = logger.Sync()
}

func Info(msg string, fields ...zapcore.Field) {
	L().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	L().Warn(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	L().Error(msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	L().Debug(msg, fields...)
}

func Fatal(msg string, fields ...zapcore.Field) {
	L().Fatal(msg, fields...)
}
