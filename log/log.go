package log

import (
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func init() {
	if l, err := zap.NewProduction(); err == nil {
		logger = l
	}
}

// SetLogger replaces the package logger, e.g. with the host app's zap instance.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

func Info(msg string, fields ...zap.Field) {
	logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger.Error(msg, fields...)
}

func Sync() {
	logger.Sync()
}
