package cmd

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bootstrapLogger writes to stderr until the configured logger exists, and is
// the only logger of the inspection commands.
// bootstrapLogger 启动阶段日志器
var bootstrapLogger = newBootstrapLogger()

// newBootstrapLogger logs at info, or debug when DEBUG is set.
func newBootstrapLogger() *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if _, ok := os.LookupEnv("DEBUG"); ok {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller())
}
