// Package logger provides opinionated logging capabilities for AgroSolve
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a console logger on stdout.
func NewLogger(debug bool) *zap.Logger {
	return NewLoggerTo(os.Stdout, debug)
}

// NewLoggerTo returns a console logger writing to w. The terminal front-ends
// log to stderr so that replies printed on stdout stay clean.
func NewLoggerTo(w io.Writer, debug bool) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		level,
	)

	return zap.New(core, zap.AddCaller())
}
