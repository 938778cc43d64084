// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger on stderr and installs it as the global
// logger. Only warnings and errors are written unless verbose is set.
func New(verbose bool) (*zap.Logger, error) {
	return NewTo(os.Stderr, verbose)
}

// NewTo is New with the output set to w.
func NewTo(w io.Writer, verbose bool) (*zap.Logger, error) {
	if w == nil {
		return nil, fmt.Errorf("no log output")
	}

	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	if !verbose {
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)

	var opts []zap.Option
	if verbose {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(core, opts...)
	zap.ReplaceGlobals(logger)
	return logger, nil
}
