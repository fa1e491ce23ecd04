// Package logging builds the zap logger used by the CLI.
//
// Callers must never pass secret values as fields. Log key names, paths and
// lengths instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/comaziwa/keyprops/internal/config"
)

// Setup builds a zap.Logger writing to stderr and, when configured, to a
// log file. The caller should defer logger.Sync().
func Setup(c config.LogConfig) (*zap.Logger, error) {
	return SetupWriter(c, os.Stderr)
}

// SetupWriter is Setup with an explicit console destination
func SetupWriter(c config.LogConfig, console io.Writer) (*zap.Logger, error) {
	levelName, err := config.ValidateLogLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := config.ValidateLogFormat(c.Format)
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("failed to set log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(console), level),
	}

	if c.File != "" {
		ws, err := fileSyncer(c)
		if err != nil {
			return nil, err
		}
		// files always get JSON so they can be shipped as-is
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

func fileSyncer(c config.LogConfig) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(c.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}

	if c.Rotation.Enable {
		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    max(c.Rotation.MaxSizeMB, 1),
			MaxBackups: max(c.Rotation.MaxBackups, 1),
			MaxAge:     max(c.Rotation.MaxAgeDays, 1),
			Compress:   c.Rotation.Compress,
		}), nil
	}

	f, err := os.OpenFile(c.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", c.File, err)
	}
	return zapcore.AddSync(f), nil
}
