// Package logging builds the application zap logger: a colored console core and an
// optional rotating file core.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DeRuina/timberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the logger outputs.
type Config struct {
	Level string
	// File is the rotating log file. Empty disables file output.
	File           string
	MaxSizeMB      int
	MaxBackups     int
	MaxAgeDays     int
	Compress       bool
	RotateInterval time.Duration
	// Console receives the human-readable stream; nil means stderr.
	Console io.Writer
}

func levelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch level {
	case zapcore.DebugLevel:
		color = "\x1b[35m"
	case zapcore.InfoLevel:
		color = "\x1b[32m"
	case zapcore.WarnLevel:
		color = "\x1b[33m"
	default:
		color = "\x1b[31m"
	}
	enc.AppendString(color + "[" + level.CapitalString() + "]\x1b[0m")
}

// EncoderConfigs returns the console and file encoder configs.
func EncoderConfigs() (zapcore.EncoderConfig, zapcore.EncoderConfig) {
	console := zap.NewDevelopmentEncoderConfig()
	console.EncodeLevel = colorLevelEncoder
	console.EncodeTime = zapcore.ISO8601TimeEncoder
	console.EncodeCaller = zapcore.ShortCallerEncoder

	file := zap.NewProductionEncoderConfig()
	file.EncodeLevel = levelEncoder
	file.TimeKey = "timestamp"
	file.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	file.EncodeCaller = zapcore.ShortCallerEncoder

	return console, file
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

// New builds the logger. The returned closer flushes and closes the rotating file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	consoleCfg, fileCfg := EncoderConfigs()
	var console io.Writer = os.Stderr
	if cfg.Console != nil {
		console = cfg.Console
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	var rotator *timberjack.Logger
	if cfg.File != "" {
		rotator = &timberjack.Logger{
			Filename:         cfg.File,
			MaxSize:          cfg.MaxSizeMB,
			MaxBackups:       cfg.MaxBackups,
			MaxAge:           cfg.MaxAgeDays,
			Compress:         cfg.Compress,
			LocalTime:        true,
			RotationInterval: cfg.RotateInterval,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileCfg), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	closer := func() error {
		_ = logger.Sync()
		if rotator != nil {
			return rotator.Close()
		}
		return nil
	}
	return logger, closer, nil
}
