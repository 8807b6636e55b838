// Package zap builds a *zap.Logger from the shared logger config, console
// encoded and leveled the way an interactive CLI run wants it.
package zap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lintang-b-s/kwayrefine/pkg/logger/config"
)

func New(cfg config.Configuration) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(os.Stdout),
		zapLevel(cfg.Level),
	)
	return zap.New(core, zap.AddCaller()), nil
}

func zapLevel(level int) zapcore.Level {
	switch {
	case level <= config.DEBUG_LEVEL:
		return zapcore.DebugLevel
	case level == config.INFO_LEVEL:
		return zapcore.InfoLevel
	case level == config.WARN_LEVEL:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
