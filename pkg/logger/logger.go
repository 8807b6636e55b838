package logger

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lintang-b-s/kwayrefine/pkg/logger/config"
	myZap "github.com/lintang-b-s/kwayrefine/pkg/logger/zap"
)

func New() (*zap.Logger, error) {
	viper.SetDefault("LOG_LEVEL", config.INFO_LEVEL)
	viper.SetDefault("LOG_TIME_FORMAT", time.RFC3339Nano)

	cfg := config.Configuration{
		Level:      viper.GetInt("LOG_LEVEL"),
		TimeFormat: viper.GetString("LOG_TIME_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return myZap.New(cfg)
}
