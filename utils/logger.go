package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger 初始化全局 zap Logger
// env: "dev" 控制台彩色输出，其余为生产 JSON 输出
func InitLogger(env string) {
	var config zap.Config

	if env == "dev" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	logger, err := config.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	// 替换全局 logger，其他地方直接用 zap.L() / zap.S()
	zap.ReplaceGlobals(logger)
}
