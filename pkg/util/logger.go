package util

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"record-verify/config"
)

// InitLogger 构建全局 zap 日志，之后通过 zap.S() 使用
func InitLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	if cfg == nil {
		cfg = config.NewDefaultLogConfig()
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// ParseLevel 未知级别按 info 处理
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
