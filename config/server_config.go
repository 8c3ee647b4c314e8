package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SemanticConfig 外部语义检查服务
type SemanticConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	Endpoint   string        `json:"endpoint" yaml:"endpoint"`
	APIKey     string        `json:"apiKey" yaml:"apiKey"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	BaseDelay  time.Duration `json:"baseDelay" yaml:"baseDelay"`
}

func (s *SemanticConfig) Validate() []error {
	var errs = make([]error, 0)
	if s.Enabled && strings.TrimSpace(s.Endpoint) == "" {
		errs = append(errs, errors.Errorf("启用语义检查时 endpoint 不能为空"))
	}
	if s.MaxRetries < 0 {
		errs = append(errs, errors.Errorf("maxRetries 不能为负数"))
	}
	return errs
}

func NewDefaultSemanticConfig() *SemanticConfig {
	return &SemanticConfig{
		Timeout:    10 * time.Second,
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
	}
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`
	Mode            string        `json:"mode" yaml:"mode"` // debug / release / test
	ReadTimeout     time.Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

func (s *ServerConfig) Validate() []error {
	var errs = make([]error, 0)
	if s.Addr == "" {
		errs = append(errs, errors.Errorf("服务监听地址不能为空"))
	}
	switch s.Mode {
	case "", "debug", "release", "test":
	default:
		errs = append(errs, errors.Errorf("未知的服务模式: %s", s.Mode))
	}
	return errs
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:            ":8080",
		Mode:            "release",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// LogConfig 日志
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

func (l *LogConfig) Validate() []error {
	var errs = make([]error, 0)
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.Errorf("未知的日志级别: %s", l.Level))
	}
	return errs
}

func NewDefaultLogConfig() *LogConfig {
	return &LogConfig{Level: "info"}
}
