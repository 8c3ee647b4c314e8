package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ValidatorConfig 检查器顺序与单元格遍历参数
type ValidatorConfig struct {
	Checkers           []string `json:"checkers" yaml:"checkers"` // 为空时使用默认顺序
	Priority           string   `json:"priority" yaml:"priority"` // 单文档校验优先级
	YieldEvery         int      `json:"yieldEvery" yaml:"yieldEvery"`
	MinSentenceLength  int      `json:"minSentenceLength" yaml:"minSentenceLength"`
	ProhibitedKeywords []string `json:"prohibitedKeywords" yaml:"prohibitedKeywords"`
}

func (v *ValidatorConfig) Validate() []error {
	var errs = make([]error, 0)
	switch strings.ToLower(v.Priority) {
	case "", "speed", "accuracy", "balanced":
	default:
		errs = append(errs, errors.Errorf("未知的优先级: %s", v.Priority))
	}
	if v.YieldEvery < 0 {
		errs = append(errs, errors.Errorf("yieldEvery 不能为负数"))
	}
	if v.MinSentenceLength < 0 {
		errs = append(errs, errors.Errorf("minSentenceLength 不能为负数"))
	}
	return errs
}

func NewDefaultValidatorConfig() *ValidatorConfig {
	return &ValidatorConfig{
		Priority:          "balanced",
		YieldEvery:        64,
		MinSentenceLength: 15,
	}
}

// CorpusConfig 重复检测语料库
type CorpusConfig struct {
	Scope          string        `json:"scope" yaml:"scope"` // batch 或 process
	MaxAge         time.Duration `json:"maxAge" yaml:"maxAge"`
	MaxPerGroup    int           `json:"maxPerGroup" yaml:"maxPerGroup"`
	CleanupEvery   int           `json:"cleanupEvery" yaml:"cleanupEvery"`
	MinLength      int           `json:"minLength" yaml:"minLength"`
	MinHangulRatio float64       `json:"minHangulRatio" yaml:"minHangulRatio"`
	Boilerplate    []string      `json:"boilerplate" yaml:"boilerplate"` // 追加的套话
}

func (c *CorpusConfig) Validate() []error {
	var errs = make([]error, 0)
	switch strings.ToLower(c.Scope) {
	case "", "batch", "process":
	default:
		errs = append(errs, errors.Errorf("未知的语料库作用域: %s", c.Scope))
	}
	if c.MinHangulRatio < 0 || c.MinHangulRatio > 1 {
		errs = append(errs, errors.Errorf("minHangulRatio 必须在 0-1 之间"))
	}
	if c.MaxPerGroup < 0 || c.CleanupEvery < 0 || c.MinLength < 0 {
		errs = append(errs, errors.Errorf("语料库参数不能为负数"))
	}
	return errs
}

func NewDefaultCorpusConfig() *CorpusConfig {
	return &CorpusConfig{
		Scope:          "batch",
		MaxAge:         24 * time.Hour,
		MaxPerGroup:    5000,
		CleanupEvery:   500,
		MinLength:      20,
		MinHangulRatio: 0.5,
	}
}

// BatchConfig 批量校验
type BatchConfig struct {
	MaxConcurrency int `json:"maxConcurrency" yaml:"maxConcurrency"` // 请求未指定时的默认并发
}

func (b *BatchConfig) Validate() []error {
	var errs = make([]error, 0)
	if b.MaxConcurrency < 1 || b.MaxConcurrency > 10 {
		errs = append(errs, errors.Errorf("maxConcurrency 必须在 1-10 之间"))
	}
	return errs
}

func NewDefaultBatchConfig() *BatchConfig {
	return &BatchConfig{MaxConcurrency: 3}
}
