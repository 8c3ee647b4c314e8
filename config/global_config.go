package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type IConfig interface {
	Validate() []error
}

type GlobalConfig struct {
	DuckDBConfig    *DuckDBConfig    `json:"duckdb" yaml:"duckdb"`
	MySQLConfig     *MySQLConfig     `json:"mysql" yaml:"mysql"` // 为空时只能从文件读取文档
	ValidatorConfig *ValidatorConfig `json:"validator" yaml:"validator"`
	CorpusConfig    *CorpusConfig    `json:"corpus" yaml:"corpus"`
	BatchConfig     *BatchConfig     `json:"batch" yaml:"batch"`
	SemanticConfig  *SemanticConfig  `json:"semantic" yaml:"semantic"`
	ServerConfig    *ServerConfig    `json:"server" yaml:"server"`
	LogConfig       *LogConfig       `json:"log" yaml:"log"`
}

func (g *GlobalConfig) Validate() []error {
	var errs = make([]error, 0)
	if g.DuckDBConfig != nil {
		errs = append(errs, g.DuckDBConfig.Validate()...)
	}
	if g.MySQLConfig != nil {
		errs = append(errs, g.MySQLConfig.Validate()...)
	}
	if g.ValidatorConfig != nil {
		errs = append(errs, g.ValidatorConfig.Validate()...)
	}
	if g.CorpusConfig != nil {
		errs = append(errs, g.CorpusConfig.Validate()...)
	}
	if g.BatchConfig != nil {
		errs = append(errs, g.BatchConfig.Validate()...)
	}
	if g.SemanticConfig != nil {
		errs = append(errs, g.SemanticConfig.Validate()...)
	}
	if g.ServerConfig != nil {
		errs = append(errs, g.ServerConfig.Validate()...)
	}
	if g.LogConfig != nil {
		errs = append(errs, g.LogConfig.Validate()...)
	}
	return errs
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		DuckDBConfig:    NewDefaultDuckDBConfig(),
		ValidatorConfig: NewDefaultValidatorConfig(),
		CorpusConfig:    NewDefaultCorpusConfig(),
		BatchConfig:     NewDefaultBatchConfig(),
		SemanticConfig:  NewDefaultSemanticConfig(),
		ServerConfig:    NewDefaultServerConfig(),
		LogConfig:       NewDefaultLogConfig(),
	}
}

func TryLoadFromDisk(configFilePath string) (*GlobalConfig, error) {
	_, err := os.Stat(configFilePath)
	if err != nil {
		return nil, err
	}
	dir, file := filepath.Split(configFilePath)
	fileType := filepath.Ext(file)
	viper.AddConfigPath(dir)
	viper.SetConfigName(strings.TrimSuffix(file, fileType))
	viper.SetConfigType(strings.TrimPrefix(fileType, "."))
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
		return nil, errors.Errorf("解析配置文件错误:%s", err.Error())
	}
	cfg := NewDefaultGlobalConfig()
	if err := viper.Unmarshal(cfg, func(config *mapstructure.DecoderConfig) {
		config.TagName = strings.TrimPrefix(fileType, ".")
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}
