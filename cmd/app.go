package cmd

import (
	"context"
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"record-verify/config"
	"record-verify/pkg/checker"
	"record-verify/pkg/corpus"
	"record-verify/pkg/db"
	"record-verify/pkg/model"
	"record-verify/pkg/service"
	"record-verify/pkg/source"
	"record-verify/pkg/util"
)

// app 一次命令运行所需的服务
type app struct {
	cfg       *config.GlobalConfig
	source    source.Source
	validator *service.Validator
	batches   *service.BatchCoordinator
	archive   *service.ArchiveService
}

// loadConfig 读取并校验配置，随后按配置重建日志
func loadConfig(path string) (*config.GlobalConfig, error) {
	cfg, err := config.TryLoadFromDisk(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "读取本地配置文件错误")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, pkgerrors.Wrap(errors.Join(errs...), "本地配置文件验证错误")
	}
	if _, err := util.InitLogger(cfg.LogConfig); err != nil {
		zap.S().Warnf("按配置初始化日志失败，继续使用默认日志: %v", err)
	}
	return cfg, nil
}

// openSource 指定 input 时从 JSON 文件读取，否则读取 MySQL 中的上传记录
func openSource(cfg *config.GlobalConfig, input string) (source.Source, error) {
	if input != "" {
		src, err := source.LoadFile(input)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	if cfg.MySQLConfig == nil {
		return nil, pkgerrors.New("未指定输入文件且 MySQL 配置未设置")
	}
	if err := db.InitTiDB(cfg); err != nil {
		return nil, err
	}
	return source.NewGormSource(db.GetTiDB()), nil
}

func buildApp(ctx context.Context, cfg *config.GlobalConfig, src source.Source) (*app, error) {
	vc := orDefault(cfg.ValidatorConfig, config.NewDefaultValidatorConfig)
	cc := orDefault(cfg.CorpusConfig, config.NewDefaultCorpusConfig)
	bc := orDefault(cfg.BatchConfig, config.NewDefaultBatchConfig)
	sc := orDefault(cfg.SemanticConfig, config.NewDefaultSemanticConfig)

	deps := checker.Deps{
		Qualifier: corpus.Qualifier{
			MinLength:      cc.MinLength,
			MinHangulRatio: cc.MinHangulRatio,
			Boilerplate:    corpus.NewBoilerplate(cc.Boilerplate...),
		},
		MinSentenceLength: vc.MinSentenceLength,
		ProhibitedExtra:   vc.ProhibitedKeywords,
		Semantic: checker.SemanticOptions{
			Enabled:    sc.Enabled,
			Endpoint:   sc.Endpoint,
			APIKey:     sc.APIKey,
			Timeout:    sc.Timeout,
			MaxRetries: sc.MaxRetries,
			BaseDelay:  sc.BaseDelay,
		},
		HTTPClient: &http.Client{},
	}
	storeOpts := corpus.Options{
		MaxAge:       cc.MaxAge,
		MaxPerGroup:  cc.MaxPerGroup,
		CleanupEvery: cc.CleanupEvery,
	}
	suites, err := service.NewSuiteFactory(checker.NewRegistry(), vc.Checkers, deps, corpus.ParseScope(cc.Scope), storeOpts)
	if err != nil {
		return nil, err
	}
	priority := model.BatchOptions{Priority: model.Priority(vc.Priority)}.Normalize(bc.MaxConcurrency).Priority
	v := service.NewValidator(src, suites, service.WithYieldEvery(vc.YieldEvery), service.WithPriority(priority))

	a := &app{cfg: cfg, source: src, validator: v}
	var onDone []service.BatchDoneFunc
	if cfg.DuckDBConfig != nil && cfg.DuckDBConfig.Archive {
		if err := db.InitDuckDB(cfg.DuckDBConfig); err != nil {
			return nil, pkgerrors.Wrap(err, "DuckDB 连接错误")
		}
		a.archive = service.NewArchiveService(db.GetDuckDBWithContext(ctx))
		if err := a.archive.EnsureTables(ctx); err != nil {
			return nil, err
		}
		onDone = append(onDone, a.archive.OnBatchDone)
	}
	a.batches = service.NewBatchCoordinator(v, suites, bc.MaxConcurrency, onDone...)
	zap.S().Infof("检查器: %v, 语料库作用域: %s", suites.Names(), suites.Scope())
	return a, nil
}

func orDefault[T any](v *T, def func() *T) *T {
	if v == nil {
		return def()
	}
	return v
}
