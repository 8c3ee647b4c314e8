package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"record-verify/pkg/checker"
	"record-verify/pkg/corpus"
)

// SuiteFactory 为每次校验组装检查器套件；batch 作用域下每次使用新的语料库，
// process 作用域下所有套件共享同一个语料库
type SuiteFactory struct {
	registry  *checker.Registry
	names     []string
	deps      checker.Deps
	scope     corpus.Scope
	storeOpts corpus.Options
	shared    *corpus.Store
	enabled   []string
}

// NewSuiteFactory 创建工厂并试构造一次，配置错误在启动时暴露
func NewSuiteFactory(registry *checker.Registry, names []string, deps checker.Deps, scope corpus.Scope, storeOpts corpus.Options) (*SuiteFactory, error) {
	if registry == nil {
		registry = checker.NewRegistry()
	}
	f := &SuiteFactory{
		registry:  registry,
		names:     append([]string(nil), names...),
		deps:      deps,
		scope:     scope,
		storeOpts: storeOpts,
	}
	if scope == corpus.ScopeProcess {
		f.shared = deps.Store
		if f.shared == nil {
			f.shared = corpus.NewStore(storeOpts)
		}
	}
	suite, err := f.New()
	if err != nil {
		return nil, errors.Wrap(err, "检查器配置错误")
	}
	f.enabled = suite.Names()
	return f, nil
}

// New 组装一个套件
func (f *SuiteFactory) New() (*checker.Suite, error) {
	deps := f.deps
	if f.shared != nil {
		deps.Store = f.shared
	} else {
		deps.Store = corpus.NewStore(f.storeOpts)
	}
	return f.registry.Build(f.names, deps)
}

// Scope 语料库作用域
func (f *SuiteFactory) Scope() corpus.Scope {
	return f.scope
}

// Names 实际启用的检查器，按执行顺序
func (f *SuiteFactory) Names() []string {
	return append([]string(nil), f.enabled...)
}

// Forget 重新校验文档前移除其在共享语料库中的旧条目，batch 作用域下无需处理
func (f *SuiteFactory) Forget(documentID string) {
	if f == nil || f.shared == nil {
		return
	}
	if n := f.shared.Forget(documentID); n > 0 {
		zap.S().Debugf("文档 %s 重新校验，移除旧语料 %d 条", documentID, n)
	}
}
