package checker

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"record-verify/pkg/corpus"
	"record-verify/pkg/duplicate"
)

// DefaultOrder 默认执行顺序：先廉价规则，再重复检测，最后外部语义检查
var DefaultOrder = []string{
	NameScriptMix,
	NameProhibited,
	NameGrammar,
	NameFormat,
	duplicate.NameDocument,
	duplicate.NameSection,
	duplicate.NameStudent,
	duplicate.NameSentence,
	NameSemantic,
}

// Deps 构造检查器所需的共享依赖
type Deps struct {
	Store             *corpus.Store
	Qualifier         corpus.Qualifier
	MinSentenceLength int
	ProhibitedExtra   []string
	Semantic          SemanticOptions
	HTTPClient        *http.Client
}

// Factory 检查器工厂；返回 nil 检查器表示按配置禁用
type Factory func(d Deps) (Checker, error)

// Registry 检查器工厂注册表（显式、零反射）
type Registry struct {
	factories map[string]Factory
}

// NewRegistry 注册全部内置检查器
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameScriptMix, func(Deps) (Checker, error) { return NewScriptMixChecker(), nil })
	r.Register(NameProhibited, func(d Deps) (Checker, error) { return NewProhibitedChecker(d.ProhibitedExtra...) })
	r.Register(NameGrammar, func(Deps) (Checker, error) { return NewGrammarChecker(), nil })
	r.Register(NameFormat, func(Deps) (Checker, error) { return NewFormatChecker(), nil })
	r.Register(duplicate.NameDocument, func(d Deps) (Checker, error) {
		if d.Store == nil {
			return nil, errors.New("重复检查需要语料库")
		}
		return duplicate.NewDocumentChecker(d.Store, d.Qualifier), nil
	})
	r.Register(duplicate.NameSection, func(d Deps) (Checker, error) {
		if d.Store == nil {
			return nil, errors.New("重复检查需要语料库")
		}
		return duplicate.NewSectionChecker(d.Store, d.Qualifier), nil
	})
	r.Register(duplicate.NameStudent, func(d Deps) (Checker, error) {
		if d.Store == nil {
			return nil, errors.New("重复检查需要语料库")
		}
		return duplicate.NewStudentChecker(d.Store, d.Qualifier), nil
	})
	r.Register(duplicate.NameSentence, func(d Deps) (Checker, error) {
		if d.Store == nil {
			return nil, errors.New("重复检查需要语料库")
		}
		return duplicate.NewSentenceChecker(d.Store, d.Qualifier.Boilerplate, d.MinSentenceLength), nil
	})
	r.Register(NameSemantic, func(d Deps) (Checker, error) {
		if !d.Semantic.Enabled || strings.TrimSpace(d.Semantic.Endpoint) == "" {
			return nil, nil
		}
		return NewSemanticChecker(d.Semantic, d.HTTPClient), nil
	})
	return r
}

// Register 注册或覆盖一个工厂
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build 按 names 的顺序构造套件；names 为空时使用 DefaultOrder
func (r *Registry) Build(names []string, d Deps) (*Suite, error) {
	if len(names) == 0 {
		names = DefaultOrder
	}
	seen := make(map[string]struct{}, len(names))
	checkers := make([]Checker, 0, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if _, dup := seen[name]; dup {
			return nil, errors.Errorf("检查器重复配置: %s", name)
		}
		seen[name] = struct{}{}
		f, ok := r.factories[name]
		if !ok {
			return nil, errors.Errorf("未知检查器: %s", name)
		}
		c, err := f(d)
		if err != nil {
			return nil, errors.Wrapf(err, "构造检查器 %s 失败", name)
		}
		if c != nil {
			checkers = append(checkers, c)
		}
	}
	return NewSuite(checkers...), nil
}
