// Package checker 定义规则检查器契约、按配置顺序组装的检查器套件以及内置内容规则。
package checker

import (
	"context"

	"record-verify/pkg/model"
)

// Checker 对单个单元格执行一条规则。
// 不得修改 cc；内部错误返回 error 即可，由调用方记录并视为无问题。
type Checker interface {
	Name() string
	Check(ctx context.Context, text string, cc model.CellContext) ([]model.Finding, error)
}

// Applicable 可选：只在特定区域执行的检查器
type Applicable interface {
	ShouldApply(cc model.CellContext) bool
}

// Expensive 可选：耗时检查器，speed 优先级下跳过
type Expensive interface {
	Expensive() bool
}

// Suite 有序检查器列表
type Suite struct {
	checkers []Checker
}

// NewSuite 按给定顺序组装
func NewSuite(checkers ...Checker) *Suite {
	out := make([]Checker, 0, len(checkers))
	for _, c := range checkers {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Suite{checkers: out}
}

// Checkers 全部检查器
func (s *Suite) Checkers() []Checker {
	return append([]Checker(nil), s.checkers...)
}

// Names 检查器名称，按执行顺序
func (s *Suite) Names() []string {
	names := make([]string, 0, len(s.checkers))
	for _, c := range s.checkers {
		names = append(names, c.Name())
	}
	return names
}

// For 按优先级筛选：speed 跳过耗时检查器
func (s *Suite) For(priority model.Priority) []Checker {
	if priority != model.PrioritySpeed {
		return s.Checkers()
	}
	out := make([]Checker, 0, len(s.checkers))
	for _, c := range s.checkers {
		if e, ok := c.(Expensive); ok && e.Expensive() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Applies 检查器是否适用于该单元格
func Applies(c Checker, cc model.CellContext) bool {
	if a, ok := c.(Applicable); ok {
		return a.ShouldApply(cc)
	}
	return true
}
