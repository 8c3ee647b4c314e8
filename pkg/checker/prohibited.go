package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"record-verify/pkg/model"
)

const NameProhibited = "prohibited"

type prohibitedRule struct {
	name    string
	pattern *regexp.Regexp
	message string
}

// 禁止记载事项：校外机构、校外比赛、论文/专利、外语考试成绩、父母社会经济地位
var builtinProhibited = []prohibitedRule{
	{"university", regexp.MustCompile(`[가-힣A-Za-z]{2,}대학교`), "특정 대학명은 기재할 수 없습니다."},
	{"academy", regexp.MustCompile(`[가-힣]{2,}(학원|교습소|과외)`), "사교육 기관명은 기재할 수 없습니다."},
	{"language_test", regexp.MustCompile(`(?i)(토익|토플|텝스|TOEIC|TOEFL|TEPS|IELTS|HSK|JLPT|JPT|DELF)`), "공인어학성적은 기재할 수 없습니다."},
	{"paper_patent", regexp.MustCompile(`(논문|특허|출원|등재)`), "논문·특허 관련 내용은 기재할 수 없습니다."},
	{"outside_award", regexp.MustCompile(`(교외|외부)\s*(대회|경시대회|올림피아드|수상)`), "교외 대회 및 수상 실적은 기재할 수 없습니다."},
	{"parent_status", regexp.MustCompile(`(아버지|어머니|부모님?|아빠|엄마)[^.]{0,12}(의사|변호사|교수|판사|검사|사업가|대표|공무원|국회의원)`), "부모의 사회·경제적 지위를 암시하는 내용은 기재할 수 없습니다."},
	{"overseas_volunteer", regexp.MustCompile(`해외\s*봉사`), "해외 봉사활동 실적은 기재할 수 없습니다."},
}

// ProhibitedChecker 禁止记载的机构名与关键字检查
type ProhibitedChecker struct {
	rules []prohibitedRule
}

// NewProhibitedChecker 内置规则加上额外关键字（按字面匹配）
func NewProhibitedChecker(extra ...string) (*ProhibitedChecker, error) {
	rules := append([]prohibitedRule(nil), builtinProhibited...)
	for _, kw := range extra {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(regexp.QuoteMeta(kw))
		if err != nil {
			return nil, errors.Wrapf(err, "关键字 %q 无法编译", kw)
		}
		rules = append(rules, prohibitedRule{
			name:    "keyword",
			pattern: re,
			message: fmt.Sprintf("기재 금지어 '%s'가 포함되어 있습니다.", kw),
		})
	}
	return &ProhibitedChecker{rules: rules}, nil
}

func (c *ProhibitedChecker) Name() string { return NameProhibited }

func (c *ProhibitedChecker) ShouldApply(cc model.CellContext) bool {
	return !cc.IsHeader && cc.Kind.Tier() != model.RiskExcluded
}

func (c *ProhibitedChecker) Check(_ context.Context, text string, _ model.CellContext) ([]model.Finding, error) {
	var findings []model.Finding
	for _, rule := range c.rules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			findings = append(findings, model.Finding{
				Kind:       model.KindProhibited,
				Severity:   model.SeverityError,
				Message:    rule.message,
				Suggestion: "해당 표현을 삭제하거나 일반적인 표현으로 수정",
				Highlight:  highlight(text, loc),
			})
		}
	}
	return findings, nil
}
