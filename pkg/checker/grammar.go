package checker

import (
	"context"
	"regexp"
	"strings"

	"record-verify/pkg/model"
)

const NameGrammar = "grammar"

var (
	multiSpace       = regexp.MustCompile(` {2,}`)
	repeatedPunct    = regexp.MustCompile(`[.,!?]{2,}`)
	spaceBeforePunct = regexp.MustCompile(` +[.,!?]`)
)

var bracketPairs = [][2]rune{{'(', ')'}, {'[', ']'}, {'「', '」'}, {'『', '』'}, {'<', '>'}}

// 叙述型区域文本至少这么长才要求句末标点
const sentenceEndMinRunes = 20

// GrammarChecker 空格与标点的启发式检查
type GrammarChecker struct{}

func NewGrammarChecker() *GrammarChecker {
	return &GrammarChecker{}
}

func (c *GrammarChecker) Name() string { return NameGrammar }

func (c *GrammarChecker) ShouldApply(cc model.CellContext) bool {
	return !cc.IsHeader && cc.Kind.Tier() != model.RiskExcluded
}

func (c *GrammarChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	var findings []model.Finding

	if loc := multiSpace.FindStringIndex(text); loc != nil {
		findings = append(findings, model.Finding{
			Kind:       model.KindGrammar,
			Severity:   model.SeverityInfo,
			Message:    "연속된 공백이 있습니다.",
			Suggestion: multiSpace.ReplaceAllString(text, " "),
			Highlight:  highlight(text, loc),
		})
	}
	if loc := repeatedPunct.FindStringIndex(text); loc != nil {
		findings = append(findings, model.Finding{
			Kind:       model.KindGrammar,
			Severity:   model.SeverityInfo,
			Message:    "문장 부호가 반복되었습니다.",
			Suggestion: repeatedPunct.ReplaceAllStringFunc(text, func(m string) string { return m[:1] }),
			Highlight:  highlight(text, loc),
		})
	}
	if loc := spaceBeforePunct.FindStringIndex(text); loc != nil {
		findings = append(findings, model.Finding{
			Kind:       model.KindGrammar,
			Severity:   model.SeverityInfo,
			Message:    "문장 부호 앞에 공백이 있습니다.",
			Suggestion: spaceBeforePunct.ReplaceAllStringFunc(text, strings.TrimSpace),
			Highlight:  highlight(text, loc),
		})
	}
	for _, pair := range bracketPairs {
		if strings.Count(text, string(pair[0])) != strings.Count(text, string(pair[1])) {
			findings = append(findings, model.Finding{
				Kind:     model.KindGrammar,
				Severity: model.SeverityWarning,
				Message:  "괄호 '" + string(pair[0]) + string(pair[1]) + "'의 짝이 맞지 않습니다.",
			})
			break
		}
	}

	trimmed := strings.TrimSpace(text)
	if cc.Kind.Narrative() && len([]rune(trimmed)) >= sentenceEndMinRunes && endsWithHangul(trimmed) {
		findings = append(findings, model.Finding{
			Kind:       model.KindGrammar,
			Severity:   model.SeverityInfo,
			Message:    "문장이 마침표로 끝나지 않았습니다.",
			Suggestion: trimmed + ".",
		})
	}
	return findings, nil
}

func endsWithHangul(s string) bool {
	runes := []rune(s)
	return len(runes) > 0 && isHangul(runes[len(runes)-1])
}
