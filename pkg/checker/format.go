package checker

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"record-verify/pkg/model"
)

const NameFormat = "format"

var (
	// 2024-03-02 / 2024/03/02
	foreignDate = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	// 2024.03.02 或 2024.3.2.，第 4 组为末尾的点
	dottedDate = regexp.MustCompile(`(\d{4})\.\s?(\d{1,2})\.\s?(\d{1,2})(\.)?`)
)

// FormatChecker 日期书写规范：YYYY.MM.DD.
type FormatChecker struct{}

func NewFormatChecker() *FormatChecker {
	return &FormatChecker{}
}

func (c *FormatChecker) Name() string { return NameFormat }

func (c *FormatChecker) ShouldApply(cc model.CellContext) bool {
	return !cc.IsHeader
}

func (c *FormatChecker) Check(_ context.Context, text string, _ model.CellContext) ([]model.Finding, error) {
	var findings []model.Finding

	for _, m := range foreignDate.FindAllStringSubmatchIndex(text, -1) {
		y, mo, d := dateParts(text, m)
		f := model.Finding{
			Kind:      model.KindFormat,
			Severity:  model.SeverityWarning,
			Message:   fmt.Sprintf("날짜 '%s'는 'YYYY.MM.DD.' 형식으로 기재해야 합니다.", text[m[0]:m[1]]),
			Highlight: highlight(text, m[:2]),
		}
		if validDate(y, mo, d) {
			f.Suggestion = fmt.Sprintf("%04d.%02d.%02d.", y, mo, d)
		}
		findings = append(findings, f)
	}

	for _, m := range dottedDate.FindAllStringSubmatchIndex(text, -1) {
		raw := text[m[0]:m[1]]
		y, mo, d := dateParts(text, m)
		if !validDate(y, mo, d) {
			findings = append(findings, model.Finding{
				Kind:      model.KindFormat,
				Severity:  model.SeverityError,
				Message:   fmt.Sprintf("'%s'는 존재하지 않는 날짜입니다.", raw),
				Highlight: highlight(text, m[:2]),
			})
			continue
		}
		canonical := fmt.Sprintf("%04d.%02d.%02d.", y, mo, d)
		if raw != canonical {
			findings = append(findings, model.Finding{
				Kind:       model.KindFormat,
				Severity:   model.SeverityInfo,
				Message:    fmt.Sprintf("날짜 '%s'의 형식이 올바르지 않습니다.", raw),
				Suggestion: canonical,
				Highlight:  highlight(text, m[:2]),
			})
		}
	}
	return findings, nil
}

// dateParts 按十进制解析，"08" 不能当作八进制
func dateParts(text string, m []int) (int, int, int) {
	return atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]])
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Year() == y && int(t.Month()) == m && t.Day() == d
}
