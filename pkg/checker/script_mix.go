package checker

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"record-verify/pkg/model"
)

const NameScriptMix = "script_mix"

var (
	hanRun       = regexp.MustCompile(`\p{Han}+`)
	latinWord    = regexp.MustCompile(`[A-Za-z]{2,}`)
	fullWidthRun = regexp.MustCompile(`[\x{FF01}-\x{FF5E}]+`)
	jamoRun      = regexp.MustCompile(`[\x{3131}-\x{318E}]{2,}`)
)

// 学生记录中允许出现的英文缩写
var allowedLatin = map[string]struct{}{
	"TV": {}, "PPT": {}, "UCC": {}, "SNS": {}, "IT": {}, "AI": {}, "PC": {},
	"CEO": {}, "DNA": {}, "RNA": {}, "PH": {}, "STEAM": {}, "SW": {}, "ICT": {},
	"LED": {}, "GPS": {}, "CPR": {}, "UN": {}, "NGO": {}, "AR": {}, "VR": {},
}

// ScriptMixChecker 检查韩文以外文字的混用：汉字、英文单词、全角字符、单独的字母（ㅋㅋ 等）
type ScriptMixChecker struct{}

func NewScriptMixChecker() *ScriptMixChecker {
	return &ScriptMixChecker{}
}

func (c *ScriptMixChecker) Name() string { return NameScriptMix }

func (c *ScriptMixChecker) ShouldApply(cc model.CellContext) bool {
	return !cc.IsHeader
}

func (c *ScriptMixChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	var findings []model.Finding

	if loc := hanRun.FindStringIndex(text); loc != nil {
		findings = append(findings, model.Finding{
			Kind:       model.KindScriptMix,
			Severity:   model.SeverityWarning,
			Message:    fmt.Sprintf("한자 '%s'는 한글로 기재해야 합니다.", text[loc[0]:loc[1]]),
			Suggestion: "한자를 한글로 바꾸어 기재",
			Highlight:  highlight(text, loc),
		})
	}

	if cc.Kind.Narrative() {
		for _, loc := range latinWord.FindAllStringIndex(text, -1) {
			word := text[loc[0]:loc[1]]
			if _, ok := allowedLatin[strings.ToUpper(word)]; ok {
				continue
			}
			findings = append(findings, model.Finding{
				Kind:       model.KindScriptMix,
				Severity:   model.SeverityWarning,
				Message:    fmt.Sprintf("영문 '%s'는 한글로 기재해야 합니다.", word),
				Suggestion: "영문 표기를 한글로 바꾸어 기재",
				Highlight:  highlight(text, loc),
			})
			break
		}
	}

	if loc := fullWidthRun.FindStringIndex(text); loc != nil {
		run := text[loc[0]:loc[1]]
		findings = append(findings, model.Finding{
			Kind:       model.KindScriptMix,
			Severity:   model.SeverityInfo,
			Message:    fmt.Sprintf("전각 문자 '%s'가 포함되어 있습니다.", run),
			Suggestion: strings.Replace(text, run, toHalfWidth(run), 1),
			Highlight:  highlight(text, loc),
		})
	}

	if loc := jamoRun.FindStringIndex(text); loc != nil {
		findings = append(findings, model.Finding{
			Kind:      model.KindScriptMix,
			Severity:  model.SeverityWarning,
			Message:   fmt.Sprintf("완성되지 않은 한글 자모 '%s'가 포함되어 있습니다.", text[loc[0]:loc[1]]),
			Highlight: highlight(text, loc),
		})
	}
	return findings, nil
}

func toHalfWidth(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 0xFF01 && r <= 0xFF5E {
			return r - 0xFEE0
		}
		return r
	}, s)
}

// highlight 字节区间转 rune 区间
func highlight(text string, loc []int) *model.Highlight {
	if len(loc) < 2 {
		return nil
	}
	return &model.Highlight{
		Start: utf8.RuneCountInString(text[:loc[0]]),
		End:   utf8.RuneCountInString(text[:loc[1]]),
	}
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}
