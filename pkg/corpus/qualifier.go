package corpus

import (
	"unicode"

	"record-verify/pkg/model"
	"record-verify/pkg/similarity"
)

// Qualifier 判断单元格文本是否参与重复检查
type Qualifier struct {
	MinLength      int     // 规范化后的最少字符数
	MinHangulRatio float64 // 韩文字符占比下限
	Boilerplate    *Boilerplate
}

// DefaultQualifier 默认门槛
func DefaultQualifier() Qualifier {
	return Qualifier{
		MinLength:      20,
		MinHangulRatio: 0.5,
		Boilerplate:    NewBoilerplate(),
	}
}

// Qualifies 非空、足够长、以韩文为主、不是表头也不是套话
func (q Qualifier) Qualifies(text string, cc model.CellContext) bool {
	if cc.IsHeader {
		return false
	}
	n := []rune(similarity.Normalize(text))
	if len(n) == 0 || len(n) < q.MinLength {
		return false
	}
	if q.MinHangulRatio > 0 && HangulRatio(n) < q.MinHangulRatio {
		return false
	}
	return !q.Boilerplate.IsBoilerplate(text)
}

// HangulRatio 韩文字符在文字字符中的占比
func HangulRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	hangul := 0
	for _, r := range runes {
		if unicode.Is(unicode.Hangul, r) {
			hangul++
		}
	}
	return float64(hangul) / float64(len(runes))
}
