package corpus

import (
	"sort"
	"strings"

	"record-verify/pkg/similarity"
)

// 标准套话，不参与任何重复检查
var standardPhrases = []string{
	"특이사항 없음",
	"특이 사항 없음",
	"해당 사항 없음",
	"해당사항 없음",
	"해당 없음",
	"이상 없음",
	"결석 없음",
	"개근",
	"미실시",
	"미이수",
	"없음",
	"기재하지 않음",
	"성실하게 참여함",
	"성실히 참여함",
	"적극적으로 참여함",
	"학교 교육계획에 의한 활동",
	"코로나19로 인한 원격수업 기간",
	"학교장 허가 현장체험학습",
	"교과 우수상",
}

// residualLimit 去掉套话后剩余文字少于该值视为套话
const residualLimit = 4

// Boilerplate 套话白名单，按规范化形式比较
type Boilerplate struct {
	phrases []string
	set     map[string]struct{}
}

// NewBoilerplate 内置短语加上额外配置的短语
func NewBoilerplate(extra ...string) *Boilerplate {
	b := &Boilerplate{set: make(map[string]struct{})}
	for _, p := range append(append([]string(nil), standardPhrases...), extra...) {
		n := similarity.Normalize(p)
		if n == "" {
			continue
		}
		if _, ok := b.set[n]; ok {
			continue
		}
		b.set[n] = struct{}{}
		b.phrases = append(b.phrases, n)
	}
	// 先去掉长短语，避免短语被更短的短语截断
	sort.SliceStable(b.phrases, func(i, j int) bool {
		return len([]rune(b.phrases[i])) > len([]rune(b.phrases[j]))
	})
	return b
}

// IsBoilerplate 文本等于套话，或由套话拼接而成
func (b *Boilerplate) IsBoilerplate(text string) bool {
	if b == nil {
		return false
	}
	n := similarity.Normalize(text)
	if n == "" {
		return false
	}
	if _, ok := b.set[n]; ok {
		return true
	}
	rest := n
	for _, p := range b.phrases {
		rest = strings.ReplaceAll(rest, p, "")
	}
	return len([]rune(rest)) < residualLimit && len([]rune(rest)) < len([]rune(n))
}
