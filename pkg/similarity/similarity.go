// Package similarity 计算两段文本的相似度：集合重叠、最长公共片段和编辑距离，
// 加权合成一个分数。重复检查器用该分数分级。
package similarity

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"record-verify/pkg/model"
)

// 加权系数：共享词汇与连续片段比字符级接近更能说明复制粘贴
const (
	WeightJaccard = 0.4
	WeightRun     = 0.4
	WeightEdit    = 0.2
)

// 分级阈值
const (
	ThresholdError   = 0.90
	ThresholdWarning = 0.80
	ThresholdInfo    = 0.70
)

// MinTokenLength 参与集合重叠的最短词长（rune）
const MinTokenLength = 2

// Result 一次比较的结果
type Result struct {
	Jaccard      float64  `json:"jaccard"`
	LongestRun   float64  `json:"longestRun"`
	Edit         float64  `json:"edit"`
	Combined     float64  `json:"combined"`
	Substring    string   `json:"substring"`
	SharedTokens []string `json:"sharedTokens"`
}

// Prepared 预处理后的文本，可重复参与比较
type Prepared struct {
	Runes  []rune
	Tokens []string
}

// Normalized 比较用规范化字符串
func (p Prepared) Normalized() string {
	return string(p.Runes)
}

func isScript(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func fold(text string) string {
	return strings.ToLower(norm.NFC.String(text))
}

// Normalize 只保留文字字符并去除空白，NFC 且小写
func Normalize(text string) string {
	return string(normalizeRunes(fold(text)))
}

func normalizeRunes(folded string) []rune {
	out := make([]rune, 0, len(folded))
	for _, r := range folded {
		if isScript(r) {
			out = append(out, r)
		}
	}
	return out
}

// Tokenize 以非文字字符为边界切词，保留长度 >= 2 的词
func Tokenize(text string) []string {
	return tokenize(fold(text))
}

func tokenize(folded string) []string {
	fields := strings.FieldsFunc(folded, func(r rune) bool { return !isScript(r) })
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= MinTokenLength {
			out = append(out, f)
		}
	}
	return out
}

// Prepare 预处理文本
func Prepare(text string) Prepared {
	folded := fold(text)
	return Prepared{Runes: normalizeRunes(folded), Tokens: tokenize(folded)}
}

// Jaccard 词集合重叠度，返回交集（排序后）
func Jaccard(a, b []string) (float64, []string) {
	setA := toSet(a)
	setB := toSet(b)
	union := len(setA)
	shared := make([]string, 0)
	for t := range setB {
		if _, ok := setA[t]; ok {
			shared = append(shared, t)
		} else {
			union++
		}
	}
	if union == 0 {
		return 0, shared
	}
	sort.Strings(shared)
	return float64(len(shared)) / float64(union), shared
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// LongestCommonRun 最长公共连续子串，O(n·m)
func LongestCommonRun(a, b []rune) (int, string) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ""
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best, end := 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
					end = i
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best, string(a[end-best : end])
}

// Levenshtein 单字符编辑距离
func Levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Compare 比较两段原始文本
func Compare(a, b string) Result {
	return ComparePrepared(Prepare(a), Prepare(b))
}

// ComparePrepared 比较两段预处理后的文本；任一方为空时返回零值
func ComparePrepared(a, b Prepared) Result {
	if len(a.Runes) == 0 || len(b.Runes) == 0 {
		return Result{SharedTokens: []string{}}
	}
	var res Result
	res.Jaccard, res.SharedTokens = Jaccard(a.Tokens, b.Tokens)
	if len(a.Tokens) == 0 && len(b.Tokens) == 0 && string(a.Runes) == string(b.Runes) {
		res.Jaccard = 1
	}

	run, sub := LongestCommonRun(a.Runes, b.Runes)
	res.Substring = sub
	res.LongestRun = float64(run) / float64(min(len(a.Runes), len(b.Runes)))

	dist := Levenshtein(a.Runes, b.Runes)
	res.Edit = 1 - float64(dist)/float64(max(len(a.Runes), len(b.Runes)))

	res.Combined = clamp(WeightJaccard*res.Jaccard + WeightRun*res.LongestRun + WeightEdit*res.Edit)
	return res
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Grade 分数到等级；低于 0.70 不报告
func Grade(score float64) (model.Severity, bool) {
	switch {
	case score >= ThresholdError:
		return model.SeverityError, true
	case score >= ThresholdWarning:
		return model.SeverityWarning, true
	case score >= ThresholdInfo:
		return model.SeverityInfo, true
	default:
		return "", false
	}
}
