package duplicate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"record-verify/pkg/corpus"
	"record-verify/pkg/model"
	"record-verify/pkg/similarity"
)

const (
	defaultMinSentence = 15
	sentenceGroup      = "sentence"
	// 句子词集合重叠达到该值视为改写重复
	sentenceOverlapWarning = 0.90
	sentenceDelimiter      = "\x00"
)

var (
	blankLines    = regexp.MustCompile(`\n\s*\n+`)
	sentenceBreak = regexp.MustCompile(`([.!?。])\s+`)
)

// SentenceChecker 句子级重复：单元格内重复以及与其他学生句子的重复
type SentenceChecker struct {
	store       *corpus.Store
	boilerplate *corpus.Boilerplate
	minSentence int
}

func NewSentenceChecker(store *corpus.Store, b *corpus.Boilerplate, minSentence int) *SentenceChecker {
	if minSentence <= 0 {
		minSentence = defaultMinSentence
	}
	return &SentenceChecker{store: store, boilerplate: b, minSentence: minSentence}
}

func (c *SentenceChecker) Name() string { return NameSentence }

func (c *SentenceChecker) ShouldApply(cc model.CellContext) bool { return applies(cc) }

// SplitSentences 合并空行、按句末标点切分，丢弃剩余换行
func SplitSentences(text string) []string {
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	s = sentenceBreak.ReplaceAllString(s, "$1"+sentenceDelimiter)
	s = strings.ReplaceAll(s, "\n", " ")

	parts := strings.Split(s, sentenceDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *SentenceChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	var findings []model.Finding
	seen := make(map[string]int)
	owner := cc.OwnerKey()

	for i, sentence := range SplitSentences(text) {
		p := similarity.Prepare(sentence)
		if len(p.Runes) < c.minSentence || c.boilerplate.IsBoilerplate(sentence) {
			continue
		}
		norm := p.Normalized()
		if first, ok := seen[norm]; ok {
			findings = append(findings, model.Finding{
				Kind:       model.KindDuplicateSentence,
				Severity:   model.SeverityError,
				Message:    fmt.Sprintf("같은 문장이 셀 안에서 반복됩니다(%d번째 문장과 동일).", first+1),
				Suggestion: "반복된 문장을 삭제",
			})
			continue
		}
		seen[norm] = i

		loc := cc.Location
		entry := model.CorpusEntry{
			OwnerID:    owner,
			OwnerName:  cc.Location.OwnerName,
			Section:    cc.Location.Section,
			Kind:       cc.Kind,
			Location:   loc,
			Text:       sentence,
			Normalized: norm,
			Tokens:     p.Tokens,
			WordCount:  len(p.Tokens),
			CreatedAt:  c.store.Now(),
			CellKey:    loc.Key() + "#" + strconv.Itoa(i),
		}

		var hit *match
		exact := false
		c.store.Match(sentenceGroup, entry, func(existing *model.CorpusEntry) bool {
			if existing.OwnerID == owner {
				return true
			}
			if existing.Normalized == norm {
				hit = &match{entry: *existing, result: similarity.Result{Combined: 1, Substring: sentence}}
				exact = true
				return false
			}
			if hit != nil {
				return true
			}
			j, shared := similarity.Jaccard(p.Tokens, existing.Tokens)
			if j >= sentenceOverlapWarning {
				hit = &match{entry: *existing, result: similarity.Result{Jaccard: j, Combined: j, SharedTokens: shared}}
			}
			return true
		})
		if hit == nil {
			continue
		}
		sev := model.SeverityWarning
		msg := fmt.Sprintf("다른 학생(%s)의 문장과 표현이 거의 같습니다.", hit.entry.Location)
		if exact {
			sev = model.SeverityError
			msg = fmt.Sprintf("다른 학생(%s)의 문장과 동일합니다.", hit.entry.Location)
		}
		f := finding(model.KindDuplicateSentence, sev, msg, *hit, false)
		f.Duplicate.Fragment = sentence
		findings = append(findings, f)
	}
	return findings, nil
}
