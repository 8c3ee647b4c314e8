// Package duplicate 基于共享语料库的重复内容检查器：同一文档内、同一学生跨区域、
// 跨学生以及句子级。比较与登记在语料库分组锁内完成，单元格不会与自身匹配。
package duplicate

import (
	"fmt"

	"record-verify/pkg/corpus"
	"record-verify/pkg/model"
	"record-verify/pkg/similarity"
)

const (
	NameDocument = "duplicate_document"
	NameSection  = "duplicate_section"
	NameStudent  = "duplicate_student"
	NameSentence = "duplicate_sentence"
)

// match 一次比较中得分最高的已有条目
type match struct {
	entry  model.CorpusEntry
	result similarity.Result
}

func newEntry(text string, cc model.CellContext, store *corpus.Store) (model.CorpusEntry, similarity.Prepared) {
	p := similarity.Prepare(text)
	return model.CorpusEntry{
		OwnerID:    cc.OwnerKey(),
		OwnerName:  cc.Location.OwnerName,
		Section:    cc.Location.Section,
		Kind:       cc.Kind,
		Location:   cc.Location,
		Text:       text,
		Normalized: p.Normalized(),
		Tokens:     p.Tokens,
		WordCount:  len(p.Tokens),
		CreatedAt:  store.Now(),
		CellKey:    cc.Location.Key(),
	}, p
}

func preparedOf(e *model.CorpusEntry) similarity.Prepared {
	return similarity.Prepared{Runes: []rune(e.Normalized), Tokens: e.Tokens}
}

// bestMatch 在分组内寻找得分最高且达到报告阈值的条目，随后登记 entry。
// accept 为 nil 时接受全部条目。
func bestMatch(store *corpus.Store, key string, entry model.CorpusEntry, p similarity.Prepared,
	accept func(existing *model.CorpusEntry) bool) (match, bool) {
	var best match
	found := false
	store.Match(key, entry, func(existing *model.CorpusEntry) bool {
		if accept != nil && !accept(existing) {
			return true
		}
		res := similarity.ComparePrepared(p, preparedOf(existing))
		if _, ok := similarity.Grade(res.Combined); !ok {
			return true
		}
		if !found || res.Combined > best.result.Combined {
			best = match{entry: *existing, result: res}
			found = true
		}
		// 完全相同时无需继续
		return res.Combined < 1
	})
	return best, found
}

func refOf(m match, mutual bool) *model.DuplicateRef {
	return &model.DuplicateRef{
		Location:  m.entry.Location,
		OwnerID:   m.entry.Location.OwnerID,
		OwnerName: m.entry.OwnerName,
		Section:   m.entry.Section,
		Score:     m.result.Combined,
		Fragment:  m.result.Substring,
		Text:      m.entry.Text,
		Mutual:    mutual,
	}
}

func finding(kind string, sev model.Severity, msg string, m match, mutual bool) model.Finding {
	score := m.result.Combined
	return model.Finding{
		Kind:       kind,
		Severity:   sev,
		Message:    msg,
		Suggestion: "중복된 표현을 학생 개인의 구체적인 활동 내용으로 수정",
		Confidence: &score,
		Duplicate:  refOf(m, mutual),
	}
}

func gradeOf(m match) (model.Severity, bool) {
	return similarity.Grade(m.result.Combined)
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

// applies 重复检查共用的适用条件
func applies(cc model.CellContext) bool {
	return !cc.IsHeader && cc.Kind.Tier() != model.RiskExcluded
}
