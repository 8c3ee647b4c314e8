package duplicate

import (
	"context"
	"fmt"

	"record-verify/pkg/corpus"
	"record-verify/pkg/model"
)

// DocumentChecker 同一文档、同一学生、同一区域组内的重复
type DocumentChecker struct {
	store     *corpus.Store
	qualifier corpus.Qualifier
}

func NewDocumentChecker(store *corpus.Store, q corpus.Qualifier) *DocumentChecker {
	return &DocumentChecker{store: store, qualifier: q}
}

func (c *DocumentChecker) Name() string { return NameDocument }

func (c *DocumentChecker) ShouldApply(cc model.CellContext) bool { return applies(cc) }

func (c *DocumentChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	if !c.qualifier.Qualifies(text, cc) {
		return nil, nil
	}
	entry, p := newEntry(text, cc, c.store)
	key := "doc:" + cc.OwnerKey() + ":" + cc.Kind.Group()
	m, ok := bestMatch(c.store, key, entry, p, nil)
	if !ok {
		return nil, nil
	}
	sev, _ := gradeOf(m)
	msg := fmt.Sprintf("같은 문서의 %s 내용과 %s 유사합니다.", m.entry.Location, percent(m.result.Combined))
	return []model.Finding{finding(model.KindDuplicateDocument, sev, msg, m, false)}, nil
}

// SectionChecker 同一学生在不同区域组之间复用文本，最多给到 warning
type SectionChecker struct {
	store     *corpus.Store
	qualifier corpus.Qualifier
}

func NewSectionChecker(store *corpus.Store, q corpus.Qualifier) *SectionChecker {
	return &SectionChecker{store: store, qualifier: q}
}

func (c *SectionChecker) Name() string { return NameSection }

func (c *SectionChecker) ShouldApply(cc model.CellContext) bool { return applies(cc) }

func (c *SectionChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	if !c.qualifier.Qualifies(text, cc) {
		return nil, nil
	}
	entry, p := newEntry(text, cc, c.store)
	group := cc.Kind.Group()
	m, ok := bestMatch(c.store, "owner:"+cc.OwnerKey(), entry, p, func(existing *model.CorpusEntry) bool {
		return existing.Kind.Group() != group
	})
	if !ok {
		return nil, nil
	}
	sev, _ := gradeOf(m)
	msg := fmt.Sprintf("다른 영역(%s)의 내용과 %s 유사합니다.", m.entry.Section, percent(m.result.Combined))
	return []model.Finding{finding(model.KindDuplicateSection, sev.Cap(model.SeverityWarning), msg, m, false)}, nil
}

// StudentChecker 不同学生之间的重复，按区域风险等级调整等级
type StudentChecker struct {
	store     *corpus.Store
	qualifier corpus.Qualifier
}

func NewStudentChecker(store *corpus.Store, q corpus.Qualifier) *StudentChecker {
	return &StudentChecker{store: store, qualifier: q}
}

func (c *StudentChecker) Name() string { return NameStudent }

func (c *StudentChecker) ShouldApply(cc model.CellContext) bool { return applies(cc) }

func (c *StudentChecker) Check(_ context.Context, text string, cc model.CellContext) ([]model.Finding, error) {
	if !c.qualifier.Qualifies(text, cc) {
		return nil, nil
	}
	entry, p := newEntry(text, cc, c.store)
	owner := entry.OwnerID
	m, ok := bestMatch(c.store, "student:"+cc.Kind.Group(), entry, p, func(existing *model.CorpusEntry) bool {
		return existing.OwnerID != owner
	})
	if !ok {
		return nil, nil
	}
	sev, _ := gradeOf(m)
	sev, ok = TierSeverity(cc.Kind.Tier(), sev)
	if !ok {
		return nil, nil
	}
	who := m.entry.OwnerName
	if who == "" {
		who = m.entry.Location.OwnerID
	}
	msg := fmt.Sprintf("다른 학생(%s)의 %s 내용과 %s 유사합니다.", who, m.entry.Section, percent(m.result.Combined))
	return []model.Finding{finding(model.KindDuplicateStudent, sev, msg, m, true)}, nil
}

// TierSeverity 跨学生重复按区域风险等级调整：
// high 不变，medium 的 error 降为 warning，low 最多 info，excluded 不报告
func TierSeverity(tier model.RiskTier, sev model.Severity) (model.Severity, bool) {
	switch tier {
	case model.RiskHigh:
		return sev, true
	case model.RiskMedium:
		return sev.Cap(model.SeverityWarning), true
	case model.RiskLow:
		return sev.Cap(model.SeverityInfo), true
	default:
		return "", false
	}
}
