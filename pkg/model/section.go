package model

import "strings"

// SectionKind 学生记录区域分类，在解析边界确定一次，下游只依赖枚举
type SectionKind string

const (
	SectionUnknown         SectionKind = "unknown"
	SectionPersonalInfo    SectionKind = "personal_info"    // 인적·학적사항
	SectionAttendance      SectionKind = "attendance"       // 출결상황
	SectionAwards          SectionKind = "awards"           // 수상경력
	SectionCertificates    SectionKind = "certificates"     // 자격증 및 인증 취득상황
	SectionAutonomous      SectionKind = "autonomous"       // 자율활동
	SectionClub            SectionKind = "club"             // 동아리활동
	SectionVolunteer       SectionKind = "volunteer"        // 봉사활동
	SectionCareer          SectionKind = "career"           // 진로활동
	SectionSubjectDetails  SectionKind = "subject_details"  // 세부능력 및 특기사항
	SectionReading         SectionKind = "reading"          // 독서활동상황
	SectionBehaviorOpinion SectionKind = "behavior_opinion" // 행동특성 및 종합의견
)

// RiskTier 区域对跨学生文本重复的敏感程度
type RiskTier int

const (
	RiskExcluded RiskTier = iota
	RiskLow
	RiskMedium
	RiskHigh
)

func (t RiskTier) String() string {
	switch t {
	case RiskHigh:
		return "high"
	case RiskMedium:
		return "medium"
	case RiskLow:
		return "low"
	default:
		return "excluded"
	}
}

// 按顺序匹配，靠前的关键字优先
var sectionKeywords = []struct {
	keyword string
	kind    SectionKind
}{
	{"행동특성", SectionBehaviorOpinion},
	{"종합의견", SectionBehaviorOpinion},
	{"세부능력", SectionSubjectDetails},
	{"특기사항", SectionSubjectDetails},
	{"세특", SectionSubjectDetails},
	{"교과학습", SectionSubjectDetails},
	{"출결", SectionAttendance},
	{"인적", SectionPersonalInfo},
	{"학적", SectionPersonalInfo},
	{"수상", SectionAwards},
	{"자격증", SectionCertificates},
	{"인증", SectionCertificates},
	{"자율", SectionAutonomous},
	{"창의적", SectionAutonomous},
	{"동아리", SectionClub},
	{"봉사", SectionVolunteer},
	{"진로", SectionCareer},
	{"독서", SectionReading},
}

// ClassifySection 将区域标题映射为 SectionKind，也接受枚举值本身
func ClassifySection(name string) SectionKind {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return SectionUnknown
	}
	if kind := SectionKind(strings.ToLower(trimmed)); kind.valid() {
		return kind
	}
	compact := strings.ReplaceAll(trimmed, " ", "")
	for _, kw := range sectionKeywords {
		if strings.Contains(compact, kw.keyword) {
			return kw.kind
		}
	}
	return SectionUnknown
}

func (k SectionKind) valid() bool {
	switch k {
	case SectionUnknown, SectionPersonalInfo, SectionAttendance, SectionAwards, SectionCertificates,
		SectionAutonomous, SectionClub, SectionVolunteer, SectionCareer, SectionSubjectDetails,
		SectionReading, SectionBehaviorOpinion:
		return true
	}
	return false
}

// Tier 返回区域的风险等级
func (k SectionKind) Tier() RiskTier {
	switch k {
	case SectionBehaviorOpinion, SectionSubjectDetails:
		return RiskHigh
	case SectionAutonomous, SectionClub, SectionVolunteer, SectionCareer, SectionReading:
		return RiskMedium
	case SectionAttendance, SectionPersonalInfo:
		return RiskExcluded
	default:
		return RiskLow
	}
}

// Group 返回比较分组，创意体验活动的各子区域合并为一组
func (k SectionKind) Group() string {
	switch k {
	case SectionAutonomous, SectionClub, SectionVolunteer, SectionCareer:
		return "creative_activities"
	case "":
		return string(SectionUnknown)
	default:
		return string(k)
	}
}

// Narrative 是否为叙述型区域
func (k SectionKind) Narrative() bool {
	return k.Tier() >= RiskMedium
}
