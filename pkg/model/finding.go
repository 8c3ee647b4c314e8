package model

// Severity 问题等级
type Severity string

const (
	SeverityError   Severity = "error"   // 阻断
	SeverityWarning Severity = "warning" // 建议修改
	SeverityInfo    Severity = "info"    // 提示
)

// Rank 数值越大越严重
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Cap 将等级限制在 max 以内
func (s Severity) Cap(max Severity) Severity {
	if s.Rank() > max.Rank() {
		return max
	}
	return s
}

// 问题类型
const (
	KindScriptMix         = "script_mix"
	KindProhibited        = "prohibited"
	KindGrammar           = "grammar"
	KindFormat            = "format"
	KindSemantic          = "semantic"
	KindDuplicateDocument = "duplicate_document"
	KindDuplicateSection  = "duplicate_section"
	KindDuplicateStudent  = "duplicate_student"
	KindDuplicateSentence = "duplicate_sentence"
	KindSystem            = "system"
)

// Highlight 文本中需要标记的区间（rune 偏移，左闭右开）
type Highlight struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DuplicateRef 重复内容的来源
type DuplicateRef struct {
	Location  CellLocation `json:"location"`
	OwnerID   string       `json:"ownerId,omitempty"`
	OwnerName string       `json:"ownerName,omitempty"`
	Section   string       `json:"section,omitempty"`
	Score     float64      `json:"score"`
	Fragment  string       `json:"fragment,omitempty"`
	Text      string       `json:"text,omitempty"` // 被匹配条目的原文
	// Mutual 为 true 时需要在来源位置补一条反向问题
	Mutual bool `json:"-"`
}

// Finding 一条规则违规
type Finding struct {
	Kind       string        `json:"kind"`
	Severity   Severity      `json:"severity"`
	Message    string        `json:"message"`
	Text       string        `json:"text"`
	Suggestion string        `json:"suggestion,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	Highlight  *Highlight    `json:"highlight,omitempty"`
	Duplicate  *DuplicateRef `json:"duplicate,omitempty"`
	Location   CellLocation  `json:"location"`
	Checker    string        `json:"checker,omitempty"`
}
