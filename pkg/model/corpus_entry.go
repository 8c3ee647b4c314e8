package model

import "time"

// CorpusEntry 语料库中登记的一段文本
type CorpusEntry struct {
	OwnerID    string       `json:"ownerId"`
	OwnerName  string       `json:"ownerName,omitempty"`
	Section    string       `json:"section"`
	Kind       SectionKind  `json:"kind"`
	Location   CellLocation `json:"location"`
	Text       string       `json:"text"`
	Normalized string       `json:"normalized"` // 比较用规范化文本
	Tokens     []string     `json:"tokens"`
	WordCount  int          `json:"wordCount"`
	CreatedAt  time.Time    `json:"createdAt"`
	// CellKey 同一语料库内唯一，重复校验同一单元格时不会重复登记
	CellKey string `json:"cellKey"`
}
