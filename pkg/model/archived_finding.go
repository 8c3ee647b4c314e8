package model

// ArchivedResult 文档结果摘要，存储到 DuckDB
type ArchivedResult struct {
	DocumentID string `json:"document_id"`
	BatchID    string `json:"batch_id"`
	Status     string `json:"status"`
	Errors     int    `json:"errors"`
	Warnings   int    `json:"warnings"`
	Infos      int    `json:"infos"`
	Checked    int    `json:"checked"`
	ErrorText  string `json:"error_text"`
}

// TableName 指定表名
func (ArchivedResult) TableName() string {
	return "document_result"
}

// ArchivedFinding 单条问题，存储到 DuckDB
type ArchivedFinding struct {
	ID         string  `json:"id"` // UUID
	DocumentID string  `json:"document_id"`
	BatchID    string  `json:"batch_id"`
	Seq        int     `json:"seq"`
	Severity   string  `json:"severity"`
	Kind       string  `json:"kind"`
	Message    string  `json:"message"`
	Location   string  `json:"location"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"` // 重复类问题的相似度，其余为 0
}

// TableName 指定表名
func (ArchivedFinding) TableName() string {
	return "archived_finding"
}
