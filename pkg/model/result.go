package model

import "time"

// Totals 累计计数
type Totals struct {
	Errors       int `json:"errors"`
	Warnings     int `json:"warnings"`
	Infos        int `json:"infos"`
	CheckedCells int `json:"checkedCells"`
	TotalCells   int `json:"totalCells"`
}

// DocumentResult 单个文档的校验结果，进入终态后冻结
type DocumentResult struct {
	DocumentID  string     `json:"documentId"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Errors      []Finding  `json:"errors"`
	Warnings    []Finding  `json:"warnings"`
	Infos       []Finding  `json:"infos"`
	Totals      Totals     `json:"totals"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewDocumentResult 创建 pending 状态的结果
func NewDocumentResult(documentID string, now time.Time) *DocumentResult {
	return &DocumentResult{
		DocumentID: documentID,
		Status:     StatusPending,
		Errors:     []Finding{},
		Warnings:   []Finding{},
		Infos:      []Finding{},
		CreatedAt:  now,
	}
}

// Add 按等级归档问题
func (r *DocumentResult) Add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
		r.Totals.Errors++
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
		r.Totals.Warnings++
	default:
		r.Infos = append(r.Infos, f)
		r.Totals.Infos++
	}
}

// Findings 按 error/warning/info 顺序返回所有问题
func (r *DocumentResult) Findings() []Finding {
	all := make([]Finding, 0, len(r.Errors)+len(r.Warnings)+len(r.Infos))
	all = append(all, r.Errors...)
	all = append(all, r.Warnings...)
	all = append(all, r.Infos...)
	return all
}

// Clone 深拷贝，供外部读取
func (r *DocumentResult) Clone() *DocumentResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Errors = append([]Finding(nil), r.Errors...)
	cp.Warnings = append([]Finding(nil), r.Warnings...)
	cp.Infos = append([]Finding(nil), r.Infos...)
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
