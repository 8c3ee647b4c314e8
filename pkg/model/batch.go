package model

import (
	"strings"
	"time"
)

// Priority 批量校验优先级
type Priority string

const (
	PrioritySpeed    Priority = "speed"
	PriorityAccuracy Priority = "accuracy"
	PriorityBalanced Priority = "balanced"
)

const (
	MinConcurrency     = 1
	MaxConcurrency     = 10
	DefaultConcurrency = 3
)

// BatchOptions 批量校验选项
type BatchOptions struct {
	ValidateAll         bool     `json:"validateAll"`
	SelectedCategories  []string `json:"selectedCategories"`
	SelectedDocumentIDs []string `json:"selectedDocumentIds"`
	MaxConcurrency      int      `json:"maxConcurrency"`
	Priority            Priority `json:"priority"`
}

// Normalize 补齐默认值并把并发数限制在 1-10
func (o BatchOptions) Normalize(defaultConcurrency int) BatchOptions {
	if defaultConcurrency <= 0 {
		defaultConcurrency = DefaultConcurrency
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = defaultConcurrency
	}
	if o.MaxConcurrency < MinConcurrency {
		o.MaxConcurrency = MinConcurrency
	}
	if o.MaxConcurrency > MaxConcurrency {
		o.MaxConcurrency = MaxConcurrency
	}
	switch Priority(strings.ToLower(string(o.Priority))) {
	case PrioritySpeed:
		o.Priority = PrioritySpeed
	case PriorityAccuracy:
		o.Priority = PriorityAccuracy
	default:
		o.Priority = PriorityBalanced
	}
	return o
}

// BatchResult 一次批量校验
type BatchResult struct {
	ID                  string                     `json:"id"`
	DocumentIDs         []string                   `json:"documentIds"`
	Results             map[string]*DocumentResult `json:"results"`
	Status              Status                     `json:"status"`
	Progress            int                        `json:"progress"`
	EstimatedCompletion *time.Time                 `json:"estimatedCompletion,omitempty"`
	TotalFiles          int                        `json:"totalFiles"`
	CompletedFiles      int                        `json:"completedFiles"`
	FailedFiles         int                        `json:"failedFiles"`
	CancelledFiles      int                        `json:"cancelledFiles"`
	TotalErrors         int                        `json:"totalErrors"`
	TotalWarnings       int                        `json:"totalWarnings"`
	TotalInfos          int                        `json:"totalInfos"`
	Options             BatchOptions               `json:"options"`
	CreatedAt           time.Time                  `json:"createdAt"`
	StartedAt           *time.Time                 `json:"startedAt,omitempty"`
	CompletedAt         *time.Time                 `json:"completedAt,omitempty"`
}

// Clone 深拷贝
func (b *BatchResult) Clone() *BatchResult {
	if b == nil {
		return nil
	}
	cp := *b
	cp.DocumentIDs = append([]string(nil), b.DocumentIDs...)
	cp.Results = make(map[string]*DocumentResult, len(b.Results))
	for id, r := range b.Results {
		cp.Results[id] = r.Clone()
	}
	cp.Options.SelectedCategories = append([]string(nil), b.Options.SelectedCategories...)
	cp.Options.SelectedDocumentIDs = append([]string(nil), b.Options.SelectedDocumentIDs...)
	if b.EstimatedCompletion != nil {
		t := *b.EstimatedCompletion
		cp.EstimatedCompletion = &t
	}
	if b.StartedAt != nil {
		t := *b.StartedAt
		cp.StartedAt = &t
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
