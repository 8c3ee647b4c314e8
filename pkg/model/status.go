package model

import "github.com/pkg/errors"

// Status 文档与批次共用的状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal 是否为终态
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Transition 校验状态迁移，终态不可再迁移
func Transition(from, to Status) error {
	if !allowedTransition(from, to) {
		return errors.Errorf("不允许的状态迁移: %s -> %s", from, to)
	}
	return nil
}

func allowedTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusCancelled
	default:
		return false
	}
}
