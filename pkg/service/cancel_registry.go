package service

import (
	"context"
	"sync"
)

type cancelEntry struct {
	cancel context.CancelFunc
}

// CancelRegistry 按文档 ID 保存取消函数
type CancelRegistry struct {
	mu      sync.Mutex
	entries map[string]*cancelEntry
}

func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{entries: make(map[string]*cancelEntry)}
}

// Register 派生可取消的 ctx；release 结束登记并释放资源
func (r *CancelRegistry) Register(parent context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	entry := &cancelEntry{cancel: cancel}
	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()
	return ctx, func() {
		r.mu.Lock()
		// 同一文档可能已被重新登记
		if r.entries[id] == entry {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		cancel()
	}
}

// Cancel 取消正在进行的校验，没有登记时返回 false
func (r *CancelRegistry) Cancel(id string) bool {
	r.mu.Lock()
	entry, ok := r.entries[id]
	r.mu.Unlock()
	if ok {
		entry.cancel()
	}
	return ok
}
