package service

import (
	"sync"

	"record-verify/pkg/model"
)

// ResultStore 文档结果的进程内存储，读取时返回拷贝
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*model.DocumentResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]*model.DocumentResult)}
}

// Put 写入（覆盖）结果
func (s *ResultStore) Put(r *model.DocumentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.DocumentID] = r
}

// PutIfIdle 没有未结束的同 ID 结果时写入，检查与写入在同一把锁内完成
func (s *ResultStore) PutIfIdle(r *model.DocumentResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.results[r.DocumentID]; ok && !cur.Status.IsTerminal() {
		return false
	}
	s.results[r.DocumentID] = r
	return true
}

// Get 返回结果快照
func (s *ResultStore) Get(id string) (*model.DocumentResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Update 在写锁内修改结果；结果不存在时返回 false
func (s *ResultStore) Update(id string, fn func(r *model.DocumentResult)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// UpdateIfOpen 只修改未进入终态的结果
func (s *ResultStore) UpdateIfOpen(id string, fn func(r *model.DocumentResult)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok || r.Status.IsTerminal() {
		return false
	}
	fn(r)
	return true
}

// Amend 批次收尾时向成员结果补充反向问题，成员结果此时才算最终确定
func (s *ResultStore) Amend(id string, fs []model.Finding) (*model.DocumentResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false
	}
	for _, f := range fs {
		r.Add(f)
	}
	return r.Clone(), true
}

// AppendIfOpen 向未进入终态的结果追加问题
func (s *ResultStore) AppendIfOpen(id string, f model.Finding) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok || r.Status.IsTerminal() {
		return false
	}
	r.Add(f)
	return true
}
