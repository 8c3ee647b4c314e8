// Package corpus 保存重复检测用的文本语料。语料库由调用方显式创建并注入检查器，
// 生命周期跟随一次批量校验（或整个进程，取决于配置）。
package corpus

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"record-verify/pkg/model"
)

// Scope 语料库生命周期
type Scope string

const (
	ScopeBatch   Scope = "batch"
	ScopeProcess Scope = "process"
)

// ParseScope 未知值按 batch 处理
func ParseScope(s string) Scope {
	if Scope(strings.ToLower(strings.TrimSpace(s))) == ScopeProcess {
		return ScopeProcess
	}
	return ScopeBatch
}

// Options 淘汰策略
type Options struct {
	MaxAge       time.Duration // 超过该时长的条目被淘汰，0 表示不按时间淘汰
	MaxPerGroup  int           // 每组最多保留条目数，0 表示不限
	CleanupEvery int           // 每登记多少条触发一次清理，0 表示只手动清理
}

// DefaultOptions 默认淘汰策略
func DefaultOptions() Options {
	return Options{
		MaxAge:       24 * time.Hour,
		MaxPerGroup:  5000,
		CleanupEvery: 500,
	}
}

type group struct {
	mu      sync.Mutex
	entries []model.CorpusEntry
	keys    map[string]int // CellKey -> entries 下标
}

// Store 按分组键保存有序条目；同组内比较与登记在组锁内完成
type Store struct {
	opts    Options
	mu      sync.Mutex
	groups  map[string]*group
	inserts atomic.Int64
	now     func() time.Time
}

// NewStore 创建语料库
func NewStore(opts Options) *Store {
	return &Store{
		opts:   opts,
		groups: make(map[string]*group),
		now:    time.Now,
	}
}

// WithClock 替换时钟
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Now 语料库时钟
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) group(key string) *group {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[key]
	if !ok {
		g = &group{keys: make(map[string]int)}
		s.groups[key] = g
	}
	return g
}

// Match 在组锁内依次把已有条目交给 visit 比较，然后登记 entry。
// visit 不会看到与 entry 相同 CellKey 的条目；同一单元格再次登记时只更新原条目。
// visit 返回 false 时停止遍历（仍然登记）。
func (s *Store) Match(key string, entry model.CorpusEntry, visit func(existing *model.CorpusEntry) bool) {
	g := s.group(key)
	g.mu.Lock()
	for i := range g.entries {
		existing := &g.entries[i]
		if entry.CellKey != "" && existing.CellKey == entry.CellKey {
			continue
		}
		if visit != nil && !visit(existing) {
			break
		}
	}
	inserted := g.register(entry)
	g.mu.Unlock()

	if inserted && s.opts.CleanupEvery > 0 && s.inserts.Add(1)%int64(s.opts.CleanupEvery) == 0 {
		if n := s.Cleanup(); n > 0 {
			zap.S().Debugf("语料库清理完成，淘汰 %d 条", n)
		}
	}
}

func (g *group) register(entry model.CorpusEntry) bool {
	if entry.CellKey != "" {
		if idx, ok := g.keys[entry.CellKey]; ok {
			// 保留原登记时间，条目按时间有序
			entry.CreatedAt = g.entries[idx].CreatedAt
			g.entries[idx] = entry
			return false
		}
		g.keys[entry.CellKey] = len(g.entries)
	}
	g.entries = append(g.entries, entry)
	return true
}

// Snapshot 返回分组条目的拷贝
func (s *Store) Snapshot(key string) []model.CorpusEntry {
	s.mu.Lock()
	g, ok := s.groups[key]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.CorpusEntry(nil), g.entries...)
}

// Len 分组条目数
func (s *Store) Len(key string) int {
	return len(s.Snapshot(key))
}

// Groups 当前分组键，已排序
func (s *Store) Groups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.groups))
	for k := range s.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cleanup 淘汰过期条目并把每组裁剪到上限（先淘汰最早的），返回淘汰数量
func (s *Store) Cleanup() int {
	s.mu.Lock()
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()

	now := s.now()
	evicted := 0
	for _, g := range groups {
		g.mu.Lock()
		evicted += g.evict(now, s.opts)
		g.mu.Unlock()
	}
	return evicted
}

// Forget 移除某个文档登记的全部条目（含句子条目），返回移除数量
func (s *Store) Forget(documentID string) int {
	s.mu.Lock()
	groups := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()

	removed := 0
	for _, g := range groups {
		g.mu.Lock()
		removed += g.drop(func(e *model.CorpusEntry) bool { return e.Location.DocumentID == documentID })
		g.mu.Unlock()
	}
	return removed
}

func (g *group) drop(match func(e *model.CorpusEntry) bool) int {
	kept := g.entries[:0]
	for i := range g.entries {
		if !match(&g.entries[i]) {
			kept = append(kept, g.entries[i])
		}
	}
	removed := len(g.entries) - len(kept)
	if removed == 0 {
		return 0
	}
	g.entries = kept
	g.reindex()
	return removed
}

func (g *group) reindex() {
	g.keys = make(map[string]int, len(g.entries))
	for i, e := range g.entries {
		if e.CellKey != "" {
			g.keys[e.CellKey] = i
		}
	}
}

func (g *group) evict(now time.Time, opts Options) int {
	start := 0
	if opts.MaxAge > 0 {
		cutoff := now.Add(-opts.MaxAge)
		for start < len(g.entries) && g.entries[start].CreatedAt.Before(cutoff) {
			start++
		}
	}
	if opts.MaxPerGroup > 0 && len(g.entries)-start > opts.MaxPerGroup {
		start = len(g.entries) - opts.MaxPerGroup
	}
	if start == 0 {
		return 0
	}
	g.entries = append([]model.CorpusEntry(nil), g.entries[start:]...)
	g.reindex()
	return start
}
