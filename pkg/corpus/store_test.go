package corpus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"record-verify/pkg/model"
)

func entry(key, text string, at time.Time) model.CorpusEntry {
	return model.CorpusEntry{CellKey: key, Text: text, CreatedAt: at}
}

func TestStore_MatchSkipsSameCellAndRegistersAfterCompare(t *testing.T) {
	s := NewStore(Options{})
	now := time.Now()

	var seen []string
	s.Match("g", entry("c1", "first", now), func(e *model.CorpusEntry) bool {
		seen = append(seen, e.Text)
		return true
	})
	if len(seen) != 0 {
		t.Fatalf("first entry must not see itself, saw %v", seen)
	}

	s.Match("g", entry("c2", "second", now), func(e *model.CorpusEntry) bool {
		seen = append(seen, e.Text)
		return true
	})
	if len(seen) != 1 || seen[0] != "first" {
		t.Fatalf("expected to see first, got %v", seen)
	}

	seen = nil
	s.Match("g", entry("c1", "first again", now), func(e *model.CorpusEntry) bool {
		seen = append(seen, e.Text)
		return true
	})
	if len(seen) != 1 || seen[0] != "second" {
		t.Fatalf("re-registered cell must skip its own entry, got %v", seen)
	}
	snap := s.Snapshot("g")
	if len(snap) != 2 {
		t.Fatalf("same cell must not be registered twice, got %d entries", len(snap))
	}
	if snap[0].Text != "first again" {
		t.Fatalf("expected entry refreshed in place, got %q", snap[0].Text)
	}
}

func TestStore_MatchStopsWhenVisitReturnsFalse(t *testing.T) {
	s := NewStore(Options{})
	now := time.Now()
	for i := 0; i < 3; i++ {
		s.Match("g", entry(fmt.Sprint(i), "x", now), nil)
	}
	visits := 0
	s.Match("g", entry("new", "y", now), func(*model.CorpusEntry) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Fatalf("expected 1 visit, got %d", visits)
	}
	if s.Len("g") != 4 {
		t.Fatalf("entry must still be registered, got %d", s.Len("g"))
	}
}

func TestStore_CleanupEvictsByAgeAndCap(t *testing.T) {
	base := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	clock := base
	s := NewStore(Options{MaxAge: time.Hour, MaxPerGroup: 2}).WithClock(func() time.Time { return clock })

	s.Match("old", entry("o1", "a", base.Add(-2*time.Hour)), nil)
	s.Match("old", entry("o2", "b", base.Add(-30*time.Minute)), nil)
	for i := 0; i < 4; i++ {
		s.Match("many", entry(fmt.Sprint(i), fmt.Sprint(i), base.Add(time.Duration(i)*time.Minute)), nil)
	}

	evicted := s.Cleanup()
	if evicted != 3 {
		t.Fatalf("expected 3 evictions, got %d", evicted)
	}
	if old := s.Snapshot("old"); len(old) != 1 || old[0].CellKey != "o2" {
		t.Fatalf("unexpected old group %+v", old)
	}
	many := s.Snapshot("many")
	if len(many) != 2 || many[0].Text != "2" || many[1].Text != "3" {
		t.Fatalf("cap must evict oldest first, got %+v", many)
	}

	// 淘汰后的单元格可以重新登记
	s.Match("many", entry("0", "again", base), nil)
	if s.Len("many") != 3 {
		t.Fatalf("expected evicted key to be re-registered, got %d", s.Len("many"))
	}
}

func TestStore_PeriodicCleanup(t *testing.T) {
	s := NewStore(Options{MaxPerGroup: 1, CleanupEvery: 2})
	now := time.Now()
	s.Match("g", entry("a", "a", now), nil)
	s.Match("g", entry("b", "b", now), nil)
	if got := s.Len("g"); got != 1 {
		t.Fatalf("expected cleanup after 2 inserts, got %d", got)
	}
}

func TestStore_ConcurrentMatchIsSerializedPerGroup(t *testing.T) {
	s := NewStore(Options{})
	now := time.Now()
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Match("g", entry(fmt.Sprint(i), "t", now), func(*model.CorpusEntry) bool { return true })
		}(i)
	}
	wg.Wait()
	if got := s.Len("g"); got != n {
		t.Fatalf("expected %d entries, got %d", n, got)
	}
}

func TestBoilerplate(t *testing.T) {
	b := NewBoilerplate("봉사활동 시간 인정")
	cases := []struct {
		text string
		want bool
	}{
		{"특이사항 없음", true},
		{"특이사항없음.", true},
		{"해당 없음 / 특이사항 없음", true},
		{"봉사활동 시간 인정", true},
		{"수업 시간에 집중력이 뛰어나며 친구들과 협력함", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := b.IsBoilerplate(tc.text); got != tc.want {
			t.Fatalf("IsBoilerplate(%q)=%v want %v", tc.text, got, tc.want)
		}
	}
}

func TestQualifier(t *testing.T) {
	q := DefaultQualifier()
	long := "수업 시간에 집중력이 뛰어나며 친구들과 협력하여 과제를 성실하게 수행함."
	if !q.Qualifies(long, model.CellContext{}) {
		t.Fatalf("expected long korean text to qualify")
	}
	if q.Qualifies(long, model.CellContext{IsHeader: true}) {
		t.Fatalf("header cells never qualify")
	}
	if q.Qualifies("짧은 문장", model.CellContext{}) {
		t.Fatalf("short text must not qualify")
	}
	if q.Qualifies("This sentence is written entirely in English words only.", model.CellContext{}) {
		t.Fatalf("non-korean text must not qualify")
	}
	if q.Qualifies("학교 교육계획에 의한 활동 / 학교 교육계획에 의한 활동", model.CellContext{}) {
		t.Fatalf("boilerplate must not qualify")
	}
}

func TestStore_ForgetDropsDocumentEntries(t *testing.T) {
	s := NewStore(Options{})
	now := time.Now()
	at := func(key, doc, text string) model.CorpusEntry {
		e := entry(key, text, now)
		e.Location = model.CellLocation{DocumentID: doc}
		return e
	}
	s.Match("a", at("d1-c1", "doc-1", "one"), nil)
	s.Match("a", at("d2-c1", "doc-2", "two"), nil)
	s.Match("b", at("d1-c2", "doc-1", "three"), nil)

	if n := s.Forget("doc-1"); n != 2 {
		t.Fatalf("expected 2 entries removed, got %d", n)
	}
	if snap := s.Snapshot("a"); len(snap) != 1 || snap[0].Text != "two" {
		t.Fatalf("other documents must stay, got %+v", snap)
	}
	if snap := s.Snapshot("b"); len(snap) != 0 {
		t.Fatalf("expected group b empty, got %+v", snap)
	}

	// 重新登记同一单元格后不会看到旧条目
	var seen []string
	s.Match("a", at("d1-c1", "doc-1", "one again"), func(e *model.CorpusEntry) bool {
		seen = append(seen, e.Text)
		return true
	})
	if len(seen) != 1 || seen[0] != "two" {
		t.Fatalf("expected only doc-2 entry, got %v", seen)
	}
	if n := s.Forget("missing"); n != 0 {
		t.Fatalf("unknown document removed %d entries", n)
	}
}
