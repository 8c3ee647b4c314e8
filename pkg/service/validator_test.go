package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"record-verify/pkg/checker"
	"record-verify/pkg/corpus"
	"record-verify/pkg/duplicate"
	"record-verify/pkg/model"
	"record-verify/pkg/source"
)

const sharedSentence = "수업 시간에 집중력이 뛰어나며 친구들과 협력하여 과제를 성실하게 수행함."

// blockingChecker 第一次调用时通知，然后一直等到 ctx 被取消
type blockingChecker struct {
	entered chan struct{}
	once    sync.Once
}

func newBlockingChecker() *blockingChecker {
	return &blockingChecker{entered: make(chan struct{})}
}

func (b *blockingChecker) Name() string { return "blocking" }

func (b *blockingChecker) Check(ctx context.Context, _ string, _ model.CellContext) ([]model.Finding, error) {
	b.once.Do(func() { close(b.entered) })
	<-ctx.Done()
	return []model.Finding{{Kind: "late", Severity: model.SeverityError, Message: "late"}}, nil
}

// gateChecker 只拦住指定文档，其他文档直接通过
type gateChecker struct {
	documentID string
	entered    chan struct{}
	once       sync.Once
}

func newGateChecker(documentID string) *gateChecker {
	return &gateChecker{documentID: documentID, entered: make(chan struct{})}
}

func (g *gateChecker) Name() string { return "gate" }

func (g *gateChecker) Check(ctx context.Context, _ string, cc model.CellContext) ([]model.Finding, error) {
	if cc.Location.DocumentID != g.documentID {
		return nil, nil
	}
	g.once.Do(func() { close(g.entered) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func waitEntered(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("checker never ran")
	}
}

type panicChecker struct{}

func (panicChecker) Name() string { return "panic" }

func (panicChecker) Check(context.Context, string, model.CellContext) ([]model.Finding, error) {
	panic("boom")
}

func newFactory(t *testing.T, scope corpus.Scope, names []string, extra ...checker.Checker) *SuiteFactory {
	t.Helper()
	reg := checker.NewRegistry()
	for _, c := range extra {
		c := c
		reg.Register(c.Name(), func(checker.Deps) (checker.Checker, error) { return c, nil })
	}
	f, err := NewSuiteFactory(reg, names, checker.Deps{Qualifier: corpus.DefaultQualifier()}, scope, corpus.DefaultOptions())
	if err != nil {
		t.Fatalf("NewSuiteFactory: %v", err)
	}
	return f
}

func studentDoc(id string, owners ...string) *model.Document {
	doc := &model.Document{ID: id, Category: "grade1"}
	for _, owner := range owners {
		doc.Students = append(doc.Students, model.StudentRecord{
			ID:   owner,
			Name: owner,
			Sections: []model.Sheet{
				{Name: "행동특성 및 종합의견", HeaderRows: 1, Rows: [][]string{{"내용"}, {sharedSentence}}},
				{Name: "출결상황", Rows: [][]string{{sharedSentence}}},
			},
		})
	}
	return doc
}

func TestValidateCrossStudentMutualFindings(t *testing.T) {
	doc := studentDoc("doc-1", "s1", "s2")
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeBatch, []string{duplicate.NameStudent}))

	res, err := v.Validate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Status != model.StatusCompleted || res.Progress != 100 || res.CompletedAt == nil {
		t.Fatalf("unexpected terminal state: %+v", res)
	}
	if res.Totals.CheckedCells != 6 || res.Totals.TotalCells != 6 {
		t.Fatalf("unexpected totals: %+v", res.Totals)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("expected a finding on each side, got %+v", res.Errors)
	}
	byOwner := make(map[string]model.Finding)
	for _, f := range res.Errors {
		if f.Kind != model.KindDuplicateStudent || f.Duplicate == nil {
			t.Fatalf("unexpected finding: %+v", f)
		}
		if f.Location.Section != "행동특성 및 종합의견" {
			t.Fatalf("attendance must not produce findings: %+v", f.Location)
		}
		byOwner[f.Location.OwnerID] = f
	}
	if byOwner["s2"].Duplicate.OwnerID != "s1" || byOwner["s1"].Duplicate.OwnerID != "s2" {
		t.Fatalf("findings should reference each other: %+v", byOwner)
	}
	if byOwner["s2"].Checker != duplicate.NameStudent || byOwner["s2"].Text != sharedSentence {
		t.Fatalf("location, text and checker should be backfilled: %+v", byOwner["s2"])
	}
}

func TestValidateCheckerPanicIsIsolated(t *testing.T) {
	doc := studentDoc("doc-1", "s1")
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeBatch, []string{"panic", checker.NameGrammar}, panicChecker{}))

	res, err := v.Validate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("checker panic should not fail the document: %s", res.Status)
	}
}

func TestValidateTraversalFailure(t *testing.T) {
	doc := studentDoc("doc-1", "s1")
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeBatch, nil))

	res := v.ValidateWith(context.Background(), doc, nil, model.PriorityBalanced)
	if res.Status != model.StatusFailed || res.Error == "" {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].Kind != model.KindSystem {
		t.Fatalf("expected one system finding, got %+v", res.Errors)
	}
}

func TestStartUnknownDocument(t *testing.T) {
	v := NewValidator(source.NewMemorySource(), newFactory(t, corpus.ScopeBatch, nil))
	err := v.Start(context.Background(), "missing")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, ok := v.GetResult("missing"); ok {
		t.Fatalf("no result should be created")
	}
}

func TestStartAndCancel(t *testing.T) {
	doc := studentDoc("doc-1", "s1", "s2")
	blocking := newBlockingChecker()
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeBatch, []string{"blocking"}, blocking))

	if err := v.Start(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-blocking.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("checker never ran")
	}
	if err := v.Start(context.Background(), "doc-1"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if !v.Cancel("doc-1") {
		t.Fatalf("Cancel should find the running document")
	}
	v.Wait()

	res, ok := v.GetResult("doc-1")
	if !ok {
		t.Fatalf("result missing")
	}
	if res.Status != model.StatusCancelled || res.CompletedAt == nil {
		t.Fatalf("expected cancelled, got %s", res.Status)
	}
	if len(res.Findings()) != 0 {
		t.Fatalf("findings returned after cancellation must be discarded: %+v", res.Findings())
	}
	if res.Progress == 100 {
		t.Fatalf("cancelled document should not reach 100")
	}
	if v.Cancel("doc-1") {
		t.Fatalf("terminal document cannot be cancelled again")
	}
}

func TestCorpusScope(t *testing.T) {
	first, second := studentDoc("doc-1", "s1"), studentDoc("doc-2", "s2")
	cases := []struct {
		scope corpus.Scope
		want  int
	}{
		{corpus.ScopeBatch, 0},
		{corpus.ScopeProcess, 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.scope), func(t *testing.T) {
			v := NewValidator(source.NewMemorySource(first, second), newFactory(t, tc.scope, []string{duplicate.NameStudent}))
			if _, err := v.Validate(context.Background(), first); err != nil {
				t.Fatalf("Validate: %v", err)
			}
			res, err := v.Validate(context.Background(), second)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if len(res.Errors) != tc.want {
				t.Fatalf("got %d errors, want %d", len(res.Errors), tc.want)
			}
		})
	}
}

func TestCellContextAdjacent(t *testing.T) {
	sheet := &model.Sheet{Name: "세특", HeaderRows: 1, Rows: [][]string{
		{"과목", "내용", "비고"},
		{"수학", "탐구 활동", "우수"},
	}}
	cc := cellContext("doc-1", model.Unit{OwnerID: "s1", Sheet: sheet}, model.SectionSubjectDetails, 1, 1, model.PrioritySpeed)
	if cc.Location.Address != "B2" || cc.Location.Row != 2 || cc.Location.Column != 2 {
		t.Fatalf("unexpected location: %+v", cc.Location)
	}
	want := model.Adjacent{Left: "수학", Right: "우수", Above: "내용", Header: "내용"}
	if cc.Adjacent != want || cc.IsHeader {
		t.Fatalf("unexpected context: %+v", cc)
	}
	if head := cellContext("doc-1", model.Unit{Sheet: sheet}, model.SectionSubjectDetails, 0, 0, ""); !head.IsHeader || head.Adjacent.Header != "" {
		t.Fatalf("header row: %+v", head)
	}
}

func TestCellCleaner(t *testing.T) {
	c := NewCellCleaner()
	cases := []struct {
		in, want string
	}{
		{"  ", ""},
		{"<p>수업에&nbsp;참여함</p>", "수업에 참여함"},
		{"첫 줄<br/>둘째 줄", "첫 줄\n둘째 줄"},
		{`<span style="background-color:yellow;">오타【맞춤법 오류】</span>를 수정`, "오타를 수정"},
		{"a &lt;b&gt; c", "a <b> c"},
		{"한", "한"},
	}
	for _, tc := range cases {
		if got := c.Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateWithLeavesRunningStartAlone(t *testing.T) {
	doc := studentDoc("doc-3", "s3")
	gate := newGateChecker("doc-3")
	factory := newFactory(t, corpus.ScopeBatch, []string{"gate"}, gate)
	v := NewValidator(source.NewMemorySource(doc), factory)

	if err := v.Start(context.Background(), "doc-3"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitEntered(t, gate.entered)

	suite, err := factory.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := v.ValidateWith(context.Background(), doc, suite, model.PriorityBalanced)
	if res.Status != model.StatusFailed || res.Error == "" {
		t.Fatalf("second run should be rejected, got %+v", res)
	}
	if stored, _ := v.GetResult("doc-3"); stored.Status != model.StatusProcessing {
		t.Fatalf("running result was overwritten: %s", stored.Status)
	}
	if r := v.MarkCancelled("doc-3"); r.Status != model.StatusCancelled {
		t.Fatalf("unexpected status %s", r.Status)
	}
	if stored, _ := v.GetResult("doc-3"); stored.Status != model.StatusProcessing {
		t.Fatalf("MarkCancelled must not replace a running result: %s", stored.Status)
	}

	if !v.Cancel("doc-3") {
		t.Fatalf("original run should still be cancellable")
	}
	v.Wait()
	if stored, _ := v.GetResult("doc-3"); stored.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
}

func TestConcurrentStartOnlyOneWins(t *testing.T) {
	doc := studentDoc("doc-1", "s1")
	gate := newGateChecker("doc-1")
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeBatch, []string{"gate"}, gate))

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started int
		busy    int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := v.Start(context.Background(), "doc-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, ErrAlreadyRunning):
				busy++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if started != 1 || busy != n-1 {
		t.Fatalf("expected exactly one run, got started=%d busy=%d", started, busy)
	}
	waitEntered(t, gate.entered)
	if !v.Cancel("doc-1") {
		t.Fatalf("Cancel should find the running document")
	}
	v.Wait()
}

func TestResultStorePutIfIdle(t *testing.T) {
	s := NewResultStore()
	now := time.Now()
	if !s.PutIfIdle(model.NewDocumentResult("doc-1", now)) {
		t.Fatalf("empty store should accept")
	}
	if s.PutIfIdle(model.NewDocumentResult("doc-1", now)) {
		t.Fatalf("pending result must not be replaced")
	}
	s.Update("doc-1", func(r *model.DocumentResult) { r.Status = model.StatusProcessing })
	if s.PutIfIdle(model.NewDocumentResult("doc-1", now)) {
		t.Fatalf("processing result must not be replaced")
	}
	if s.UpdateIfOpen("missing", func(*model.DocumentResult) {}) {
		t.Fatalf("missing result cannot be updated")
	}
	s.Update("doc-1", func(r *model.DocumentResult) { r.Status = model.StatusCompleted })
	if s.UpdateIfOpen("doc-1", func(r *model.DocumentResult) { r.Progress = 1 }) {
		t.Fatalf("terminal result must stay frozen")
	}
	if !s.PutIfIdle(model.NewDocumentResult("doc-1", now)) {
		t.Fatalf("terminal result may be replaced by a new run")
	}
	if r, _ := s.Get("doc-1"); r.Status != model.StatusPending {
		t.Fatalf("expected fresh pending result, got %s", r.Status)
	}
}

func TestRevalidationUnderProcessScope(t *testing.T) {
	doc := &model.Document{ID: "doc-1", Category: "grade1", Students: []model.StudentRecord{{
		ID:   "s1",
		Name: "s1",
		Sections: []model.Sheet{
			{Name: "행동특성 및 종합의견", Rows: [][]string{{sharedSentence}, {sharedSentence}}},
		},
	}}}
	v := NewValidator(source.NewMemorySource(doc), newFactory(t, corpus.ScopeProcess, []string{duplicate.NameDocument}))

	// 第二次校验不能与上一次留下的条目匹配
	for round := 1; round <= 2; round++ {
		res, err := v.Validate(context.Background(), doc)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		if len(res.Errors) != 1 {
			t.Fatalf("round %d: expected one duplicate, got %+v", round, res.Errors)
		}
		if f := res.Errors[0]; f.Location.Row != 2 || f.Duplicate == nil || f.Duplicate.Location.Row != 1 {
			t.Fatalf("round %d: expected row 2 to reference row 1, got %+v", round, f)
		}
	}
}
