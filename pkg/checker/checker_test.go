package checker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"record-verify/pkg/corpus"
	"record-verify/pkg/duplicate"
	"record-verify/pkg/model"
)

func narrativeCell() model.CellContext {
	return model.CellContext{
		Location: model.CellLocation{DocumentID: "doc-1", Sheet: "행동특성", Section: "행동특성 및 종합의견", Address: "B2"},
		Kind:     model.SectionBehaviorOpinion,
	}
}

func kinds(findings []model.Finding) map[model.Severity]int {
	out := make(map[model.Severity]int)
	for _, f := range findings {
		out[f.Severity]++
	}
	return out
}

func TestRegistryBuildDefaultOrder(t *testing.T) {
	deps := Deps{Store: corpus.NewStore(corpus.DefaultOptions()), Qualifier: corpus.DefaultQualifier()}
	suite, err := NewRegistry().Build(nil, deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	names := suite.Names()
	// semantic 未启用时不会出现在套件里
	want := DefaultOrder[:len(DefaultOrder)-1]
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %s want %s", i, names[i], want[i])
		}
	}
}

func TestRegistryBuildErrors(t *testing.T) {
	deps := Deps{Store: corpus.NewStore(corpus.DefaultOptions())}
	cases := []struct {
		name  string
		names []string
		deps  Deps
	}{
		{"unknown", []string{NameGrammar, "spellcheck"}, deps},
		{"duplicate name", []string{NameGrammar, NameGrammar}, deps},
		{"missing store", []string{duplicate.NameStudent}, Deps{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRegistry().Build(tc.names, tc.deps); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSuiteForSpeedSkipsExpensive(t *testing.T) {
	deps := Deps{Semantic: SemanticOptions{Enabled: true, Endpoint: "http://127.0.0.1:1/analyze"}}
	suite, err := NewRegistry().Build([]string{NameGrammar, NameSemantic}, deps)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := len(suite.For(model.PriorityAccuracy)); got != 2 {
		t.Fatalf("accuracy should run both, got %d", got)
	}
	speed := suite.For(model.PrioritySpeed)
	if len(speed) != 1 || speed[0].Name() != NameGrammar {
		t.Fatalf("speed should skip semantic, got %v", speed)
	}
}

func TestScriptMixChecker(t *testing.T) {
	c := NewScriptMixChecker()
	got, _ := c.Check(context.Background(), "수학 成績이 우수하고 Python 코딩과 PPT 발표를 잘함 ㅋㅋ ＡＢ", narrativeCell())
	sev := kinds(got)
	if sev[model.SeverityWarning] != 3 || sev[model.SeverityInfo] != 1 {
		t.Fatalf("unexpected findings: %+v", got)
	}
	if got[0].Highlight == nil || got[0].Highlight.Start != 3 || got[0].Highlight.End != 5 {
		t.Fatalf("han highlight should use rune offsets, got %+v", got[0].Highlight)
	}
	if c.ShouldApply(model.CellContext{IsHeader: true}) {
		t.Fatalf("header cells are skipped")
	}
}

func TestProhibitedChecker(t *testing.T) {
	c, err := NewProhibitedChecker("금지어", " ")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, _ := c.Check(context.Background(), "서울대학교 진학을 목표로 토익 공부를 함", narrativeCell())
	if len(got) != 2 {
		t.Fatalf("expected university and language test, got %+v", got)
	}
	for _, f := range got {
		if f.Severity != model.SeverityError || f.Highlight == nil {
			t.Fatalf("prohibited findings are blocking with highlight: %+v", f)
		}
	}
	if got, _ := c.Check(context.Background(), "금지어 포함", narrativeCell()); len(got) != 1 {
		t.Fatalf("extra keyword not applied: %+v", got)
	}
	if c.ShouldApply(model.CellContext{Kind: model.SectionAttendance}) {
		t.Fatalf("attendance is excluded")
	}
}

func TestGrammarChecker(t *testing.T) {
	c := NewGrammarChecker()
	cases := []struct {
		name string
		text string
		want map[model.Severity]int
	}{
		{"spaces", "수업에  적극적으로 참여함 .", map[model.Severity]int{model.SeverityInfo: 2}},
		{"repeated punct", "발표를 잘함!!", map[model.Severity]int{model.SeverityInfo: 1}},
		{"brackets", "(발표 우수함.", map[model.Severity]int{model.SeverityWarning: 1}},
		{"missing period", "수업 시간에 적극적으로 참여하며 발표를 잘함", map[model.Severity]int{model.SeverityInfo: 1}},
		{"clean", "수업 시간에 적극적으로 참여함.", map[model.Severity]int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := c.Check(context.Background(), tc.text, narrativeCell())
			sev := kinds(got)
			if len(sev) != len(tc.want) {
				t.Fatalf("got %+v", got)
			}
			for k, v := range tc.want {
				if sev[k] != v {
					t.Fatalf("%s: got %d want %d (%+v)", k, sev[k], v, got)
				}
			}
		})
	}
}

func TestGrammarMissingPeriodSuggestion(t *testing.T) {
	got, _ := NewGrammarChecker().Check(context.Background(), "수업 시간에 적극적으로 참여하며 발표를 잘함", narrativeCell())
	if len(got) != 1 || got[0].Suggestion != "수업 시간에 적극적으로 참여하며 발표를 잘함." {
		t.Fatalf("unexpected suggestion: %+v", got)
	}
}

func TestFormatChecker(t *testing.T) {
	c := NewFormatChecker()
	cases := []struct {
		text       string
		severity   model.Severity
		suggestion string
	}{
		{"2024-03-02에 참가함", model.SeverityWarning, "2024.03.02."},
		{"2024/3/2 행사", model.SeverityWarning, "2024.03.02."},
		{"2024.3.2 참가", model.SeverityInfo, "2024.03.02."},
		{"2024.03.02 참가", model.SeverityInfo, "2024.03.02."},
		{"2024.02.30. 참가", model.SeverityError, ""},
		{"2024.13.01. 참가", model.SeverityError, ""},
		{"2024-08-15 현장체험", model.SeverityWarning, "2024.08.15."},
		{"2024.9.8 참가", model.SeverityInfo, "2024.09.08."},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, _ := c.Check(context.Background(), tc.text, model.CellContext{})
			if len(got) != 1 || got[0].Severity != tc.severity || got[0].Suggestion != tc.suggestion {
				t.Fatalf("got %+v", got)
			}
		})
	}
	// 月日补零的 08、09 按十进制处理
	for _, text := range []string{"2024.03.02. 참가", "2024.08.15. 참가", "2024.09.01. 참가", "2024.03.08. 참가", "2024.03.09. 참가"} {
		if got, _ := c.Check(context.Background(), text, model.CellContext{}); len(got) != 0 {
			t.Fatalf("canonical date %q flagged: %+v", text, got)
		}
	}
}

func newSemantic(url string) *SemanticChecker {
	return NewSemanticChecker(SemanticOptions{
		Enabled:   true,
		Endpoint:  url,
		Timeout:   time.Second,
		BaseDelay: time.Millisecond,
	}, nil)
}

const semanticText = "수업 시간에 적극적으로 참여하며 발표를 매우 잘함."

func TestSemanticCheckerRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["text"] != semanticText || req["kind"] != string(model.SectionBehaviorOpinion) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"issues": []map[string]interface{}{
				{"severity": "error", "message": "과장된 표현", "confidence": "0.8", "start": 20, "end": 22},
				{"severity": "info", "message": ""},
			},
		})
	}))
	defer srv.Close()

	got, err := newSemantic(srv.URL).Check(context.Background(), semanticText, narrativeCell())
	if err != nil {
		t.Fatalf("semantic checker never returns errors: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(got) != 1 {
		t.Fatalf("expected one finding, got %+v", got)
	}
	f := got[0]
	if f.Severity != model.SeverityWarning || f.Confidence == nil || *f.Confidence != 0.8 || f.Highlight == nil {
		t.Fatalf("unexpected finding: %+v", f)
	}
}

func TestSemanticCheckerUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	got, err := newSemantic(srv.URL).Check(context.Background(), semanticText, narrativeCell())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected silent empty result, got %v %v", got, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSemanticCheckerNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	got, _ := newSemantic(srv.URL).Check(context.Background(), semanticText, narrativeCell())
	if len(got) != 0 || calls.Load() != 1 {
		t.Fatalf("expected one attempt and no findings, got %d calls %v", calls.Load(), got)
	}
}

func TestSemanticCheckerShortText(t *testing.T) {
	c := newSemantic("http://127.0.0.1:1/analyze")
	if got, _ := c.Check(context.Background(), "짧은 문장", narrativeCell()); len(got) != 0 {
		t.Fatalf("short text should be skipped")
	}
	if c.ShouldApply(model.CellContext{Kind: model.SectionAwards}) {
		t.Fatalf("semantic runs only on narrative sections")
	}
}
