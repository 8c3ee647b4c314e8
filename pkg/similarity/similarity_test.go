package similarity

import (
	"math"
	"reflect"
	"testing"

	"record-verify/pkg/model"
)

const epsilon = 1e-9

func TestCompare_IdenticalTextScoresOne(t *testing.T) {
	text := "학생은 수업 시간에 항상 적극적으로 참여하며 발표를 잘함."
	res := Compare(text, text)
	for name, v := range map[string]float64{
		"jaccard":  res.Jaccard,
		"run":      res.LongestRun,
		"edit":     res.Edit,
		"combined": res.Combined,
	} {
		if math.Abs(v-1) > epsilon {
			t.Fatalf("%s: expected 1.0, got %v", name, v)
		}
	}
	if res.Substring != Normalize(text) {
		t.Fatalf("expected full substring, got %q", res.Substring)
	}
}

func TestCompare_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"학생은 수업 시간에 항상 적극적으로 참여함", "수업 시간에 적극적으로 참여하는 학생임"},
		{"독서 토론 동아리에서 활발히 활동함", "과학 탐구 동아리 부장으로 활동함"},
		{"abc def", "ABC deg"},
		{"", "비어 있지 않음"},
		{"짧음", "짧다"},
	}
	for _, p := range pairs {
		ab := Compare(p[0], p[1])
		ba := Compare(p[1], p[0])
		if ab.Combined != ba.Combined || ab.Jaccard != ba.Jaccard || ab.LongestRun != ba.LongestRun || ab.Edit != ba.Edit {
			t.Fatalf("asymmetric for %q / %q: %+v vs %+v", p[0], p[1], ab, ba)
		}
		if !reflect.DeepEqual(ab.SharedTokens, ba.SharedTokens) {
			t.Fatalf("shared tokens differ: %v vs %v", ab.SharedTokens, ba.SharedTokens)
		}
	}
}

func TestCompare_SingleCharChangeBetweenInfoAndError(t *testing.T) {
	a := "학생은 수업 시간에 항상 적극적으로 참여하며 발표를 잘함"
	b := "학생은 수업 시간에 항상 적극적으로 참여하며 발표를 잘해"
	if n := len([]rune(a)); n != 31 {
		t.Fatalf("fixture should be 31 characters, got %d", n)
	}
	res := Compare(a, b)
	if res.Combined <= ThresholdInfo || res.Combined >= ThresholdError {
		t.Fatalf("expected score in (0.70, 0.90), got %v", res.Combined)
	}
	if len(res.SharedTokens) != 7 {
		t.Fatalf("expected 7 shared tokens, got %v", res.SharedTokens)
	}
}

func TestCompare_EmptyInput(t *testing.T) {
	res := Compare("", "학생")
	if res.Combined != 0 {
		t.Fatalf("expected 0, got %v", res.Combined)
	}
	res = Compare("...", "!!!")
	if res.Combined != 0 {
		t.Fatalf("punctuation only should score 0, got %v", res.Combined)
	}
}

func TestNormalizeAndTokenize(t *testing.T) {
	if got := Normalize("  Hello, 세계! 1 2 "); got != "hello세계12" {
		t.Fatalf("unexpected normalized form %q", got)
	}
	got := Tokenize("나는 a 학생, 2024년 AI 수업")
	want := []string{"나는", "학생", "2024년", "ai", "수업"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens: got %v want %v", got, want)
	}
}

func TestLongestCommonRun(t *testing.T) {
	n, sub := LongestCommonRun([]rune("가나다라마"), []rune("하다라마바"))
	if n != 3 || sub != "다라마" {
		t.Fatalf("got %d %q", n, sub)
	}
	if n, _ := LongestCommonRun(nil, []rune("가")); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"가나다", "", 3},
		{"kitten", "sitting", 3},
		{"학생회장", "학생부장", 1},
	}
	for _, tc := range cases {
		if got := Levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Fatalf("levenshtein(%q,%q)=%d want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		score float64
		want  model.Severity
		ok    bool
	}{
		{1.0, model.SeverityError, true},
		{0.90, model.SeverityError, true},
		{0.85, model.SeverityWarning, true},
		{0.80, model.SeverityWarning, true},
		{0.75, model.SeverityInfo, true},
		{0.70, model.SeverityInfo, true},
		{0.69, "", false},
	}
	for _, tc := range cases {
		got, ok := Grade(tc.score)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("grade(%v)=%q,%v want %q,%v", tc.score, got, ok, tc.want, tc.ok)
		}
	}
}
