package model

import (
	"testing"
	"time"
)

func TestClassifySection(t *testing.T) {
	cases := map[string]SectionKind{
		"행동특성 및 종합의견":       SectionBehaviorOpinion,
		"세부능력 및 특기사항":       SectionSubjectDetails,
		"출결 상황":             SectionAttendance,
		"인적·학적사항":           SectionPersonalInfo,
		"창의적 체험활동(자율)": SectionAutonomous,
		"동아리활동":             SectionClub,
		"봉사활동실적":            SectionVolunteer,
		"진로활동":              SectionCareer,
		"독서활동상황":            SectionReading,
		"수상경력":              SectionAwards,
		"CLUB":              SectionClub,
		"":                  SectionUnknown,
		"기타":                SectionUnknown,
	}
	for in, want := range cases {
		if got := ClassifySection(in); got != want {
			t.Errorf("ClassifySection(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTierAndGroup(t *testing.T) {
	cases := []struct {
		kind  SectionKind
		tier  RiskTier
		group string
	}{
		{SectionBehaviorOpinion, RiskHigh, "behavior_opinion"},
		{SectionSubjectDetails, RiskHigh, "subject_details"},
		{SectionClub, RiskMedium, "creative_activities"},
		{SectionCareer, RiskMedium, "creative_activities"},
		{SectionReading, RiskMedium, "reading"},
		{SectionAwards, RiskLow, "awards"},
		{SectionUnknown, RiskLow, "unknown"},
		{SectionAttendance, RiskExcluded, "attendance"},
		{"", RiskLow, "unknown"},
	}
	for _, tc := range cases {
		if got := tc.kind.Tier(); got != tc.tier {
			t.Errorf("%s.Tier() = %s, want %s", tc.kind, got, tc.tier)
		}
		if got := tc.kind.Group(); got != tc.group {
			t.Errorf("%s.Group() = %s, want %s", tc.kind, got, tc.group)
		}
	}
}

func TestTransition(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
		{StatusProcessing, StatusCancelled},
	}
	for _, p := range allowed {
		if err := Transition(p[0], p[1]); err != nil {
			t.Errorf("%s -> %s should be allowed: %v", p[0], p[1], err)
		}
	}
	denied := [][2]Status{
		{StatusCompleted, StatusProcessing},
		{StatusCancelled, StatusCompleted},
		{StatusFailed, StatusCancelled},
		{StatusPending, StatusCompleted},
	}
	for _, p := range denied {
		if err := Transition(p[0], p[1]); err == nil {
			t.Errorf("%s -> %s should be denied", p[0], p[1])
		}
	}
}

func TestBatchOptionsNormalize(t *testing.T) {
	cases := []struct {
		in       BatchOptions
		def      int
		conc     int
		priority Priority
	}{
		{BatchOptions{}, 0, DefaultConcurrency, PriorityBalanced},
		{BatchOptions{}, 5, 5, PriorityBalanced},
		{BatchOptions{MaxConcurrency: 42, Priority: "SPEED"}, 3, MaxConcurrency, PrioritySpeed},
		{BatchOptions{MaxConcurrency: 2, Priority: "accuracy"}, 3, 2, PriorityAccuracy},
		{BatchOptions{Priority: "whatever"}, 3, 3, PriorityBalanced},
	}
	for _, tc := range cases {
		got := tc.in.Normalize(tc.def)
		if got.MaxConcurrency != tc.conc || got.Priority != tc.priority {
			t.Errorf("Normalize(%+v, %d) = %d/%s, want %d/%s", tc.in, tc.def, got.MaxConcurrency, got.Priority, tc.conc, tc.priority)
		}
	}
}

func TestCellAddress(t *testing.T) {
	cases := map[[2]int]string{
		{0, 0}:  "A1",
		{9, 25}: "Z10",
		{0, 26}: "AA1",
		{1, 27}: "AB2",
		{0, 701}: "ZZ1",
	}
	for in, want := range cases {
		if got := CellAddress(in[0], in[1]); got != want {
			t.Errorf("CellAddress(%d, %d) = %s, want %s", in[0], in[1], got, want)
		}
	}
}

func TestDocumentResultAddAndClone(t *testing.T) {
	r := NewDocumentResult("doc", time.Now())
	r.Add(Finding{Severity: SeverityError, Message: "e"})
	r.Add(Finding{Severity: SeverityWarning, Message: "w"})
	r.Add(Finding{Severity: SeverityInfo, Message: "i"})

	if r.Totals.Errors != 1 || r.Totals.Warnings != 1 || r.Totals.Infos != 1 {
		t.Fatalf("unexpected totals: %+v", r.Totals)
	}
	all := r.Findings()
	if len(all) != 3 || all[0].Severity != SeverityError || all[2].Severity != SeverityInfo {
		t.Fatalf("unexpected order: %+v", all)
	}

	cp := r.Clone()
	cp.Errors[0].Message = "changed"
	cp.Add(Finding{Severity: SeverityError})
	if r.Errors[0].Message != "e" || len(r.Errors) != 1 {
		t.Fatalf("clone shares state with original")
	}
}

func TestSeverityCap(t *testing.T) {
	if got := SeverityError.Cap(SeverityWarning); got != SeverityWarning {
		t.Fatalf("error capped at warning = %s", got)
	}
	if got := SeverityInfo.Cap(SeverityWarning); got != SeverityInfo {
		t.Fatalf("info capped at warning = %s", got)
	}
}
