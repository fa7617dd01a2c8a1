package aggregator

import (
	"testing"

	"judgecore/internal/judge/model"
)

func threeTestProblem(partial bool) model.Problem {
	return model.Problem{
		TestCases: []model.TestCase{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		Partial:   partial,
	}
}

func TestAggregateNoTestsIsSkipped(t *testing.T) {
	summary := Aggregate(model.Problem{}, nil)
	if summary.Verdict != model.VerdictSkippedNoTests {
		t.Fatalf("expected Skipped (No Test Cases), got %q", summary.Verdict)
	}
	if summary.TotalScore != 0 {
		t.Fatalf("expected zero score for a skipped submission")
	}
}

func TestAggregateAllAcceptedScoresFull(t *testing.T) {
	results := []model.PerTestResult{
		{TestCaseID: "1", Verdict: model.VerdictAccepted, TimeMs: 10, MemoryKB: 100},
		{TestCaseID: "2", Verdict: model.VerdictAccepted, TimeMs: 30, MemoryKB: 50},
		{TestCaseID: "3", Verdict: model.VerdictAccepted, TimeMs: 20, MemoryKB: 200},
	}
	summary := Aggregate(threeTestProblem(false), results)
	if summary.Verdict != model.VerdictAccepted {
		t.Fatalf("expected Accepted, got %q", summary.Verdict)
	}
	if summary.TotalScore != 100 {
		t.Fatalf("expected full score, got %d", summary.TotalScore)
	}
	if summary.TimeUsedMs != 30 {
		t.Fatalf("expected max time 30, got %d", summary.TimeUsedMs)
	}
	if summary.MemoryUsedKB != 200 {
		t.Fatalf("expected max memory 200, got %d", summary.MemoryUsedKB)
	}
}

// TestAggregateScoresProportionallyRegardlessOfPartial exercises seed
// scenario #7: a two-test, non-partial problem with one Accepted and one
// Wrong Answer result scores 50, not zero — §4.5 scores every test's
// 100/N share whenever it is Accepted, independent of the Partial flag.
func TestAggregateScoresProportionallyRegardlessOfPartial(t *testing.T) {
	problem := model.Problem{TestCases: []model.TestCase{{ID: "1"}, {ID: "2"}}, Partial: false}
	results := []model.PerTestResult{
		{Verdict: model.VerdictAccepted},
		{Verdict: model.VerdictWrongAnswer},
	}
	summary := Aggregate(problem, results)
	if summary.Verdict != model.VerdictWrongAnswer {
		t.Fatalf("expected Wrong Answer, got %q", summary.Verdict)
	}
	if summary.TotalScore != 50 {
		t.Fatalf("expected proportional score 50, got %d", summary.TotalScore)
	}
	if len(summary.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(summary.Details))
	}
}

func TestAggregatePartialCreditProportional(t *testing.T) {
	results := []model.PerTestResult{
		{Verdict: model.VerdictAccepted},
		{Verdict: model.VerdictWrongAnswer},
		{Verdict: model.VerdictAccepted},
	}
	summary := Aggregate(threeTestProblem(true), results)
	if summary.Verdict != model.VerdictWrongAnswer {
		t.Fatalf("headline verdict should still be the worst seen, got %q", summary.Verdict)
	}
	if summary.TotalScore != 67 {
		t.Fatalf("expected round(100*2/3)=67, got %d", summary.TotalScore)
	}
}

func TestAggregatePartialCreditAllAcceptedScoresFull(t *testing.T) {
	results := []model.PerTestResult{
		{Verdict: model.VerdictAccepted},
		{Verdict: model.VerdictAccepted},
		{Verdict: model.VerdictAccepted},
	}
	summary := Aggregate(threeTestProblem(true), results)
	if summary.TotalScore != 100 {
		t.Fatalf("expected full score when every test is accepted, got %d", summary.TotalScore)
	}
}

func TestAggregateSystemErrorOutranksEverything(t *testing.T) {
	results := []model.PerTestResult{
		{Verdict: model.VerdictAccepted},
		{Verdict: model.VerdictSystemError},
		{Verdict: model.VerdictWrongAnswer},
	}
	summary := Aggregate(threeTestProblem(true), results)
	if summary.Verdict != model.VerdictSystemError {
		t.Fatalf("expected System Error to win precedence, got %q", summary.Verdict)
	}
}

func TestAggregateDetailsPreservesOrderAndLength(t *testing.T) {
	results := []model.PerTestResult{
		{TestCaseID: "1", Verdict: model.VerdictAccepted},
		{TestCaseID: "2", Verdict: model.VerdictWrongAnswer},
	}
	summary := Aggregate(threeTestProblem(false), results)
	if len(summary.Details) != len(results) {
		t.Fatalf("expected %d details, got %d", len(results), len(summary.Details))
	}
	for i, d := range summary.Details {
		if d.TestCaseID != results[i].TestCaseID {
			t.Fatalf("details must preserve test-case order")
		}
	}
}
