package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"judgecore/internal/judge/model"
	"judgecore/internal/judge/sandbox/observer"
	"judgecore/internal/judge/sandbox/result"
	"judgecore/internal/judge/sandbox/spec"
	appErr "judgecore/pkg/errors"
)

// fakeSubmissions is an in-memory SubmissionRepository for exercising the
// orchestrator without a database.
type fakeSubmissions struct {
	mu   sync.Mutex
	subs map[string]model.Submission
}

func newFakeSubmissions(subs ...model.Submission) *fakeSubmissions {
	f := &fakeSubmissions{subs: map[string]model.Submission{}}
	for _, s := range subs {
		f.subs[s.ID] = s
	}
	return f
}

func (f *fakeSubmissions) Get(ctx context.Context, id string) (model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return model.Submission{}, appErr.New(appErr.SubmissionNotFound)
	}
	return s, nil
}

func (f *fakeSubmissions) SetStatus(ctx context.Context, id string, status model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.subs[id]
	s.Status = status
	f.subs[id] = s
	return nil
}

func (f *fakeSubmissions) SetResult(ctx context.Context, id string, status model.Status, verdict model.Verdict, totalScore int, timeUsedMs, memoryUsedKB int64, details []model.PerTestResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.subs[id]
	s.Status = status
	s.FinalVerdict = verdict
	s.TotalScore = totalScore
	s.TimeUsedMs = timeUsedMs
	s.MemoryUsedKB = memoryUsedKB
	s.Details = details
	f.subs[id] = s
	return nil
}

func (f *fakeSubmissions) snapshot(id string) model.Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[id]
}

// fakeProblems is an in-memory ProblemRepository.
type fakeProblems struct {
	problems map[string]model.Problem
}

func (f fakeProblems) Get(ctx context.Context, id string) (model.Problem, error) {
	p, ok := f.problems[id]
	if !ok {
		return model.Problem{}, errors.New("problem not found")
	}
	return p, nil
}

// fakeEngine drives the sandbox engine for tests: verdictFor maps a test
// id to the outcome its run should classify to; echo, when true, copies
// stdin to stdout so a real comparator pass/fail can be exercised.
type fakeEngine struct {
	verdictFor map[string]model.Verdict
	echo       bool
}

func (f fakeEngine) Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error) {
	if f.echo {
		data, _ := os.ReadFile(rs.StdinPath)
		_ = os.WriteFile(rs.StdoutPath, data, 0640)
	}
	switch f.verdictFor[rs.TestID] {
	case model.VerdictWrongAnswer, model.VerdictAccepted, "":
		return result.RawResult{ExitedNormally: true, ExitCode: 0, WallTimeMs: 5, MemoryKB: 100}, nil
	case model.VerdictTimeLimitExceeded:
		return result.RawResult{KilledForWallTime: true, WallTimeMs: 2000}, nil
	case model.VerdictRuntimeErrorExit:
		return result.RawResult{ExitedNormally: true, ExitCode: 1}, nil
	default:
		return result.RawResult{ExitedNormally: true, ExitCode: 0}, nil
	}
}

func baseConfig(t *testing.T) model.Config {
	cfg := model.DefaultConfig()
	cfg.WorkspaceRoot = t.TempDir()
	cfg.WorkerPoolSize = 2
	cfg.OutputSizeLimitBytes = 1 << 20
	return cfg
}

func TestHandleSubmissionAcceptedAllTestsPass(t *testing.T) {
	sub := model.Submission{ID: "s1", ProblemID: "p1", Language: model.LanguagePython, Source: "print(1)"}
	problem := model.Problem{
		ID:          "p1",
		TimeLimitMs: 1000, MemoryLimitMB: 256,
		TestCases: []model.TestCase{
			{ID: "t1", Input: []byte("3 4\n"), Expected: []byte("3 4\n")},
			{ID: "t2", Input: []byte("1 2\n"), Expected: []byte("1 2\n")},
		},
	}
	subs := newFakeSubmissions(sub)
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{"p1": problem}},
		fakeEngine{echo: true}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := subs.snapshot("s1")
	if got.Status != model.StatusTerminal {
		t.Fatalf("expected Terminal status, got %q", got.Status)
	}
	if got.FinalVerdict != model.VerdictAccepted {
		t.Fatalf("expected Accepted, got %q", got.FinalVerdict)
	}
	if got.TotalScore != 100 {
		t.Fatalf("expected full score, got %d", got.TotalScore)
	}
	if len(got.Details) != 2 {
		t.Fatalf("expected 2 per-test details, got %d", len(got.Details))
	}
}

func TestHandleSubmissionWrongAnswerOnMismatch(t *testing.T) {
	sub := model.Submission{ID: "s2", ProblemID: "p1", Language: model.LanguagePython, Source: "print(1)"}
	problem := model.Problem{
		ID:          "p1",
		TimeLimitMs: 1000, MemoryLimitMB: 256,
		TestCases: []model.TestCase{{ID: "t1", Input: []byte("in\n"), Expected: []byte("expected-something-else\n")}},
	}
	subs := newFakeSubmissions(sub)
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{"p1": problem}},
		fakeEngine{echo: true}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "s2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := subs.snapshot("s2")
	if got.FinalVerdict != model.VerdictWrongAnswer {
		t.Fatalf("expected Wrong Answer, got %q", got.FinalVerdict)
	}
	if got.TotalScore != 0 {
		t.Fatalf("expected zero score, got %d", got.TotalScore)
	}
}

func TestHandleSubmissionCompilationErrorSkipsExecution(t *testing.T) {
	sub := model.Submission{ID: "s3", ProblemID: "p1", Language: model.LanguageCpp, Source: "not valid c++"}
	problem := model.Problem{
		ID: "p1", TimeLimitMs: 1000, MemoryLimitMB: 256,
		TestCases: []model.TestCase{{ID: "t1", Input: []byte("1\n"), Expected: []byte("1\n")}},
	}
	subs := newFakeSubmissions(sub)
	// A fake engine that would panic if invoked proves compilation failure
	// short-circuits the per-test loop.
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{"p1": problem}},
		panicEngine{}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "s3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := subs.snapshot("s3")
	if got.FinalVerdict != model.VerdictCompilationError {
		t.Fatalf("expected Compilation Error, got %q", got.FinalVerdict)
	}
	if len(got.Details) != 1 {
		t.Fatalf("expected exactly one detail entry for a compile failure, got %d", len(got.Details))
	}
	if got.Details[0].Diagnostic == "" {
		t.Fatalf("expected the compiler's captured diagnostic to be persisted, got empty string")
	}
}

type panicEngine struct{}

func (panicEngine) Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error) {
	panic("engine should not be invoked when compilation fails")
}

func TestHandleSubmissionProblemNotFoundMarksSystemError(t *testing.T) {
	sub := model.Submission{ID: "s4", ProblemID: "missing", Language: model.LanguagePython, Source: "print(1)"}
	subs := newFakeSubmissions(sub)
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{}},
		panicEngine{}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "s4"); err != nil {
		t.Fatalf("expected failTerminal to absorb the error, got %v", err)
	}
	got := subs.snapshot("s4")
	if got.Status != model.StatusTerminal {
		t.Fatalf("expected Terminal status even on a lookup failure, got %q", got.Status)
	}
	if got.FinalVerdict != model.VerdictSystemError {
		t.Fatalf("expected System Error to be persisted on a pre-loop failure, got %q", got.FinalVerdict)
	}
}

func TestHandleSubmissionZeroTestCasesIsSkipped(t *testing.T) {
	sub := model.Submission{ID: "s6", ProblemID: "p1", Language: model.LanguagePython, Source: "print(1)"}
	problem := model.Problem{ID: "p1", TimeLimitMs: 1000, MemoryLimitMB: 256}
	subs := newFakeSubmissions(sub)
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{"p1": problem}},
		panicEngine{}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "s6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := subs.snapshot("s6")
	if got.FinalVerdict != model.VerdictSkippedNoTests {
		t.Fatalf("expected Skipped (No Test Cases), got %q", got.FinalVerdict)
	}
	if got.TotalScore != 0 {
		t.Fatalf("expected zero score for a skipped submission, got %d", got.TotalScore)
	}
}

func TestHandleSubmissionUnknownSubmissionIsDropped(t *testing.T) {
	subs := newFakeSubmissions()
	o := New(baseConfig(t), subs, fakeProblems{problems: map[string]model.Problem{}},
		panicEngine{}, observer.NoOp{}, nil)

	if err := o.HandleSubmission(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("expected an unknown submission to be logged and dropped, got %v", err)
	}
	if got := subs.snapshot("does-not-exist"); got.Status != "" {
		t.Fatalf("expected nothing to be written for an unknown submission, got status %q", got.Status)
	}
}

func TestHandleSubmissionQueueFullWhenPoolExhausted(t *testing.T) {
	cfg := baseConfig(t)
	cfg.WorkerPoolSize = 1
	sub := model.Submission{ID: "s5", ProblemID: "p1", Language: model.LanguagePython, Source: "print(1)"}
	subs := newFakeSubmissions(sub)
	o := New(cfg, subs, fakeProblems{problems: map[string]model.Problem{"p1": {ID: "p1"}}},
		fakeEngine{}, observer.NoOp{}, nil)

	// Occupy the only slot directly so HandleSubmission must wait out
	// slotAcquireTimeout and report Judge Queue Full.
	o.slots <- struct{}{}
	defer func() { <-o.slots }()

	start := time.Now()
	err := o.HandleSubmission(context.Background(), "s5")
	if err == nil {
		t.Fatalf("expected a Judge Queue Full error")
	}
	if elapsed := time.Since(start); elapsed < slotAcquireTimeout {
		t.Fatalf("expected HandleSubmission to wait out the slot acquire timeout, only waited %v", elapsed)
	}
}
