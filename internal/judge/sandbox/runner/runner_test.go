package runner

import (
	"context"
	"errors"
	"testing"

	"judgecore/internal/judge/model"
	"judgecore/internal/judge/sandbox/result"
	"judgecore/internal/judge/sandbox/spec"
)

type fakeEngine struct {
	raw result.RawResult
	err error
}

func (f fakeEngine) Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error) {
	return f.raw, f.err
}

func TestRunClassifiesAcceptedOutcome(t *testing.T) {
	r := New(fakeEngine{raw: result.RawResult{ExitedNormally: true, ExitCode: 0, WallTimeMs: 42, MemoryKB: 1024}})
	res, err := r.Run(context.Background(), Request{TestCaseID: "t1", MemoryLimitMB: 256})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != model.VerdictAccepted {
		t.Fatalf("expected Accepted, got %q", res.Verdict)
	}
	if res.TestCaseID != "t1" {
		t.Fatalf("expected test case id to be preserved")
	}
	if res.TimeMs != 42 || res.MemoryKB != 1024 {
		t.Fatalf("expected raw timing/memory to be carried through")
	}
}

func TestRunPropagatesEngineErrorAlongsideClassification(t *testing.T) {
	engineErr := errors.New("cgroup setup failed")
	r := New(fakeEngine{raw: result.RawResult{SetupError: engineErr}, err: engineErr})
	res, err := r.Run(context.Background(), Request{TestCaseID: "t2"})
	if err == nil {
		t.Fatalf("expected the engine error to propagate")
	}
	if res.Verdict != model.VerdictSystemError {
		t.Fatalf("expected System Error verdict alongside the propagated error, got %q", res.Verdict)
	}
}

func TestRunClassifiesWrongExitCodeAsRuntimeError(t *testing.T) {
	r := New(fakeEngine{raw: result.RawResult{ExitedNormally: true, ExitCode: 1}})
	res, err := r.Run(context.Background(), Request{TestCaseID: "t3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict != model.VerdictRuntimeErrorExit {
		t.Fatalf("expected Runtime Error (Non-zero exit), got %q", res.Verdict)
	}
	if res.ReturnCode != 1 {
		t.Fatalf("expected return code to be carried through, got %d", res.ReturnCode)
	}
}
