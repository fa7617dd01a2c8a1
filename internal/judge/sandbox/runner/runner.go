// Package runner is the Sandbox Runner facade (§4.3): it drives one test
// case through the isolation engine and turns the raw outcome into a
// model.PerTestResult, ready for the Comparator.
package runner

import (
	"context"

	"judgecore/internal/judge/model"
	"judgecore/internal/judge/sandbox/engine"
	"judgecore/internal/judge/sandbox/spec"
)

// Request is one test case's sandboxed execution, already resolved to
// concrete filesystem paths by the Workspace Manager.
type Request struct {
	TestCaseID string
	RunSpec    spec.RunSpec
	// MemoryLimitMB is passed alongside RunSpec.Limits.MemoryMB since the
	// 90% MLE/TLE disambiguation threshold needs the problem's declared
	// limit even when the cgroup cap itself is looser.
	MemoryLimitMB int64
}

// Runner executes test cases in the sandbox, one at a time per caller
// goroutine; concurrency across test cases is the orchestrator's concern
// (§5's WorkerPool), not this package's.
type Runner struct {
	eng engine.Engine
}

func New(eng engine.Engine) *Runner {
	return &Runner{eng: eng}
}

// Run executes req and classifies the outcome per §4.3. It never returns
// an error for a program's own misbehavior (crash, timeout, OOM) — those
// come back as a Verdict. An error return means the sandbox itself
// couldn't run the test, which the caller should fold into System Error.
func (r *Runner) Run(ctx context.Context, req Request) (model.PerTestResult, error) {
	raw, err := r.eng.Run(ctx, req.RunSpec)
	verdict := raw.Classify(req.MemoryLimitMB)

	res := model.PerTestResult{
		TestCaseID: req.TestCaseID,
		Verdict:    verdict,
		TimeMs:     raw.WallTimeMs,
		MemoryKB:   raw.MemoryKB,
		ReturnCode: raw.ExitCode,
	}
	return res, err
}
