// Package service implements the Task Orchestrator (§4.6): the state
// machine that drives one submission through Workspace -> Compile ->
// (Run -> Compare) per test -> Aggregate -> store, and the §7 error
// policy for turning infrastructure failures into a terminal status
// rather than losing the submission.
package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"judgecore/internal/judge/aggregator"
	"judgecore/internal/judge/comparator"
	"judgecore/internal/judge/compiler"
	"judgecore/internal/judge/datapack"
	"judgecore/internal/judge/model"
	"judgecore/internal/judge/repository"
	"judgecore/internal/judge/sandbox/engine"
	"judgecore/internal/judge/sandbox/observer"
	"judgecore/internal/judge/sandbox/runner"
	"judgecore/internal/judge/sandbox/spec"
	"judgecore/internal/judge/workspace"
	appErr "judgecore/pkg/errors"
	"judgecore/pkg/utils/logger"

	"go.uber.org/zap"
)

// Orchestrator wires the judging-core components together and exposes
// the single entry point the queue consumer calls per submission.
type Orchestrator struct {
	cfg         model.Config
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	workspaces  *workspace.Manager
	compile     *compiler.Driver
	run         *runner.Runner
	metrics     observer.MetricsRecorder
	packs       *datapack.Store

	// slots bounds concurrent in-flight submissions on this host (§5's
	// WorkerPool); HandleSubmission blocks on acquireSlot until one frees.
	slots chan struct{}
}

// New builds an Orchestrator. eng is the platform sandbox engine
// (engine.New(engineConfig)); callers own its lifecycle. packs may be nil
// when no problem in this deployment uses the §6.2 data-pack path; every
// problem's TestCases are then expected to already carry inline bytes.
func New(cfg model.Config, submissions repository.SubmissionRepository, problems repository.ProblemRepository, eng engine.Engine, metrics observer.MetricsRecorder, packs *datapack.Store) *Orchestrator {
	if metrics == nil {
		metrics = observer.NoOp{}
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Orchestrator{
		cfg:         cfg,
		submissions: submissions,
		problems:    problems,
		workspaces:  workspace.NewManager(cfg.WorkspaceRoot),
		compile:     compiler.New(cfg.CompileTimeout),
		run:         runner.New(eng),
		metrics:     metrics,
		packs:       packs,
		slots:       make(chan struct{}, poolSize),
	}
}

// slotAcquireTimeout bounds how long HandleSubmission waits for a free
// worker slot before giving up and reporting Judge Queue Full; §7 ties
// this to the JudgeQueueFull error code rather than blocking the queue
// consumer indefinitely under sustained overload.
const slotAcquireTimeout = 2 * time.Second

// HandleSubmission runs the full §4.6 pipeline for one submission id.
// An unknown submission id (SubmissionNotFound) is logged and dropped
// with a nil return. Failures after the submission has been read are
// absorbed into a System Error terminal status through failTerminal.
// HandleSubmission returns an error only when no worker slot frees up
// within slotAcquireTimeout (JudgeQueueFull), when reading the submission
// fails for another reason, or when a status or result write to the store
// fails; that error is left to the queue consumer's retry handling.
func (o *Orchestrator) HandleSubmission(ctx context.Context, submissionID string) error {
	if !o.acquireSlot(ctx) {
		return appErr.New(appErr.JudgeQueueFull).WithMessage("no worker slot available")
	}
	defer o.releaseSlot()

	o.metrics.IncQueueDepth()
	defer o.metrics.DecQueueDepth()

	sub, err := o.submissions.Get(ctx, submissionID)
	if err != nil {
		if appErr.Is(err, appErr.SubmissionNotFound) {
			logger.Warn(ctx, "submission not found, dropping message",
				zap.String("submission_id", submissionID))
			return nil
		}
		return err
	}

	problem, err := o.problems.Get(ctx, sub.ProblemID)
	if err != nil {
		return o.failTerminal(ctx, submissionID, nil, err)
	}

	if err := o.submissions.SetStatus(ctx, submissionID, model.StatusJudging); err != nil {
		return err
	}

	details, err := o.judge(ctx, sub, problem)
	if err != nil {
		return o.failTerminal(ctx, submissionID, details, err)
	}

	summary := aggregator.Aggregate(problem, details)
	if err := o.submissions.SetResult(ctx, submissionID, model.StatusTerminal, summary.Verdict, summary.TotalScore, summary.TimeUsedMs, summary.MemoryUsedKB, summary.Details); err != nil {
		return err
	}
	logger.Info(ctx, "submission judged",
		zap.String("submission_id", submissionID),
		zap.String("verdict", string(summary.Verdict)),
		zap.Int("score", summary.TotalScore))
	return nil
}

// judge runs the compile-then-test-loop pipeline and returns whatever
// per-test details were produced before any infrastructure error, so a
// partial record can still be stored on failure (§7).
func (o *Orchestrator) judge(ctx context.Context, sub model.Submission, problem model.Problem) ([]model.PerTestResult, error) {
	ws, err := o.workspaces.Open(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	defer o.workspaces.Close(ctx, ws)

	sourceName, err := compiler.SourceFileName(sub.Language)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.InvalidParams)
	}
	sourcePath := ws.SourcePath(strings.TrimPrefix(filepath.Ext(sourceName), "."))
	if err := writeFile(sourcePath, []byte(sub.Source)); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeWorkspaceError, "write submission source")
	}

	compileStart := time.Now()
	compileRes, err := o.compile.Compile(ctx, sub.Language, ws.Dir(), sourcePath, ws.ExecutablePath(), problem.ExtraCompileFlags)
	o.metrics.ObserveCompile(string(sub.Language), time.Since(compileStart), err == nil && compileRes.OK)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "invoke compiler")
	}
	if !compileRes.OK {
		return []model.PerTestResult{{Verdict: model.VerdictCompilationError, Diagnostic: compileRes.Diagnostic}}, nil
	}

	cmd, err := runCommand(sub.Language, sourcePath, ws.ExecutablePath())
	if err != nil {
		return nil, err
	}

	var packDir string
	if o.packs != nil {
		packDir, err = o.packs.Ensure(ctx, problem)
		if err != nil {
			return nil, err
		}
	}

	details := make([]model.PerTestResult, 0, len(problem.TestCases))
	for i, tc := range problem.TestCases {
		input, expected := tc.Input, tc.Expected
		if len(input) == 0 && len(expected) == 0 && packDir != "" {
			input, expected, err = datapack.Load(packDir, tc.ID)
			if err != nil {
				return details, appErr.Wrapf(err, appErr.JudgeSystemError, "load data pack test %d", i)
			}
		}

		inputPath := ws.InputPath(i)
		outputPath := ws.OutputPath(i)
		errorPath := ws.ErrorPath(i)
		if err := writeFile(inputPath, input); err != nil {
			return details, appErr.Wrapf(err, appErr.JudgeWorkspaceError, "write test %d input", i)
		}

		rs := spec.RunSpec{
			SubmissionID: sub.ID,
			TestID:       tc.ID,
			WorkDir:      ws.Dir(),
			Cmd:          cmd,
			StdinPath:    inputPath,
			StdoutPath:   outputPath,
			StderrPath:   errorPath,
			Profile:      "batch",
			Limits: spec.ResourceLimit{
				WallTimeMs:  problem.TimeLimitMs,
				MemoryMB:    problem.MemoryLimitMB,
				OutputBytes: o.cfg.OutputSizeLimitBytes,
			},
		}

		runStart := time.Now()
		res, runErr := o.run.Run(ctx, runner.Request{TestCaseID: tc.ID, RunSpec: rs, MemoryLimitMB: problem.MemoryLimitMB})
		o.metrics.ObserveRun(string(sub.Language), string(res.Verdict), time.Since(runStart))
		if runErr != nil {
			// A sandbox failure is charged to this test alone; the loop
			// goes on and the aggregator surfaces System Error (§7).
			o.metrics.ObserveSandboxSetupFailure(runErr.Error())
			logger.Error(ctx, "sandbox run failed, recording System Error for this test",
				zap.String("submission_id", sub.ID), zap.Int("test_index", i), zap.Error(runErr))
			details = append(details, model.PerTestResult{TestCaseID: tc.ID, Verdict: model.VerdictSystemError})
			continue
		}

		if res.Verdict == model.VerdictAccepted {
			accepted, cmpErr := compareOutput(outputPath, expected, o.cfg.OutputSizeLimitBytes)
			if cmpErr != nil {
				details = append(details, res)
				return details, appErr.Wrapf(cmpErr, appErr.JudgeSystemError, "compare test %d output", i)
			}
			if !accepted {
				res.Verdict = model.VerdictWrongAnswer
			}
		}

		details = append(details, res)

		// Non-partial problems still run every test (§8's "no test is
		// skipped based on earlier failure" invariant); only reporting
		// precedence, applied later by the aggregator, picks the verdict.
	}

	return details, nil
}

// failTerminal marks a submission System Error with whatever per-test
// details were already gathered, per §7's "never leave a submission
// stuck mid-pipeline" policy. The cause is logged here; failTerminal
// returns nil once the System Error result is stored, and returns only
// the store's error if that write fails.
func (o *Orchestrator) failTerminal(ctx context.Context, submissionID string, details []model.PerTestResult, cause error) error {
	logger.Error(ctx, "submission judging failed, marking system error",
		zap.String("submission_id", submissionID), zap.Error(cause))

	var timeUsedMs, memoryUsedKB int64
	for _, d := range details {
		if d.TimeMs > timeUsedMs {
			timeUsedMs = d.TimeMs
		}
		if d.MemoryKB > memoryUsedKB {
			memoryUsedKB = d.MemoryKB
		}
	}
	if setErr := o.submissions.SetResult(ctx, submissionID, model.StatusTerminal, model.VerdictSystemError, 0, timeUsedMs, memoryUsedKB, details); setErr != nil {
		return setErr
	}
	return nil
}

func (o *Orchestrator) acquireSlot(ctx context.Context) bool {
	select {
	case o.slots <- struct{}{}:
		return true
	default:
	}
	timer := time.NewTimer(slotAcquireTimeout)
	defer timer.Stop()
	select {
	case o.slots <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) releaseSlot() {
	<-o.slots
}

func runCommand(language model.Language, sourcePath, executablePath string) ([]string, error) {
	switch language {
	case model.LanguagePython:
		return []string{"python3", sourcePath}, nil
	case model.LanguageC, model.LanguageCpp:
		return []string{executablePath}, nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
}

func compareOutput(outputPath string, expected []byte, limitBytes int64) (bool, error) {
	f, err := os.Open(outputPath)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return comparator.Compare(f, bytes.NewReader(expected), limitBytes)
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0640)
}
