// Package model defines the data types shared across the judging core:
// submissions, problems, test cases and per-test results.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Language identifies one of the closed set of supported source languages.
type Language string

const (
	LanguagePython Language = "python"
	LanguageCpp    Language = "cpp"
	LanguageC      Language = "c"
)

// Verdict is the terminal outcome of a submission or a single test case.
type Verdict string

const (
	VerdictAccepted            Verdict = "Accepted"
	VerdictWrongAnswer         Verdict = "Wrong Answer"
	VerdictCompilationError    Verdict = "Compilation Error"
	VerdictTimeLimitExceeded   Verdict = "Time Limit Exceeded"
	VerdictMemoryLimitExceeded Verdict = "Memory Limit Exceeded"
	VerdictOutputLimitExceeded Verdict = "Output Limit Exceeded"
	VerdictRuntimeErrorSignal  Verdict = "Runtime Error (SIGSEGV)"
	VerdictRuntimeErrorSyscall Verdict = "Runtime Error (Forbidden Syscall)"
	VerdictRuntimeErrorExit    Verdict = "Runtime Error (Non-zero exit)"
	VerdictSystemError         Verdict = "System Error"
	VerdictSkippedNoTests      Verdict = "Skipped (No Test Cases)"
)

// verdictRank implements the §4.5 precedence order, highest priority first.
// Lower rank wins when folding per-test verdicts into a submission status.
var verdictRank = map[Verdict]int{
	VerdictSystemError:         0,
	VerdictCompilationError:    1,
	VerdictMemoryLimitExceeded: 2,
	VerdictTimeLimitExceeded:   3,
	VerdictOutputLimitExceeded: 4,
	VerdictRuntimeErrorSignal:  5,
	VerdictRuntimeErrorSyscall: 5,
	VerdictRuntimeErrorExit:    5,
	VerdictWrongAnswer:         6,
	VerdictAccepted:            7,
}

// Rank returns the §4.5 precedence rank; lower values win ties.
func (v Verdict) Rank() int {
	if r, ok := verdictRank[v]; ok {
		return r
	}
	return verdictRank[VerdictSystemError]
}

// IsRuntimeError reports whether v is any Runtime Error sub-kind.
func (v Verdict) IsRuntimeError() bool {
	switch v {
	case VerdictRuntimeErrorSignal, VerdictRuntimeErrorSyscall, VerdictRuntimeErrorExit:
		return true
	default:
		return false
	}
}

// Status is the coarse submission lifecycle state (§3, §4.6).
type Status string

const (
	StatusPending  Status = "Pending"
	StatusJudging  Status = "Judging"
	StatusTerminal Status = "Terminal"
)

// TestCase is one input/expected-output pair belonging to a Problem.
type TestCase struct {
	ID       string
	Input    []byte
	Expected []byte
	IsSample bool
}

// Hash returns the content hash of (input, expected), used to verify
// extracted data-pack test cases against the pack manifest and to test
// ordering/equivalence invariants.
func (t TestCase) Hash() string {
	h := sha256.New()
	h.Write(t.Input)
	h.Write([]byte{0})
	h.Write(t.Expected)
	return hex.EncodeToString(h.Sum(nil))
}

// Problem carries the resource limits and ordered test suite for one
// submission's judging run.
type Problem struct {
	ID            string
	TimeLimitMs   int64
	MemoryLimitMB int64
	TestCases     []TestCase
	Partial       bool

	// SpecialJudge and CheckerSource declare the extension point of §4.4;
	// no production code path invokes the checker in this revision.
	SpecialJudge  bool
	CheckerSource string

	ExtraCompileFlags string

	// DataPackObjectKey names the compressed test-data bundle in object
	// storage for problems whose corpus is too large to store inline in
	// TestCases; empty means every TestCase already carries its own
	// Input/Expected bytes. See internal/judge/datapack.
	DataPackObjectKey string
}

// PerTestResult is the outcome of running one test case through the
// sandbox and comparator.
type PerTestResult struct {
	TestCaseID string
	Verdict    Verdict
	TimeMs     int64
	MemoryKB   int64
	ReturnCode int

	// Diagnostic carries the compiler's captured stdout/stderr (already
	// capped at 64 KiB by the Compiler Driver) when Verdict is
	// CompilationError; empty for every other verdict.
	Diagnostic string
}

// Submission is the unit of work the judging core consumes from the queue.
type Submission struct {
	ID        string
	UserID    string
	ProblemID string
	Language  Language
	Source    string
	Status    Status

	TotalScore    int
	TimeUsedMs    int64
	MemoryUsedKB  int64
	Details       []PerTestResult
	FinalVerdict  Verdict
	CreatedAtUnix int64
}
