// Package result defines the raw and classified outcomes produced by a
// sandboxed run (§4.3).
package result

import "judgecore/internal/judge/model"

// RawResult is the engine's unclassified measurement of one sandboxed
// invocation: what happened at the OS level, before §4.3's exit
// classification rules turn it into a model.Verdict.
type RawResult struct {
	// ExitedNormally is true if the child called exit()/returned from
	// main rather than being killed by a signal.
	ExitedNormally bool
	ExitCode       int

	// Signal is the terminating signal number when ExitedNormally is
	// false; 0 otherwise.
	Signal int

	WallTimeMs int64
	// MemoryKB is the peak RSS observed by the 10ms monitoring loop (or the cgroup's memory.peak, when larger).
	MemoryKB int64

	// KilledForWallTime / KilledForMemory record which monitoring-loop
	// termination condition fired, if any (§4.3 "Monitoring loop").
	KilledForWallTime bool
	KilledForMemory   bool
	// KilledForFileSize records a SIGXFSZ kill, the OLE trigger resolved
	// in §9's open question.
	KilledForFileSize bool

	// SetupError is set when the engine could not even launch the child
	// (cgroup/namespace/helper failure); it always classifies as
	// System Error and bypasses the exit-classification table.
	SetupError error
}

// Signal numbers §4.3's classification table distinguishes, named rather
// than imported from syscall so this package stays platform-independent.
const (
	sigFpe  = 8
	sigKill = 9
	sigSegv = 11
	sigBus  = 7
	sigIll  = 4
	sigSys  = 31
)

// Classify applies the §4.3 "Exit classification (post-wait)" rules.
// memoryLimitMB is the problem's declared limit, used for the 90%
// threshold that disambiguates a bare SIGKILL between MLE and TLE.
func (r RawResult) Classify(memoryLimitMB int64) model.Verdict {
	if r.SetupError != nil {
		return model.VerdictSystemError
	}
	if r.KilledForFileSize {
		return model.VerdictOutputLimitExceeded
	}
	if r.KilledForMemory {
		return model.VerdictMemoryLimitExceeded
	}
	if r.KilledForWallTime {
		return model.VerdictTimeLimitExceeded
	}
	if r.ExitedNormally {
		if r.ExitCode == 0 {
			return model.VerdictAccepted
		}
		return model.VerdictRuntimeErrorExit
	}

	switch r.Signal {
	case sigSegv, sigBus, sigFpe, sigIll:
		return model.VerdictRuntimeErrorSignal
	case sigSys:
		return model.VerdictRuntimeErrorSyscall
	case sigKill:
		// The monitoring loop didn't claim this kill (handled above), so it
		// came from the cgroup OOM killer or an external rlimit. Use the
		// 90% threshold to tell MLE from a kernel-level TLE.
		limitKB := memoryLimitMB * 1024
		if limitKB > 0 && r.MemoryKB*10 >= limitKB*9 {
			return model.VerdictMemoryLimitExceeded
		}
		return model.VerdictTimeLimitExceeded
	default:
		return model.VerdictRuntimeErrorExit
	}
}

// CompileResult is the Compiler Driver's outcome (§4.2).
type CompileResult struct {
	OK         bool
	Cmd        []string
	Diagnostic string
	TimedOut   bool
}
