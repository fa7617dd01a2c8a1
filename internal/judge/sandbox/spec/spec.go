// Package spec defines the unified execution specification the Sandbox
// Runner's isolation engine consumes, independent of which concrete
// mechanism (cgroups, isolate-style box, namespaces) services it.
package spec

// ResourceLimit carries the hard limits enforced by one sandboxed
// invocation, expressed the way §4.3 states them.
type ResourceLimit struct {
	// WallTimeMs is the problem's declared time limit; the engine enforces
	// a hard kill at WallTimeFactor x WallTimeMs.
	WallTimeMs int64
	// MemoryMB is the problem's declared memory limit.
	MemoryMB int64
	// OutputBytes bounds the child's RLIMIT_FSIZE (default 64MiB).
	OutputBytes int64
	// PIDs bounds the cgroup's pids.max; 0 means "max".
	PIDs int64
}

// RunSpec is one sandboxed invocation: a command, its stdio redirection,
// and the limits to enforce against it.
type RunSpec struct {
	// SubmissionID and TestID name the isolation context (cgroup leaf,
	// reexec token) uniquely; they do not identify the command run.
	SubmissionID string
	TestID       string

	WorkDir    string
	Cmd        []string
	Env        []string
	StdinPath  string
	StdoutPath string
	StderrPath string

	// Profile selects the security.IsolationProfile (syscall allowlist,
	// network policy) to apply.
	Profile string

	Limits ResourceLimit
}
