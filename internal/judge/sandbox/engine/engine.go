// Package engine implements the low-level isolation mechanics of the
// Sandbox Runner (§4.3): cgroup v2 resource accounting, the reexec into
// cmd/sandbox-init for namespace/seccomp setup, and the monitoring loop
// that enforces wall-clock and memory limits.
package engine

import (
	"context"

	"judgecore/internal/judge/sandbox/result"
	"judgecore/internal/judge/sandbox/spec"
)

// Engine runs one sandboxed invocation to completion and reports what
// happened, without interpreting it into a verdict — that's §4.3's
// exit-classification step, done by result.RawResult.Classify.
type Engine interface {
	Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error)
}

// New builds the platform's Engine implementation. On non-Linux targets
// this is a stub that reports System Error for every run, since cgroups
// and namespaces are Linux-only.
func New(cfg Config) Engine {
	return newPlatformEngine(cfg)
}
