//go:build !linux

package engine

import (
	"context"
	"fmt"

	"judgecore/internal/judge/sandbox/result"
	"judgecore/internal/judge/sandbox/spec"
)

func newPlatformEngine(cfg Config) Engine {
	return stubEngine{}
}

// stubEngine reports System Error unconditionally: cgroup v2 and Linux
// namespaces have no equivalent on this platform, so judging can't run
// here at all. It exists so the module builds (e.g. for `go vet` on a
// developer's Mac) without requiring Linux.
type stubEngine struct{}

func (stubEngine) Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error) {
	err := fmt.Errorf("sandbox engine requires linux (cgroup v2 and namespaces)")
	return result.RawResult{SetupError: err}, err
}
