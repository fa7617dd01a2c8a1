package engine

import (
	"testing"

	"judgecore/internal/judge/sandbox/security"
	"judgecore/internal/judge/sandbox/spec"
)

func TestBuildInitRequestCarriesRunSpecAndLimitsThrough(t *testing.T) {
	rs := spec.RunSpec{
		WorkDir:    "/work",
		Cmd:        []string{"/work/a.out"},
		Env:        []string{"LANG=C"},
		StdinPath:  "/work/in",
		StdoutPath: "/work/out",
		StderrPath: "/work/err",
		Limits: spec.ResourceLimit{
			WallTimeMs:  2000,
			MemoryMB:    256,
			OutputBytes: 1 << 20,
			PIDs:        32,
		},
	}
	profile := security.ProfileBatch

	req := buildInitRequest(rs, profile, true)

	if req.WorkDir != rs.WorkDir || req.StdinPath != rs.StdinPath || req.StdoutPath != rs.StdoutPath || req.StderrPath != rs.StderrPath {
		t.Fatalf("expected stdio/workdir paths to be carried through unchanged, got %+v", req)
	}
	if len(req.Cmd) != 1 || req.Cmd[0] != "/work/a.out" {
		t.Fatalf("expected cmd to be carried through, got %v", req.Cmd)
	}
	if req.Limits.WallTimeMs != 2000 || req.Limits.MemoryMB != 256 || req.Limits.OutputBytes != 1<<20 || req.Limits.PIDs != 32 {
		t.Fatalf("expected limits to be carried through unchanged, got %+v", req.Limits)
	}
	if !req.EnableSeccomp {
		t.Fatalf("expected enableSeccomp to be carried through")
	}
	if req.Profile.Name != profile.Name {
		t.Fatalf("expected profile to be carried through, got %+v", req.Profile)
	}
}

func TestBuildInitRequestDisablesSeccompWhenRequested(t *testing.T) {
	req := buildInitRequest(spec.RunSpec{}, security.IsolationProfile{}, false)
	if req.EnableSeccomp {
		t.Fatalf("expected enableSeccomp to reflect the argument, not default to true")
	}
}
