package engine

import (
	"judgecore/internal/judge/sandbox/security"
	"judgecore/internal/judge/sandbox/spec"
)

// initRequest mirrors cmd/sandbox-init's wire format exactly; it is
// marshaled to JSON and piped to the helper's stdin. Kept as a plain
// duplicate rather than a shared import since cmd/sandbox-init is package
// main.
type initRequest struct {
	WorkDir    string   `json:"workDir"`
	Cmd        []string `json:"cmd"`
	Env        []string `json:"env"`
	StdinPath  string   `json:"stdinPath"`
	StdoutPath string   `json:"stdoutPath"`
	StderrPath string   `json:"stderrPath"`

	Limits initLimits `json:"limits"`

	EnableSeccomp bool                      `json:"enableSeccomp"`
	Profile       security.IsolationProfile `json:"profile"`
}

type initLimits struct {
	WallTimeMs  int64 `json:"wallTimeMs"`
	MemoryMB    int64 `json:"memoryMB"`
	OutputBytes int64 `json:"outputBytes"`
	PIDs        int64 `json:"pids"`
}

func buildInitRequest(rs spec.RunSpec, profile security.IsolationProfile, enableSeccomp bool) initRequest {
	return initRequest{
		WorkDir:    rs.WorkDir,
		Cmd:        rs.Cmd,
		Env:        rs.Env,
		StdinPath:  rs.StdinPath,
		StdoutPath: rs.StdoutPath,
		StderrPath: rs.StderrPath,
		Limits: initLimits{
			WallTimeMs:  rs.Limits.WallTimeMs,
			MemoryMB:    rs.Limits.MemoryMB,
			OutputBytes: rs.Limits.OutputBytes,
			PIDs:        rs.Limits.PIDs,
		},
		EnableSeccomp: enableSeccomp,
		Profile:       profile,
	}
}
