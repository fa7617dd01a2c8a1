//go:build linux

// Command sandbox-init is the reexec target launched inside the cloned
// namespaces (§4.3 "Process isolation helper"). It receives a JSON
// initRequest on stdin, applies rlimits and the seccomp filter, redirects
// stdio, then calls unix.Exec to replace its own image with the target
// program — preserving the PID the parent is already monitoring.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"judgecore/internal/judge/sandbox/security"

	"golang.org/x/sys/unix"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox-init: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	req, err := decodeRequest(os.Stdin)
	if err != nil {
		return err
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	if err := os.Chdir(req.WorkDir); err != nil {
		return fmt.Errorf("chdir workdir: %w", err)
	}

	if err := applyRlimits(req.Limits); err != nil {
		return err
	}

	if err := redirectIO(req); err != nil {
		return err
	}

	if req.EnableSeccomp {
		if err := security.Install(req.Profile); err != nil {
			// §4.3 point 5: seccomp setup failure degrades to running
			// unfiltered rather than aborting the judge for every
			// submission on a kernel without the needed support.
			fmt.Fprintln(os.Stderr, "sandbox-init: seccomp install failed: "+err.Error())
		}
	}

	env := buildEnv(req.Env)
	os.Clearenv()
	for _, kv := range env {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if err := os.Setenv(parts[0], parts[1]); err != nil {
			return fmt.Errorf("set env: %w", err)
		}
	}

	// The PATH from buildEnv is set in this process only to resolve
	// req.Cmd[0]; the target program receives exactly req.Env, which is
	// empty unless the RunSpec sets one.
	cmdPath, err := exec.LookPath(req.Cmd[0])
	if err != nil {
		return fmt.Errorf("resolve command: %w", err)
	}
	return unix.Exec(cmdPath, req.Cmd, req.Env)
}

func decodeRequest(r io.Reader) (initRequest, error) {
	var req initRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return initRequest{}, fmt.Errorf("decode init request: %w", err)
	}
	return req, nil
}

func validateRequest(req initRequest) error {
	if len(req.Cmd) == 0 {
		return fmt.Errorf("command is required")
	}
	if req.WorkDir == "" {
		return fmt.Errorf("work dir is required")
	}
	return nil
}

func applyRlimits(limits initLimits) error {
	if limits.WallTimeMs > 0 {
		// CPU-time rlimit is a blunt backstop behind the monitoring
		// loop's own wall-clock kill. The engine sends the hard wall cap
		// (factor x limit) as WallTimeMs; round up so it never fires first.
		seconds := uint64((limits.WallTimeMs+999)/1000) + 1
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: seconds, Max: seconds}); err != nil {
			return fmt.Errorf("set rlimit cpu: %w", err)
		}
	}
	if limits.OutputBytes > 0 {
		bytes := uint64(limits.OutputBytes)
		if err := unix.Setrlimit(unix.RLIMIT_FSIZE, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set rlimit fsize: %w", err)
		}
	}
	if limits.MemoryMB > 0 {
		// §4.3: stack rlimit equals the memory limit so a stack overflow
		// surfaces as SIGSEGV rather than silently growing into the heap.
		bytes := uint64(limits.MemoryMB * 1024 * 1024)
		if err := unix.Setrlimit(unix.RLIMIT_STACK, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set rlimit stack: %w", err)
		}
	}
	if limits.PIDs > 0 {
		val := uint64(limits.PIDs)
		if err := unix.Setrlimit(unix.RLIMIT_NPROC, &unix.Rlimit{Cur: val, Max: val}); err != nil {
			return fmt.Errorf("set rlimit nproc: %w", err)
		}
	}
	return nil
}

func redirectIO(req initRequest) error {
	stdinPath := req.StdinPath
	if stdinPath == "" {
		stdinPath = "/dev/null"
	}
	stdoutPath := req.StdoutPath
	if stdoutPath == "" {
		stdoutPath = "/dev/null"
	}
	stderrPath := req.StderrPath
	if stderrPath == "" {
		stderrPath = "/dev/null"
	}

	stdinFile, err := os.Open(stdinPath)
	if err != nil {
		return fmt.Errorf("open stdin: %w", err)
	}
	defer stdinFile.Close()
	stdoutFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open stdout: %w", err)
	}
	defer stdoutFile.Close()
	stderrFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open stderr: %w", err)
	}
	defer stderrFile.Close()

	if err := unix.Dup2(int(stdinFile.Fd()), int(os.Stdin.Fd())); err != nil {
		return fmt.Errorf("dup stdin: %w", err)
	}
	if err := unix.Dup2(int(stdoutFile.Fd()), int(os.Stdout.Fd())); err != nil {
		return fmt.Errorf("dup stdout: %w", err)
	}
	if err := unix.Dup2(int(stderrFile.Fd()), int(os.Stderr.Fd())); err != nil {
		return fmt.Errorf("dup stderr: %w", err)
	}
	return nil
}

func buildEnv(env []string) []string {
	if len(env) > 0 {
		return env
	}
	return []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}
}

// initRequest is the wire format the engine writes to sandbox-init's stdin.
// It mirrors spec.RunSpec plus the resolved security profile, flattened so
// this binary doesn't need to import the engine package.
type initRequest struct {
	WorkDir    string   `json:"workDir"`
	Cmd        []string `json:"cmd"`
	Env        []string `json:"env"`
	StdinPath  string   `json:"stdinPath"`
	StdoutPath string   `json:"stdoutPath"`
	StderrPath string   `json:"stderrPath"`

	Limits initLimits `json:"limits"`

	EnableSeccomp bool                     `json:"enableSeccomp"`
	Profile       security.IsolationProfile `json:"profile"`
}

type initLimits struct {
	WallTimeMs  int64 `json:"wallTimeMs"`
	MemoryMB    int64 `json:"memoryMB"`
	OutputBytes int64 `json:"outputBytes"`
	PIDs        int64 `json:"pids"`
}
