//go:build linux

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"judgecore/internal/judge/sandbox/result"
	"judgecore/internal/judge/sandbox/security"
	"judgecore/internal/judge/sandbox/spec"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	sigKill       = 9
	sigXFSZ       = 25
	minCloneFlags = unix.CLONE_NEWPID | unix.CLONE_NEWNS | unix.CLONE_NEWUTS | unix.CLONE_NEWIPC
)

func newPlatformEngine(cfg Config) Engine {
	return &linuxEngine{cfg: cfg, profiles: security.NewResolver()}
}

type linuxEngine struct {
	cfg      Config
	profiles *security.Resolver
}

// Run launches one sandboxed invocation via a reexec into
// cmd/sandbox-init, polls its resource usage every cfg.MonitorInterval,
// and enforces the wall-clock and memory limits described in §4.3.
func (e *linuxEngine) Run(ctx context.Context, rs spec.RunSpec) (result.RawResult, error) {
	profile, err := e.profiles.Resolve(rs.Profile)
	if err != nil {
		return result.RawResult{SetupError: err}, err
	}

	token := uuid.New().String()

	var cgroupDir string
	if e.cfg.EnableCgroup {
		cgroupDir, err = createRunCgroup(e.cfg.CgroupRoot, token, rs.Limits)
		if err != nil {
			return result.RawResult{SetupError: err}, err
		}
		defer removeCgroup(cgroupDir)
	}

	// sandbox-init derives its CPU-time rlimit from WallTimeMs, so it gets
	// the hard wall-clock cap the monitoring loop below enforces.
	initRS := rs
	initRS.Limits.WallTimeMs = e.cfg.WallTimeFactor * rs.Limits.WallTimeMs
	payload, err := json.Marshal(buildInitRequest(initRS, profile, e.cfg.EnableSeccomp))
	if err != nil {
		return result.RawResult{SetupError: err}, fmt.Errorf("marshal init request: %w", err)
	}

	cmd := exec.Command(e.cfg.SandboxHelperPath)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.SysProcAttr = &syscall.SysProcAttr{}
	if e.cfg.EnableNamespaces {
		flags := uintptr(minCloneFlags)
		if profile.DisableNetwork {
			flags |= unix.CLONE_NEWNET
		}
		cmd.SysProcAttr.Cloneflags = flags
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return result.RawResult{SetupError: err}, fmt.Errorf("start sandbox-init: %w", err)
	}

	if e.cfg.EnableCgroup {
		if err := addProcessToCgroup(cgroupDir, cmd.Process.Pid); err != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
			return result.RawResult{SetupError: err}, err
		}
	}

	var peakKB int64
	var killedMemory, killedWallTime int32
	deadline := start.Add(time.Duration(e.cfg.WallTimeFactor*rs.Limits.WallTimeMs) * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	interval := e.cfg.MonitorInterval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

monitor:
	for {
		select {
		case <-done:
			break monitor
		case <-ctx.Done():
			killProcessGroup(cmd, cgroupDir, e.cfg.EnableCgroup)
			<-done
			break monitor
		case <-ticker.C:
			if rssKB, ok := readProcRSSKB(cmd.Process.Pid); ok && rssKB > peakKB {
				peakKB = rssKB
			}
			if rs.Limits.MemoryMB > 0 && peakKB*1024 > rs.Limits.MemoryMB*1024*1024 {
				atomic.StoreInt32(&killedMemory, 1)
				killProcessGroup(cmd, cgroupDir, e.cfg.EnableCgroup)
			} else if time.Now().After(deadline) {
				atomic.StoreInt32(&killedWallTime, 1)
				killProcessGroup(cmd, cgroupDir, e.cfg.EnableCgroup)
			}
		}
	}

	wallMs := time.Since(start).Milliseconds()
	if e.cfg.EnableCgroup {
		if p := memoryPeakKB(cgroupDir); p > peakKB {
			peakKB = p
		}
	}

	raw := result.RawResult{
		WallTimeMs:        wallMs,
		MemoryKB:          peakKB,
		KilledForWallTime: atomic.LoadInt32(&killedWallTime) == 1,
		KilledForMemory:   atomic.LoadInt32(&killedMemory) == 1,
	}

	state := cmd.ProcessState
	if state == nil {
		raw.SetupError = fmt.Errorf("sandbox-init exited without process state")
		return raw, raw.SetupError
	}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		switch {
		case ws.Exited():
			raw.ExitedNormally = true
			raw.ExitCode = ws.ExitStatus()
		case ws.Signaled():
			raw.Signal = int(ws.Signal())
			if raw.Signal == sigXFSZ {
				raw.KilledForFileSize = true
			}
			if raw.Signal == sigKill && !raw.KilledForMemory && !raw.KilledForWallTime {
				if e.cfg.EnableCgroup && wasOomKilled(cgroupDir) {
					raw.KilledForMemory = true
				}
			}
		}
	} else {
		raw.ExitedNormally = state.Success()
	}

	return raw, nil
}

// killProcessGroup terminates the sandboxed child. The cgroup kill is
// preferred since it atomically reaps every process the child may have
// spawned; falling back to a direct signal covers the EnableCgroup=false
// case used in degraded deployments.
func killProcessGroup(cmd *exec.Cmd, cgroupDir string, cgroupEnabled bool) {
	if cgroupEnabled && cgroupDir != "" {
		_ = killCgroup(cgroupDir)
		return
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// readProcRSSKB reads a process's resident set size from /proc/<pid>/status.
// It returns ok=false once the process has exited and the file disappears.
func readProcRSSKB(pid int) (int64, bool) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb, true
	}
	return 0, false
}
