//go:build linux

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"judgecore/internal/judge/sandbox/spec"
)

// createRunCgroup makes a fresh cgroup v2 leaf named by token under root
// and applies the run's resource limits to it.
func createRunCgroup(root, token string, limits spec.ResourceLimit) (string, error) {
	dir := filepath.Join(root, "run-"+token)
	if err := os.Mkdir(dir, 0755); err != nil {
		return "", fmt.Errorf("create cgroup dir: %w", err)
	}
	if err := applyCgroupLimits(dir, limits); err != nil {
		_ = os.Remove(dir)
		return "", err
	}
	return dir, nil
}

func applyCgroupLimits(dir string, limits spec.ResourceLimit) error {
	if limits.MemoryMB > 0 {
		bytes := limits.MemoryMB * 1024 * 1024
		if err := writeCgroupValue(dir, "memory.max", strconv.FormatInt(bytes, 10)); err != nil {
			return err
		}
	}
	pids := "max"
	if limits.PIDs > 0 {
		pids = strconv.FormatInt(limits.PIDs, 10)
	}
	if err := writeCgroupValue(dir, "pids.max", pids); err != nil {
		return err
	}
	// One CPU core's worth of quota per 100ms period; batch judging runs
	// one process per box so this is a hard ceiling, not a share.
	if err := writeCgroupValue(dir, "cpu.max", "100000 100000"); err != nil {
		return err
	}
	return nil
}

func addProcessToCgroup(dir string, pid int) error {
	return writeCgroupValue(dir, "cgroup.procs", strconv.Itoa(pid))
}

// killCgroup asks the kernel to SIGKILL every process in the cgroup in one
// atomic operation, available since Linux 5.14's cgroup.kill.
func killCgroup(dir string) error {
	return writeCgroupValue(dir, "cgroup.kill", "1")
}

// wasOomKilled reports whether the cgroup's OOM killer fired, read from
// memory.events' oom_kill counter.
func wasOomKilled(dir string) bool {
	n, err := readCgroupInt(dir, "memory.events", "oom_kill")
	return err == nil && n > 0
}

// memoryPeakKB reads the cgroup's lifetime peak RSS, used as a fallback
// when the monitoring loop's own polling missed the true peak between
// ticks.
func memoryPeakKB(dir string) int64 {
	data, err := os.ReadFile(filepath.Join(dir, "memory.peak"))
	if err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return v / 1024
}

func removeCgroup(dir string) {
	// Child processes must already be gone (killCgroup + Wait) or rmdir
	// fails with EBUSY; best-effort, nothing to act on if it fails.
	_ = os.Remove(dir)
}

func writeCgroupValue(dir, file, value string) error {
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// readCgroupInt reads a "key value" flat-keyed file (e.g. memory.events)
// and returns the integer value for key.
func readCgroupInt(dir, file, key string) (int64, error) {
	data, err := os.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == key {
			return strconv.ParseInt(fields[1], 10, 64)
		}
	}
	return 0, fmt.Errorf("key %s not found in %s", key, file)
}
