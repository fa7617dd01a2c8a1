//go:build linux

package security

import (
	"fmt"

	libseccomp "github.com/seccomp/libseccomp-golang"
)

// Install builds a default-deny seccomp filter allowing only
// profile.AllowedSyscalls and loads it into the calling (post-fork, pre-exec)
// process. It is called from cmd/sandbox-init, never from the parent judge
// process. A failure here is reported to the caller, which logs it and
// continues without syscall filtering per §4.3 point 5's degradation
// clause — only cmd/sandbox-init decides whether to treat it as fatal.
func Install(profile IsolationProfile) error {
	// ActKill terminates the process as if by SIGSYS, matching §4.3's
	// "killed by SIGSYS -> Runtime Error (Forbidden Syscall)" classification.
	filter, err := libseccomp.NewFilter(libseccomp.ActKill)
	if err != nil {
		return fmt.Errorf("create seccomp filter: %w", err)
	}
	defer filter.Release()

	if err := filter.SetNoNewPrivsBit(true); err != nil {
		return fmt.Errorf("set no_new_privs: %w", err)
	}

	for _, name := range profile.AllowedSyscalls {
		id, err := libseccomp.GetSyscallFromName(name)
		if err != nil {
			// Syscall not defined on this architecture; skip rather than
			// fail the whole filter.
			continue
		}
		if err := filter.AddRule(id, libseccomp.ActAllow); err != nil {
			return fmt.Errorf("allow syscall %s: %w", name, err)
		}
	}

	// execve/execveat is needed exactly once, to transition from
	// sandbox-init into the target program; after that the filter already
	// applies to the new image. A SIGSYS afterward is classified as
	// Runtime Error (Forbidden Syscall) per §4.3.
	for _, name := range []string{"execve", "execveat"} {
		id, err := libseccomp.GetSyscallFromName(name)
		if err != nil {
			continue
		}
		if err := filter.AddRule(id, libseccomp.ActAllow); err != nil {
			return fmt.Errorf("allow syscall %s: %w", name, err)
		}
	}

	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}
	return nil
}
