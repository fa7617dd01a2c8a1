package engine

import "time"

// Config carries the engine's deployment-specific knobs, set from
// model.Config (§6's configuration options table).
type Config struct {
	// CgroupRoot is the cgroup v2 parent directory the engine creates one
	// leaf per run under, e.g. "/sys/fs/cgroup/judgecore".
	CgroupRoot string
	// SandboxHelperPath is the absolute path to the built cmd/sandbox-init
	// binary.
	SandboxHelperPath string
	// MonitorInterval is the polling period of the RSS/wall-clock
	// monitoring loop; §4.3 specifies 10ms.
	MonitorInterval time.Duration
	// WallTimeFactor multiplies a problem's declared time limit to get
	// the hard wall-clock kill deadline; §4.3 specifies 2.
	WallTimeFactor int64

	EnableSeccomp    bool
	EnableNamespaces bool
	EnableCgroup     bool
}
