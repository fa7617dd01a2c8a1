package model

import "time"

// Config is the judging core's closed configuration surface (§6), extended
// with the ambient/domain wiring fields needed to run as a service (§6.1,
// §6.2). None of the extra fields change judging semantics.
type Config struct {
	// WorkspaceRoot is judge.workspace_root: base directory for
	// per-submission workspaces.
	WorkspaceRoot string

	// CgroupCPURoot / CgroupMemoryRoot are judge.cgroup_cpu_root and
	// judge.cgroup_memory_root.
	CgroupCPURoot    string
	CgroupMemoryRoot string

	// CompileTimeout is judge.compile_timeout_ms (default 15s).
	CompileTimeout time.Duration

	// MonitorInterval is judge.monitor_interval_ms (default 10ms).
	MonitorInterval time.Duration

	// WallTimeFactor is judge.wall_time_factor (default 2).
	WallTimeFactor int64

	// OutputSizeLimitBytes is judge.output_size_limit_bytes (default 64MiB).
	OutputSizeLimitBytes int64

	// SandboxHelperPath is the path to the cmd/sandbox-init reexec binary.
	SandboxHelperPath string
	EnableSeccomp     bool
	EnableNamespaces  bool
	EnableCgroup      bool

	// WorkerPoolSize bounds the number of concurrent in-flight submissions
	// on this host (§5).
	WorkerPoolSize int

	Postgres PostgresConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	Kafka    KafkaConfig
	Logger   LoggerConfig
	Metrics  MetricsConfig
}

// PostgresConfig addresses the Submission/Problem store (§6.2).
type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// RedisConfig addresses the distributed data-pack cache lock (§6.2).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MinIOConfig addresses the optional data-pack object storage (§6.2).
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// KafkaConfig addresses the submission queue (§6).
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Concurrency   int
	MaxRetries    int
	RetryDelay    time.Duration
	DeadLetter    string
	MessageTTL    time.Duration
}

// LoggerConfig is passed straight through to pkg/utils/logger.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputPath string
	ErrorPath  string
	Service    string
	Env        string
	Cluster    string
}

// MetricsConfig holds an address and path for a Prometheus HTTP exposition
// endpoint. cmd/judgeworker loads them but starts no HTTP listener.
type MetricsConfig struct {
	Addr string
	Path string
}

// DefaultConfig returns the §6 closed-option defaults.
func DefaultConfig() Config {
	return Config{
		WorkspaceRoot:        "/tmp/judgecore/workspaces",
		CgroupCPURoot:        "/sys/fs/cgroup/judgecore/cpu",
		CgroupMemoryRoot:     "/sys/fs/cgroup/judgecore/memory",
		CompileTimeout:       15 * time.Second,
		MonitorInterval:      10 * time.Millisecond,
		WallTimeFactor:       2,
		OutputSizeLimitBytes: 64 << 20,
		SandboxHelperPath:    "sandbox-init",
		EnableSeccomp:        true,
		EnableNamespaces:     true,
		EnableCgroup:         true,
		WorkerPoolSize:       4,
	}
}
