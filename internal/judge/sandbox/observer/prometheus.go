package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus is the production MetricsRecorder, registering its
// collectors on construction the way the teacher's services expose a
// /metrics endpoint via promauto's default registry.
type Prometheus struct {
	compileTotal    *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec
	runDuration     *prometheus.HistogramVec
	verdictTotal    *prometheus.CounterVec
	queueDepth      prometheus.Gauge
	sandboxSetupErr *prometheus.CounterVec
}

// NewPrometheus builds and registers a Prometheus-backed MetricsRecorder.
// namespace prefixes every metric name, e.g. "judgecore".
func NewPrometheus(namespace string) *Prometheus {
	return &Prometheus{
		compileTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "runs_total",
			Help:      "Compile attempts by language and outcome.",
		}, []string{"language", "ok"}),
		compileDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "duration_seconds",
			Help:      "Compile wall time by language.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"language"}),
		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "run_duration_seconds",
			Help:      "Sandboxed test-case wall time by language and verdict.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"language", "verdict"}),
		verdictTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "verdicts_total",
			Help:      "Test-case verdicts by language and verdict.",
		}, []string{"language", "verdict"}),
		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "queue_depth",
			Help:      "Submissions currently claimed by this worker.",
		}),
		sandboxSetupErr: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sandbox",
			Name:      "setup_failures_total",
			Help:      "Sandbox setup failures (cgroup/namespace/helper) by reason.",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) ObserveCompile(language string, d time.Duration, ok bool) {
	p.compileTotal.WithLabelValues(language, boolLabel(ok)).Inc()
	p.compileDuration.WithLabelValues(language).Observe(d.Seconds())
}

func (p *Prometheus) ObserveRun(language, verdict string, d time.Duration) {
	p.runDuration.WithLabelValues(language, verdict).Observe(d.Seconds())
	p.verdictTotal.WithLabelValues(language, verdict).Inc()
}

func (p *Prometheus) IncQueueDepth() { p.queueDepth.Inc() }
func (p *Prometheus) DecQueueDepth() { p.queueDepth.Dec() }

func (p *Prometheus) ObserveSandboxSetupFailure(reason string) {
	p.sandboxSetupErr.WithLabelValues(reason).Inc()
}

func boolLabel(ok bool) string {
	if ok {
		return "true"
	}
	return "false"
}
