package observer

import (
	"testing"
	"time"
)

func TestNoOpSatisfiesMetricsRecorder(t *testing.T) {
	var m MetricsRecorder = NoOp{}
	// None of these must panic; NoOp is purely a discard sink.
	m.ObserveCompile("cpp", time.Millisecond, true)
	m.ObserveRun("cpp", "Accepted", time.Millisecond)
	m.IncQueueDepth()
	m.DecQueueDepth()
	m.ObserveSandboxSetupFailure("cgroup create failed")
}

func TestBoolLabel(t *testing.T) {
	if boolLabel(true) != "true" {
		t.Fatalf("expected \"true\"")
	}
	if boolLabel(false) != "false" {
		t.Fatalf("expected \"false\"")
	}
}

// TestNewPrometheusRegistersEveryCollector uses a namespace unique to this
// test so it doesn't collide with another test's promauto registration in
// the shared default registry.
func TestNewPrometheusRegistersEveryCollector(t *testing.T) {
	p := NewPrometheus("judgecore_observer_test")
	var m MetricsRecorder = p
	m.ObserveCompile("python", 10*time.Millisecond, false)
	m.ObserveRun("python", "Wrong Answer", 5*time.Millisecond)
	m.IncQueueDepth()
	m.DecQueueDepth()
	m.ObserveSandboxSetupFailure("namespace setup failed")
}
