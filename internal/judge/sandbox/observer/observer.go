// Package observer defines the metrics surface the judging pipeline
// reports through (§6.1 AMBIENT STACK: Metrics).
package observer

import "time"

// MetricsRecorder is the sink the orchestrator reports compile, run,
// queue-depth and sandbox-setup observations through. A production instance is Prometheus-backed
// (prometheus.go); tests use NoOp.
type MetricsRecorder interface {
	ObserveCompile(language string, d time.Duration, ok bool)
	ObserveRun(language, verdict string, d time.Duration)
	IncQueueDepth()
	DecQueueDepth()
	ObserveSandboxSetupFailure(reason string)
}

// NoOp discards every observation; used in tests and anywhere metrics
// wiring isn't worth the import.
type NoOp struct{}

func (NoOp) ObserveCompile(string, time.Duration, bool)     {}
func (NoOp) ObserveRun(string, string, time.Duration)       {}
func (NoOp) IncQueueDepth()                                 {}
func (NoOp) DecQueueDepth()                                 {}
func (NoOp) ObserveSandboxSetupFailure(string)               {}
