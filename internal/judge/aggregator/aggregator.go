// Package aggregator implements the Aggregator (§4.5): it folds per-test
// results into a submission's final verdict, score, and peak resource
// usage.
package aggregator

import (
	"math"

	"judgecore/internal/judge/model"
)

// Summary is the Aggregator's output, ready to hand to the repository's
// set_result call.
type Summary struct {
	Verdict      model.Verdict
	TotalScore   int
	TimeUsedMs   int64
	MemoryUsedKB int64
	Details      []model.PerTestResult
}

// Aggregate folds results (in test-case order) into a Summary. Every test
// contributes its 100/N share to TotalScore if and only if it is
// Accepted, regardless of problem.Partial — Aggregate does not read that
// flag, and the orchestrator runs every test whatever its value. The
// overall Verdict is always the worst verdict
// seen across results, by §4.5 precedence, so a submission can score
// above zero while still reporting Wrong Answer (or worse) as its
// headline verdict.
func Aggregate(problem model.Problem, results []model.PerTestResult) Summary {
	summary := Summary{
		Verdict: model.VerdictAccepted,
		Details: results,
	}
	if len(results) == 0 {
		summary.Verdict = model.VerdictSkippedNoTests
		return summary
	}

	totalTests := len(problem.TestCases)
	if totalTests == 0 {
		totalTests = len(results)
	}

	worst := results[0].Verdict
	accepted := 0
	for _, r := range results {
		if r.Verdict.Rank() < worst.Rank() {
			worst = r.Verdict
		}
		if r.Verdict == model.VerdictAccepted {
			accepted++
		}
		if r.TimeMs > summary.TimeUsedMs {
			summary.TimeUsedMs = r.TimeMs
		}
		if r.MemoryKB > summary.MemoryUsedKB {
			summary.MemoryUsedKB = r.MemoryKB
		}
	}

	summary.Verdict = worst
	summary.TotalScore = int(math.Round(100 * float64(accepted) / float64(totalTests)))
	return summary
}
