// Package scoring implements the pure computations at the heart of the
// engine: weighted score aggregation and tender-scoped ranking.
// Everything here operates on snapshots already read from the document
// store, has no side effects, and is safe to re-run whenever the underlying
// evaluation set changes.
package scoring

import (
	"math"

	"github.com/procurelane/evalengine/internal/domain"
)

// EvaluatorComposite computes one evaluator's weighted overall score for a
// submission on a 0-100 scale. Each raw score is first normalized against
// its criterion's own range, (score - min) / (max - min), so criteria scored
// on different scales are comparable before weighting:
//
//	sum(normalized_c * weight_c) / sum(weight_c over criteria scored) * 100
//
// A rubric whose criteria all use a 0-100 range reduces this to the plain
// weighted mean of the raw scores. Criteria the evaluator skipped are
// excluded from both numerator and denominator, so partial evaluations
// degrade gracefully instead of erroring or dragging the composite toward
// zero.
//
// The boolean result is false when the evaluation covers no known criterion,
// in which case the evaluation contributes nothing to the average.
func EvaluatorComposite(criteria []domain.Criterion, eval domain.Evaluation) (float64, bool) {
	var weightedSum, weightSum float64
	for _, c := range criteria {
		score, ok := eval.Scores[c.ID]
		if !ok {
			continue
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		scoreRange := c.MaxScore - c.MinScore
		if scoreRange <= 0 {
			continue
		}
		weightedSum += (score - c.MinScore) / scoreRange * c.Weight
		weightSum += c.Weight
	}

	if weightSum == 0 {
		return 0, false
	}
	return weightedSum / weightSum * 100, true
}

// AverageScore computes a submission's authoritative average: the mean of
// the per-evaluator composites across all completed evaluations. It returns
// nil when no evaluator has produced a usable composite; a nil average means
// "Pending" and must never be coerced to zero, which would unfairly rank an
// un-evaluated submission last instead of excluding it.
func AverageScore(criteria []domain.Criterion, evaluations []domain.Evaluation) *float64 {
	var sum float64
	var n int
	for _, eval := range evaluations {
		composite, ok := EvaluatorComposite(criteria, eval)
		if !ok {
			continue
		}
		sum += composite
		n++
	}

	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// EvaluatorRanks computes each evaluator's personal ranking of the tender's
// submissions from that evaluator's composites alone. The result maps
// evaluator id to submission id to 1-based rank. These ranks are display
// metadata only; the authoritative rank comes from Rank over averages.
func EvaluatorRanks(criteria []domain.Criterion, submissions []domain.Submission) map[string]map[string]int {
	type scored struct {
		submissionID string
		composite    float64
	}

	byEvaluator := make(map[string][]scored)
	for _, sub := range submissions {
		for _, eval := range sub.Evaluations {
			composite, ok := EvaluatorComposite(criteria, eval)
			if !ok {
				continue
			}
			byEvaluator[eval.EvaluatorID] = append(byEvaluator[eval.EvaluatorID], scored{
				submissionID: sub.ID,
				composite:    composite,
			})
		}
	}

	ranks := make(map[string]map[string]int, len(byEvaluator))
	for evaluatorID, entries := range byEvaluator {
		ranks[evaluatorID] = make(map[string]int, len(entries))
		for _, e := range entries {
			rank := 1
			for _, other := range entries {
				if other.composite > e.composite {
					rank++
				}
			}
			ranks[evaluatorID][e.submissionID] = rank
		}
	}
	return ranks
}
