package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/testutils"
)

func TestEvaluatorComposite_WorkedExample(t *testing.T) {
	// Each criterion is scored out of its own weight, so the normalized
	// weighted sum is just the sum of the raw scores over the total weight:
	// 30 + 20 + 18 + 12 + 8 = 88 out of 100.
	criteria := []domain.Criterion{
		{ID: "technical", Name: "Technical", Weight: 30, MinScore: 0, MaxScore: 30},
		{ID: "financial", Name: "Financial", Weight: 25, MinScore: 0, MaxScore: 25},
		{ID: "experience", Name: "Experience", Weight: 20, MinScore: 0, MaxScore: 20},
		{ID: "timeline", Name: "Timeline", Weight: 15, MinScore: 0, MaxScore: 15},
		{ID: "sustainability", Name: "Sustainability", Weight: 10, MinScore: 0, MaxScore: 10},
	}
	eval := testutils.Evaluation("e1", 30, 20, 18, 12, 8)

	composite, ok := EvaluatorComposite(criteria, eval)

	require.True(t, ok)
	assert.InDelta(t, 88.0, composite, 1e-9)
}

func TestEvaluatorComposite_UniformRangeIsWeightedMean(t *testing.T) {
	// With every criterion on 0-100, normalization is the identity and the
	// composite is the plain weighted mean of the raw scores.
	criteria := testutils.StandardCriteria()
	eval := testutils.Evaluation("e1", 30, 20, 18, 12, 8)

	composite, ok := EvaluatorComposite(criteria, eval)

	require.True(t, ok)
	// (30*30 + 20*25 + 18*20 + 12*15 + 8*10) / 100 = 2020/100
	assert.InDelta(t, 20.2, composite, 1e-9)
}

func TestEvaluatorComposite_MixedRangesNormalizeBeforeWeighting(t *testing.T) {
	criteria := []domain.Criterion{
		{ID: "technical", Name: "Technical", Weight: 60, MinScore: 0, MaxScore: 10},
		{ID: "financial", Name: "Financial", Weight: 40, MinScore: 1, MaxScore: 5},
	}
	eval := domain.Evaluation{EvaluatorID: "e1", Scores: map[string]float64{
		"technical": 8, // 0.8 of range
		"financial": 4, // 0.75 of range
	}}

	composite, ok := EvaluatorComposite(criteria, eval)

	require.True(t, ok)
	// (0.8*60 + 0.75*40) / 100 * 100 = 78
	assert.InDelta(t, 78.0, composite, 1e-9)
}

func TestEvaluatorComposite_PartialEvaluationRenormalizes(t *testing.T) {
	criteria := testutils.StandardCriteria()
	eval := domain.Evaluation{EvaluatorID: "e1", Scores: map[string]float64{
		"technical": 80, // weight 30
		"financial": 60, // weight 25
	}}

	composite, ok := EvaluatorComposite(criteria, eval)

	require.True(t, ok)
	// (80*30 + 60*25) / (30 + 25) = 3900/55
	assert.InDelta(t, 3900.0/55.0, composite, 1e-9)
}

func TestEvaluatorComposite_NoScoredCriteria(t *testing.T) {
	criteria := testutils.StandardCriteria()

	_, ok := EvaluatorComposite(criteria, domain.Evaluation{EvaluatorID: "e1"})

	assert.False(t, ok, "an evaluation covering no known criterion contributes nothing")
}

func TestAverageScore(t *testing.T) {
	criteria := testutils.StandardCriteria()

	t.Run("mean of evaluator composites", func(t *testing.T) {
		evals := []domain.Evaluation{
			testutils.Evaluation("e1", 90, 85, 80, 75, 70),
			testutils.Evaluation("e2", 80, 75, 70, 65, 60),
		}

		avg := AverageScore(criteria, evals)

		require.NotNil(t, avg)
		c1, _ := EvaluatorComposite(criteria, evals[0])
		c2, _ := EvaluatorComposite(criteria, evals[1])
		assert.InDelta(t, (c1+c2)/2, *avg, 1e-9)
	})

	t.Run("nil when no evaluations", func(t *testing.T) {
		assert.Nil(t, AverageScore(criteria, nil), "no evaluations means Pending, never zero")
	})

	t.Run("nil when no usable composite", func(t *testing.T) {
		evals := []domain.Evaluation{{EvaluatorID: "e1", Scores: map[string]float64{"bogus": 50}}}
		assert.Nil(t, AverageScore(criteria, evals))
	})
}

func subWithEvals(id string, offsetMinutes int, evals ...domain.Evaluation) domain.Submission {
	sub := testutils.NewSubmission(id, "t1", "v-"+id, domain.SubmissionEvaluated, offsetMinutes)
	sub.Evaluations = evals
	return sub
}

func TestRank_OrdersByAverageDescending(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		subWithEvals("s-low", 0, testutils.Evaluation("e1", 50, 50, 50, 50, 50)),
		subWithEvals("s-high", 1, testutils.Evaluation("e1", 90, 90, 90, 90, 90)),
		subWithEvals("s-mid", 2, testutils.Evaluation("e1", 70, 70, 70, 70, 70)),
	}

	standings := Rank(criteria, subs)

	require.Len(t, standings, 3)
	assert.Equal(t, "s-high", standings[0].SubmissionID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "s-mid", standings[1].SubmissionID)
	assert.Equal(t, 2, standings[1].Rank)
	assert.Equal(t, "s-low", standings[2].SubmissionID)
	assert.Equal(t, 3, standings[2].Rank)
}

func TestRank_TieBreaksByEarliestSubmission(t *testing.T) {
	criteria := testutils.StandardCriteria()
	same := testutils.Evaluation("e1", 80, 80, 80, 80, 80)
	subs := []domain.Submission{
		subWithEvals("s-later", 30, same),
		subWithEvals("s-earlier", 0, same),
	}

	standings := Rank(criteria, subs)

	assert.Equal(t, "s-earlier", standings[0].SubmissionID, "equal averages rank the earlier submission higher")
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "s-later", standings[1].SubmissionID)
	assert.Equal(t, 2, standings[1].Rank)
}

func TestRank_TieBreaksByIDWhenTimesEqual(t *testing.T) {
	criteria := testutils.StandardCriteria()
	same := testutils.Evaluation("e1", 80, 80, 80, 80, 80)
	subs := []domain.Submission{
		subWithEvals("s-b", 0, same),
		subWithEvals("s-a", 0, same),
	}

	standings := Rank(criteria, subs)

	assert.Equal(t, "s-a", standings[0].SubmissionID)
	assert.Equal(t, "s-b", standings[1].SubmissionID)
}

func TestRank_PendingSubmissionsSortLastWithRankZero(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		testutils.NewSubmission("s-pending", "t1", "v1", domain.SubmissionSubmitted, 0),
		subWithEvals("s-scored", 1, testutils.Evaluation("e1", 10, 10, 10, 10, 10)),
	}

	standings := Rank(criteria, subs)

	require.Len(t, standings, 2)
	assert.Equal(t, "s-scored", standings[0].SubmissionID, "even a low average outranks pending")
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "s-pending", standings[1].SubmissionID)
	assert.Equal(t, UnrankedPosition, standings[1].Rank)
	assert.True(t, standings[1].Pending())
}

func TestRank_ContiguousRanksSkipUnranked(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		subWithEvals("s1", 0, testutils.Evaluation("e1", 90, 90, 90, 90, 90)),
		testutils.NewSubmission("s-pending", "t1", "v1", domain.SubmissionSubmitted, 1),
		subWithEvals("s2", 2, testutils.Evaluation("e1", 70, 70, 70, 70, 70)),
	}

	standings := Rank(criteria, subs)

	var ranks []int
	for _, s := range standings {
		if !s.Pending() {
			ranks = append(ranks, s.Rank)
		}
	}
	assert.Equal(t, []int{1, 2}, ranks, "ranked submissions occupy 1..n with no gaps")
}

func TestRank_Deterministic(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		subWithEvals("s1", 0, testutils.Evaluation("e1", 90, 85, 80, 75, 70)),
		subWithEvals("s2", 1, testutils.Evaluation("e1", 70, 92, 60, 85, 90)),
		testutils.NewSubmission("s3", "t1", "v3", domain.SubmissionSubmitted, 2),
	}

	first := Rank(criteria, subs)
	second := Rank(criteria, subs)

	assert.Equal(t, first, second, "re-ranking an unchanged snapshot is a no-op")
}

func TestTopRankedAndStandingOf(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		subWithEvals("s1", 0, testutils.Evaluation("e1", 90, 90, 90, 90, 90)),
		subWithEvals("s2", 1, testutils.Evaluation("e1", 70, 70, 70, 70, 70)),
	}
	standings := Rank(criteria, subs)

	top, ok := TopRanked(standings)
	require.True(t, ok)
	assert.Equal(t, "s1", top.SubmissionID)

	s2, ok := StandingOf(standings, "s2")
	require.True(t, ok)
	assert.Equal(t, 2, s2.Rank)

	_, ok = StandingOf(standings, "missing")
	assert.False(t, ok)
}

func TestEvaluatorRanks(t *testing.T) {
	criteria := testutils.StandardCriteria()
	subs := []domain.Submission{
		subWithEvals("s1", 0,
			testutils.Evaluation("e1", 90, 90, 90, 90, 90),
			testutils.Evaluation("e2", 60, 60, 60, 60, 60)),
		subWithEvals("s2", 1,
			testutils.Evaluation("e1", 70, 70, 70, 70, 70),
			testutils.Evaluation("e2", 80, 80, 80, 80, 80)),
	}

	ranks := EvaluatorRanks(criteria, subs)

	assert.Equal(t, 1, ranks["e1"]["s1"], "evaluator e1 prefers s1")
	assert.Equal(t, 2, ranks["e1"]["s2"])
	assert.Equal(t, 1, ranks["e2"]["s2"], "evaluator e2 prefers s2")
	assert.Equal(t, 2, ranks["e2"]["s1"])
}

func TestRank_SnapshotTimeUnaffectedByWallClock(t *testing.T) {
	criteria := testutils.StandardCriteria()
	sub := subWithEvals("s1", 0, testutils.Evaluation("e1", 80, 80, 80, 80, 80))
	sub.SubmittedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	standings := Rank(criteria, []domain.Submission{sub})

	assert.Equal(t, sub.SubmittedAt, standings[0].SubmittedAt)
}
