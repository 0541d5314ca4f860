package aireview

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/testutils"
)

const narrative = "Proposal 1 is technically strong; Proposal 2 undercuts it on price."

// restatement is a well-formed second-call response covering both fixture
// submissions, with one declined subscore.
const restatement = `[
  {"submission_id": "s1", "subscores": {"Technical": 92, "Financial": 70, "Experience": 85, "Timeline": 80, "Sustainability": null}, "final_score": 84.5},
  {"submission_id": "s2", "subscores": {"Technical": 70, "Financial": 95, "Experience": 60, "Timeline": 75, "Sustainability": 80}, "final_score": 76.0}
]`

func reviewFixtures() (domain.Tender, []domain.Submission) {
	tender := testutils.NewTender("t1", "e1")
	subs := []domain.Submission{
		testutils.NewSubmission("s1", "t1", "v1", domain.SubmissionEvaluated, 0),
		testutils.NewSubmission("s2", "t1", "v2", domain.SubmissionEvaluated, 1),
	}
	return tender, subs
}

func newPipeline(t *testing.T, oracle *testutils.MockOracle) *Pipeline {
	t.Helper()
	p, err := NewPipeline(oracle, DefaultConfig(), nil)
	require.NoError(t, err)
	return p
}

func TestNewPipeline_RequiresOracle(t *testing.T) {
	_, err := NewPipeline(nil, DefaultConfig(), nil)
	require.Error(t, err)
}

func TestNewPipeline_RejectsBadConfig(t *testing.T) {
	oracle := testutils.NewMockOracle("mock-model")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"temperature above range", func(c *Config) { c.Temperature = 2.5 }},
		{"max tokens too small", func(c *Config) { c.MaxTokens = 10 }},
		{"similarity threshold above one", func(c *Config) { c.SimilarityThreshold = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewPipeline(oracle, cfg, nil)
			require.Error(t, err)
		})
	}
}

func TestEvaluate_TwoCallFlow(t *testing.T) {
	tender, subs := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, restatement)
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.NoError(t, err)
	assert.Equal(t, 2, oracle.Calls(), "narrative then restatement, nothing more")
	assert.Equal(t, narrative, review.Narrative)

	// The first prompt carries the rubric and both proposals.
	first := oracle.Prompt(0)
	assert.Contains(t, first, "Road Maintenance Services")
	assert.Contains(t, first, "Technical (weight 30")
	assert.Contains(t, first, "submission s1")
	assert.Contains(t, first, "submission s2")

	// The second prompt embeds the first call's narrative verbatim.
	second := oracle.Prompt(1)
	assert.Contains(t, second, narrative)
	assert.Contains(t, second, `"submission_id"`)

	require.Len(t, review.Scores, 2)
	require.NotNil(t, review.Scores[0])
	assert.Equal(t, 84.5, *review.Scores[0].FinalScore)
	assert.Equal(t, 92.0, *review.Scores[0].Subscores["Technical"])
	assert.Nil(t, review.Scores[0].Subscores["Sustainability"], "a null subscore stays nil")
	require.NotNil(t, review.Scores[1])
	assert.Equal(t, 76.0, *review.Scores[1].FinalScore)
}

func TestEvaluate_MissingSubmissionGetsNilSentinel(t *testing.T) {
	tender, subs := reviewFixtures()
	partial := `[{"submission_id": "s1", "subscores": {"Technical": 90}, "final_score": 88}]`
	oracle := testutils.NewMockOracle("mock-model", narrative, partial)
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.NoError(t, err)
	require.Len(t, review.Scores, 2)
	assert.NotNil(t, review.Scores[0])
	assert.Nil(t, review.Scores[1], "an uncovered submission is nil, not zero-scored")
}

func TestEvaluate_EntriesMatchedByEchoedID(t *testing.T) {
	tender, subs := reviewFixtures()
	// Entries arrive in reverse order; the merge must follow the ids.
	reversed := `[
  {"submission_id": "s2", "final_score": 60},
  {"submission_id": "s1", "final_score": 90}
]`
	oracle := testutils.NewMockOracle("mock-model", narrative, reversed)
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.NoError(t, err)
	assert.Equal(t, 90.0, *review.Scores[0].FinalScore)
	assert.Equal(t, 60.0, *review.Scores[1].FinalScore)
}

func TestEvaluate_NarrativeCallFailure(t *testing.T) {
	tender, subs := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, restatement)
	oracle.FailCall(0, fmt.Errorf("rate limit: too many requests"))
	pipeline := newPipeline(t, oracle)

	_, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExternalService))
	var serr *domain.ExternalServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "narrative generation", serr.Op)
	assert.Equal(t, 1, oracle.Calls(), "a failed narrative call stops the pipeline")
}

func TestEvaluate_RestatementCallFailure(t *testing.T) {
	tender, subs := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, restatement)
	oracle.FailCall(1, fmt.Errorf("connection reset"))
	pipeline := newPipeline(t, oracle)

	_, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.Error(t, err)
	var serr *domain.ExternalServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "score restatement", serr.Op)
	assert.Equal(t, 2, oracle.Calls())
}

func TestEvaluate_UnparseableRestatementFailsWhole(t *testing.T) {
	tender, subs := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, "I am unable to produce JSON for this evaluation.")
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.Error(t, err, "a malformed restatement fails the whole request")
	assert.Empty(t, review.Scores, "no partial score set is ever returned")
	var serr *domain.ExternalServiceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "score parsing", serr.Op)
}

func TestEvaluate_FencedRestatementIsAccepted(t *testing.T) {
	tender, subs := reviewFixtures()
	fenced := "Here is the JSON:\n```json\n" + restatement + "\n```"
	oracle := testutils.NewMockOracle("mock-model", narrative, fenced)
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.NoError(t, err)
	require.NotNil(t, review.Scores[0])
	assert.Equal(t, 84.5, *review.Scores[0].FinalScore)
}

func TestEvaluate_UnknownIDsAreIgnored(t *testing.T) {
	tender, subs := reviewFixtures()
	withStray := `[
  {"submission_id": "s1", "final_score": 90},
  {"submission_id": "s-not-ours", "final_score": 50},
  {"submission_id": "s2", "final_score": 70}
]`
	oracle := testutils.NewMockOracle("mock-model", narrative, withStray)
	pipeline := newPipeline(t, oracle)

	review, err := pipeline.Evaluate(context.Background(), tender, subs)

	require.NoError(t, err, "a stray id is logged, not fatal")
	require.Len(t, review.Scores, 2)
	assert.Equal(t, 90.0, *review.Scores[0].FinalScore)
	assert.Equal(t, 70.0, *review.Scores[1].FinalScore)
}

func TestEvaluate_RequiresSubmissions(t *testing.T) {
	tender, _ := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, restatement)
	pipeline := newPipeline(t, oracle)

	_, err := pipeline.Evaluate(context.Background(), tender, nil)

	require.Error(t, err)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, oracle.Calls(), "validation happens before any oracle spend")
}

func TestEvaluate_CancelledContext(t *testing.T) {
	tender, subs := reviewFixtures()
	oracle := testutils.NewMockOracle("mock-model", narrative, restatement)
	pipeline := newPipeline(t, oracle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Evaluate(ctx, tender, subs)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
