package domain

import (
	"fmt"
	"time"
)

// SubmissionStatus represents the lifecycle state of a vendor submission
// within its tender.
type SubmissionStatus string

// Submission lifecycle states.
const (
	// SubmissionSubmitted is the initial state after a vendor submits.
	SubmissionSubmitted SubmissionStatus = "submitted"

	// SubmissionUnderReview means at least one evaluator has started scoring.
	SubmissionUnderReview SubmissionStatus = "under_review"

	// SubmissionEvaluated means every assigned evaluator has recorded an
	// evaluation; the submission is eligible for ranking and publication.
	SubmissionEvaluated SubmissionStatus = "evaluated"

	// SubmissionWinner marks the tender's published winner. At most one
	// submission per tender may hold this status at any instant.
	SubmissionWinner SubmissionStatus = "winner"

	// SubmissionRejected is reachable from Submitted and UnderReview.
	// Rejected submissions are never deleted.
	SubmissionRejected SubmissionStatus = "rejected"
)

// submissionTransitions is the closed transition table for submission
// statuses. Winner demotion back to Evaluated happens only through dispute
// acceptance, which is why it appears here.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionSubmitted:   {SubmissionUnderReview, SubmissionRejected},
	SubmissionUnderReview: {SubmissionEvaluated, SubmissionRejected},
	SubmissionEvaluated:   {SubmissionWinner},
	SubmissionWinner:      {SubmissionEvaluated},
	SubmissionRejected:    {},
}

// IsValid reports whether the status is one of the known submission states.
func (s SubmissionStatus) IsValid() bool {
	_, ok := submissionTransitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits moving from the
// current status to next.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, allowed := range submissionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DocumentRef describes an uploaded file held in the blob store. The engine
// never interprets file contents; it only carries the metadata through.
type DocumentRef struct {
	Name string `json:"name" bson:"name"`
	Key  string `json:"key" bson:"key"`
	URL  string `json:"url" bson:"url"`
	Type string `json:"type" bson:"type"`
	Size int64  `json:"size" bson:"size"`
}

// Evaluation is one evaluator's scoring of a submission against the
// tender's criteria. Evaluations are immutable after creation and keyed
// uniquely per (submission, evaluator) by the document store.
type Evaluation struct {
	EvaluatorID string `json:"evaluator_id" bson:"evaluator_id"`

	// Scores maps criterion id to the raw score the evaluator assigned.
	// Partial evaluations are allowed; missing criteria are excluded from
	// the composite rather than treated as zero.
	Scores map[string]float64 `json:"scores" bson:"scores"`

	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Submission is a vendor's entry in a tender. It owns its evaluations;
// the optional AiScore is ephemeral and advisory, attached on demand by the
// AI review pipeline and never persisted by the engine.
type Submission struct {
	ID       string `json:"id" bson:"_id"`
	TenderID string `json:"tender_id" bson:"tender_id"`
	VendorID string `json:"vendor_id" bson:"vendor_id"`

	SubmittedAt time.Time        `json:"submitted_at" bson:"submitted_at"`
	Status      SubmissionStatus `json:"status" bson:"status"`

	// RejectedAt anchors the dispute filing window for rejection disputes.
	RejectedAt *time.Time `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`

	Evaluations []Evaluation  `json:"evaluations,omitempty" bson:"evaluations,omitempty"`
	Documents   []DocumentRef `json:"documents,omitempty" bson:"documents,omitempty"`

	// AiScore is advisory only. It is displayed alongside human scores and
	// never averaged into the authoritative ranking.
	AiScore *AiScore `json:"ai_score,omitempty" bson:"-"`

	Version int64 `json:"version" bson:"version"`
}

// EvaluationBy returns the evaluation recorded by the given evaluator.
func (s Submission) EvaluationBy(evaluatorID string) (Evaluation, bool) {
	for _, e := range s.Evaluations {
		if e.EvaluatorID == evaluatorID {
			return e, true
		}
	}
	return Evaluation{}, false
}

// ValidateEvaluation checks an evaluation against the tender's rubric before
// it is written. Raw scores outside a criterion's [min, max] range and scores
// for unknown criteria are rejected with a ValidationError, never clamped.
func ValidateEvaluation(tender Tender, eval Evaluation) error {
	verr := NewValidationError("evaluation")
	if eval.EvaluatorID == "" {
		verr.AddError("evaluator id must not be empty")
	}
	if len(eval.Scores) == 0 {
		verr.AddError("at least one criterion score is required")
	}

	for criterionID, score := range eval.Scores {
		c, ok := tender.Criterion(criterionID)
		if !ok {
			verr.AddError(fmt.Sprintf("unknown criterion %q", criterionID))
			continue
		}
		if !c.Contains(score) {
			verr.AddError(fmt.Sprintf("criterion %q: score %.2f outside [%.2f, %.2f]",
				criterionID, score, c.MinScore, c.MaxScore))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
