// Package domain contains pure, dependency-free domain models and types
// for the tender evaluation engine.
package domain

import (
	"fmt"
	"math"
	"time"
)

// WeightTotal is the required sum of all criterion weights on a tender.
// Construction rejects any criterion set that does not sum to exactly 100.
const WeightTotal = 100.0

// weightEpsilon absorbs float accumulation noise when checking the weight sum.
const weightEpsilon = 1e-9

// TenderStatus represents the lifecycle state of a tender.
type TenderStatus string

// Tender lifecycle states.
const (
	// TenderDraft is the initial state; criteria and deadline are still mutable.
	TenderDraft TenderStatus = "draft"

	// TenderOpen means the tender accepts vendor submissions.
	TenderOpen TenderStatus = "open"

	// TenderClosed means the submission deadline has passed and evaluation
	// is in progress.
	TenderClosed TenderStatus = "closed"

	// TenderAwarded means a winning submission has been published.
	TenderAwarded TenderStatus = "awarded"

	// TenderCancelled is a terminal state reached from any non-awarded state.
	TenderCancelled TenderStatus = "cancelled"
)

// IsValid reports whether the status is one of the known tender states.
func (s TenderStatus) IsValid() bool {
	switch s {
	case TenderDraft, TenderOpen, TenderClosed, TenderAwarded, TenderCancelled:
		return true
	}
	return false
}

// Criterion is one weighted rubric dimension of a tender's evaluation,
// such as "Technical Merit" weighted at 30.
type Criterion struct {
	// ID uniquely identifies the criterion within its tender.
	ID string `json:"id" bson:"id"`

	// Name is the human-readable rubric label. AI subscores are keyed by
	// this name, so it should be stable once the tender leaves draft.
	Name string `json:"name" bson:"name"`

	// Weight is the criterion's share of the composite score (0-100).
	// All weights on a tender must sum to WeightTotal.
	Weight float64 `json:"weight" bson:"weight"`

	// MinScore and MaxScore bound the raw scores evaluators may assign.
	MinScore float64 `json:"min_score" bson:"min_score"`
	MaxScore float64 `json:"max_score" bson:"max_score"`
}

// Contains reports whether a raw score falls inside the criterion's range.
func (c Criterion) Contains(score float64) bool {
	return score >= c.MinScore && score <= c.MaxScore
}

// WinnerRef points at the submission currently published as a tender's
// winner. It is a read-model convenience derived from submission status;
// Submission.Status remains the single source of truth for who won.
type WinnerRef struct {
	SubmissionID string `json:"submission_id" bson:"submission_id"`
	VendorID     string `json:"vendor_id" bson:"vendor_id"`
}

// Tender is the aggregate root owning the canonical criterion list and the
// published winner pointer. Version is a compare-and-swap token bumped by
// the document store on every update; winner promotion and dispute
// acceptance rely on it to avoid racing decisions.
type Tender struct {
	ID    string `json:"id" bson:"_id"`
	Title string `json:"title" bson:"title"`

	Criteria []Criterion `json:"criteria" bson:"criteria"`

	// Deadline is the submission cutoff. It also anchors the dispute filing
	// window for winner disputes. Immutable once the tender leaves draft.
	Deadline time.Time `json:"deadline" bson:"deadline"`

	// DisputeTimeFrameDays is the number of whole days after the decision
	// date during which a vendor may still file a dispute.
	DisputeTimeFrameDays int `json:"dispute_time_frame_days" bson:"dispute_time_frame_days"`

	Status TenderStatus `json:"status" bson:"status"`

	// AssignedEvaluators lists evaluator ids expected to score each
	// submission. A submission is fully evaluated once every assigned
	// evaluator has recorded an evaluation.
	AssignedEvaluators []string `json:"assigned_evaluators" bson:"assigned_evaluators"`

	// CurrentWinner is set when a submission holds Winner status and
	// cleared or replaced when a dispute acceptance reassigns the award.
	CurrentWinner *WinnerRef `json:"current_winner,omitempty" bson:"current_winner,omitempty"`

	Version int64 `json:"version" bson:"version"`
}

// NewTender constructs a draft tender and validates its rubric.
// It returns a ValidationError when the criterion set is malformed,
// most importantly when the weights do not sum to WeightTotal.
func NewTender(id, title string, criteria []Criterion, deadline time.Time, disputeTimeFrameDays int) (Tender, error) {
	verr := NewValidationError("tender")
	if id == "" {
		verr.AddError("id must not be empty")
	}
	if title == "" {
		verr.AddError("title must not be empty")
	}
	if deadline.IsZero() {
		verr.AddError("deadline must be set")
	}
	if disputeTimeFrameDays < 0 {
		verr.AddError("dispute time frame must be zero or more days")
	}
	validateCriteria(verr, criteria)
	if verr.HasErrors() {
		return Tender{}, verr
	}

	return Tender{
		ID:                   id,
		Title:                title,
		Criteria:             append([]Criterion(nil), criteria...),
		Deadline:             deadline,
		DisputeTimeFrameDays: disputeTimeFrameDays,
		Status:               TenderDraft,
	}, nil
}

func validateCriteria(verr *ValidationError, criteria []Criterion) {
	if len(criteria) == 0 {
		verr.AddError("at least one criterion is required")
		return
	}

	seen := make(map[string]struct{}, len(criteria))
	var sum float64
	for i, c := range criteria {
		if c.ID == "" {
			verr.AddError(fmt.Sprintf("criterion %d: id must not be empty", i))
		}
		if c.Name == "" {
			verr.AddError(fmt.Sprintf("criterion %d: name must not be empty", i))
		}
		if _, dup := seen[c.ID]; dup {
			verr.AddError(fmt.Sprintf("criterion %d: duplicate id %q", i, c.ID))
		}
		seen[c.ID] = struct{}{}

		if c.Weight < 0 || c.Weight > WeightTotal {
			verr.AddError(fmt.Sprintf("criterion %q: weight %.2f outside [0, %.0f]", c.ID, c.Weight, WeightTotal))
		}
		if c.MinScore >= c.MaxScore {
			verr.AddError(fmt.Sprintf("criterion %q: min score %.2f must be below max score %.2f", c.ID, c.MinScore, c.MaxScore))
		}
		sum += c.Weight
	}

	if math.Abs(sum-WeightTotal) > weightEpsilon {
		verr.AddError(fmt.Sprintf("criterion weights sum to %.2f, must sum to %.0f", sum, WeightTotal))
	}
}

// Criterion returns the criterion with the given id.
func (t Tender) Criterion(id string) (Criterion, bool) {
	for _, c := range t.Criteria {
		if c.ID == id {
			return c, true
		}
	}
	return Criterion{}, false
}

// SetDeadline updates the submission deadline. The deadline is immutable
// once the tender has left draft.
func (t *Tender) SetDeadline(deadline time.Time) error {
	if t.Status != TenderDraft {
		return &InvalidTransitionError{
			Entity: "tender",
			ID:     t.ID,
			Reason: fmt.Sprintf("deadline is immutable in status %q", t.Status),
		}
	}
	t.Deadline = deadline
	return nil
}

// HasEvaluator reports whether the evaluator is assigned to this tender.
func (t Tender) HasEvaluator(evaluatorID string) bool {
	for _, id := range t.AssignedEvaluators {
		if id == evaluatorID {
			return true
		}
	}
	return false
}
