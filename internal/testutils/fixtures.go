package testutils

import (
	"fmt"
	"time"

	"github.com/procurelane/evalengine/internal/domain"
)

// FixtureDeadline is the submission cutoff used by the tender fixtures.
// Window tests derive their clocks from this instant.
var FixtureDeadline = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// StandardCriteria returns the five-dimension rubric used across the test
// suites. Weights sum to exactly 100; every criterion scores 0-100.
func StandardCriteria() []domain.Criterion {
	return []domain.Criterion{
		{ID: "technical", Name: "Technical", Weight: 30, MinScore: 0, MaxScore: 100},
		{ID: "financial", Name: "Financial", Weight: 25, MinScore: 0, MaxScore: 100},
		{ID: "experience", Name: "Experience", Weight: 20, MinScore: 0, MaxScore: 100},
		{ID: "timeline", Name: "Timeline", Weight: 15, MinScore: 0, MaxScore: 100},
		{ID: "sustainability", Name: "Sustainability", Weight: 10, MinScore: 0, MaxScore: 100},
	}
}

// NewTender builds a closed tender with the standard rubric, a seven-day
// dispute window, and the given assigned evaluators.
func NewTender(id string, evaluators ...string) domain.Tender {
	tender, err := domain.NewTender(id, "Road Maintenance Services", StandardCriteria(), FixtureDeadline, 7)
	if err != nil {
		panic(fmt.Sprintf("tender fixture invalid: %v", err))
	}
	tender.Status = domain.TenderClosed
	tender.AssignedEvaluators = evaluators
	tender.Version = 1
	return tender
}

// NewSubmission builds a submission in the given status, submitted offset
// minutes after an hour before the fixture deadline. Distinct offsets give
// tests a deterministic earliest-first tiebreak order.
func NewSubmission(id, tenderID, vendorID string, status domain.SubmissionStatus, offsetMinutes int) domain.Submission {
	return domain.Submission{
		ID:          id,
		TenderID:    tenderID,
		VendorID:    vendorID,
		SubmittedAt: FixtureDeadline.Add(-time.Hour + time.Duration(offsetMinutes)*time.Minute),
		Status:      status,
		Version:     1,
	}
}

// Evaluation builds an evaluation scoring all five standard criteria.
// The order of scores matches StandardCriteria.
func Evaluation(evaluatorID string, technical, financial, experience, timeline, sustainability float64) domain.Evaluation {
	return domain.Evaluation{
		EvaluatorID: evaluatorID,
		Scores: map[string]float64{
			"technical":      technical,
			"financial":      financial,
			"experience":     experience,
			"timeline":       timeline,
			"sustainability": sustainability,
		},
		CreatedAt: FixtureDeadline.Add(24 * time.Hour),
	}
}

// FloatPtr returns a pointer to v, for nullable score fields.
func FloatPtr(v float64) *float64 { return &v }
