package award

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
	"github.com/procurelane/evalengine/internal/scoring"
)

// Publisher executes winner promotion. Publication is a discrete,
// admin-triggered event: ranking is recomputed continuously, but nothing
// becomes a winner until Publish is called, and only a rank-1, fully
// evaluated submission may be published.
type Publisher struct {
	tenders ports.TenderStore
	subs    ports.SubmissionStore
	locks   *TenderLocks
	log     *logrus.Entry
}

// NewPublisher creates a Publisher over the given stores. The lock registry
// is shared with dispute reconciliation so both winner-slot writers exclude
// each other at tender scope.
func NewPublisher(tenders ports.TenderStore, subs ports.SubmissionStore, locks *TenderLocks, log *logrus.Entry) (*Publisher, error) {
	if tenders == nil || subs == nil {
		return nil, fmt.Errorf("publisher requires tender and submission stores")
	}
	if locks == nil {
		return nil, fmt.Errorf("publisher requires a tender lock registry")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{tenders: tenders, subs: subs, locks: locks, log: log}, nil
}

// Publish promotes the submission to the tender's published winner.
//
// Guards, in order: the submission must exist in the tender, must have a
// non-nil average score, must hold rank 1 in the freshly recomputed
// standings, and must be in Evaluated status. Publishing the current winner
// again is an idempotent no-op. Any prior winner is demoted to Evaluated in
// the same store transaction that promotes the new one, so the tender never
// holds two winners. A decision racing another publication or a dispute
// acceptance loses the version check and surfaces domain.ConflictError.
func (p *Publisher) Publish(ctx context.Context, tenderID, submissionID string) (domain.Tender, error) {
	unlock := p.locks.Lock(tenderID)
	defer unlock()

	tender, err := p.tenders.GetTender(ctx, tenderID)
	if err != nil {
		return domain.Tender{}, err
	}

	submissions, err := p.subs.ListSubmissions(ctx, tenderID)
	if err != nil {
		return domain.Tender{}, err
	}

	target, ok := findSubmission(submissions, submissionID)
	if !ok {
		return domain.Tender{}, &domain.NotFoundError{Kind: "submission", ID: submissionID}
	}

	// Re-publishing the published winner is a no-op, not an error.
	if target.Status == domain.SubmissionWinner {
		return tender, nil
	}

	standings := scoring.Rank(tender.Criteria, submissions)
	standing, _ := scoring.StandingOf(standings, submissionID)
	if standing.Pending() {
		return domain.Tender{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     submissionID,
			Reason: "cannot publish a submission with no completed evaluations",
		}
	}
	if standing.Rank != 1 {
		return domain.Tender{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     submissionID,
			Reason: fmt.Sprintf("only the rank-1 submission may be published, current rank is %d", standing.Rank),
		}
	}
	if !target.Status.CanTransitionTo(domain.SubmissionWinner) {
		return domain.Tender{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     submissionID,
			From:   string(target.Status),
			To:     string(domain.SubmissionWinner),
			Reason: "submission is not fully evaluated",
		}
	}

	decision := ports.Decision{
		Tender:              tender,
		PromoteSubmissionID: submissionID,
	}
	decision.Tender.Status = domain.TenderAwarded
	decision.Tender.CurrentWinner = &domain.WinnerRef{
		SubmissionID: target.ID,
		VendorID:     target.VendorID,
	}
	if prior, ok := currentWinner(submissions); ok {
		decision.DemoteSubmissionID = prior.ID
	}

	updated, err := p.tenders.ApplyDecision(ctx, decision)
	if err != nil {
		return domain.Tender{}, err
	}

	p.log.WithFields(logrus.Fields{
		"tender_id":     tenderID,
		"submission_id": submissionID,
		"vendor_id":     target.VendorID,
	}).Info("published tender winner")

	return updated, nil
}

func findSubmission(subs []domain.Submission, id string) (domain.Submission, bool) {
	for _, s := range subs {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Submission{}, false
}

// currentWinner returns the submission currently holding Winner status.
func currentWinner(subs []domain.Submission) (domain.Submission, bool) {
	for _, s := range subs {
		if s.Status == domain.SubmissionWinner {
			return s, true
		}
	}
	return domain.Submission{}, false
}
