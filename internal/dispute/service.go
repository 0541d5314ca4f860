package dispute

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/procurelane/evalengine/internal/award"
	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
)

// FileRequest carries a vendor's dispute filing. Field constraints mirror
// the data model: the reason is free text between 10 and 1000 characters.
type FileRequest struct {
	TenderID     string             `validate:"required"`
	SubmissionID string             `validate:"-"`
	RaisedBy     string             `validate:"required"`
	Type         domain.DisputeType `validate:"required,oneof=winner rejection"`
	Reason       string             `validate:"required,min=10,max=1000"`
}

// Resolution carries an admin's verdict on a pending dispute.
type Resolution struct {
	DisputeID  string               `validate:"required"`
	Status     domain.DisputeStatus `validate:"required,oneof=accepted rejected"`
	Resolution string               `validate:"-"`
	ResolvedBy string               `validate:"required"`

	// NewWinnerSubmissionID optionally overrides which submission an
	// accepted winner dispute promotes. When empty, the disputant's own
	// submission is promoted.
	NewWinnerSubmissionID string `validate:"-"`
}

// Service validates, files, and resolves disputes. Winner-dispute
// acceptance shares the award package's per-tender locks with the
// Publisher: both mutate the single winner slot and must exclude each other.
type Service struct {
	tenders  ports.TenderStore
	subs     ports.SubmissionStore
	disputes ports.DisputeStore
	locks    *award.TenderLocks
	validate *validator.Validate
	clock    func() time.Time
	log      *logrus.Entry
}

// NewService creates a dispute service over the given stores. The clock is
// injectable so window-boundary behavior is testable; nil defaults to
// time.Now.
func NewService(
	tenders ports.TenderStore,
	subs ports.SubmissionStore,
	disputes ports.DisputeStore,
	locks *award.TenderLocks,
	clock func() time.Time,
	log *logrus.Entry,
) (*Service, error) {
	if tenders == nil || subs == nil || disputes == nil {
		return nil, fmt.Errorf("dispute service requires tender, submission, and dispute stores")
	}
	if locks == nil {
		return nil, fmt.Errorf("dispute service requires the shared tender lock registry")
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		tenders:  tenders,
		subs:     subs,
		disputes: disputes,
		locks:    locks,
		validate: validator.New(),
		clock:    clock,
		log:      log,
	}, nil
}

// File records a new pending dispute if the filing window is still open.
// Filing past the window is a business-rule rejection
// (domain.InvalidTransitionError), not a validation failure: the request was
// well-formed, the decision simply is no longer contestable.
func (s *Service) File(ctx context.Context, req FileRequest) (domain.Dispute, error) {
	if err := s.validate.Struct(req); err != nil {
		verr := domain.NewValidationError("dispute")
		verr.AddError(err.Error())
		return domain.Dispute{}, verr
	}

	tender, err := s.tenders.GetTender(ctx, req.TenderID)
	if err != nil {
		return domain.Dispute{}, err
	}

	var submission *domain.Submission
	if req.SubmissionID != "" {
		sub, err := s.subs.GetSubmission(ctx, req.SubmissionID)
		if err != nil {
			return domain.Dispute{}, err
		}
		submission = &sub
	}

	window, err := WindowFor(tender, submission, req.Type)
	if err != nil {
		return domain.Dispute{}, err
	}

	now := s.clock()
	if !window.Open(now) {
		return domain.Dispute{}, &domain.InvalidTransitionError{
			Entity: "dispute",
			ID:     req.TenderID,
			Reason: fmt.Sprintf("filing window closed on %s", window.Deadline().Format(time.RFC3339)),
		}
	}

	dispute := domain.Dispute{
		ID:           uuid.NewString(),
		TenderID:     req.TenderID,
		SubmissionID: req.SubmissionID,
		RaisedBy:     req.RaisedBy,
		Type:         req.Type,
		Reason:       req.Reason,
		Status:       domain.DisputePending,
		FiledAt:      now,
	}

	created, err := s.disputes.CreateDispute(ctx, dispute)
	if err != nil {
		return domain.Dispute{}, err
	}

	s.log.WithFields(logrus.Fields{
		"dispute_id": created.ID,
		"tender_id":  created.TenderID,
		"type":       created.Type,
		"days_left":  window.DaysLeft(now),
	}).Info("dispute filed")

	return created, nil
}

// Resolve moves a pending dispute to a terminal state. Rejections require a
// non-empty resolution text. Accepting a winner dispute atomically demotes
// the current winner, promotes the disputant's (or resolver-specified)
// submission, updates the tender's winner pointer, and marks the dispute
// accepted; the winner swap and the dispute resolution each use
// compare-and-swap so an interrupted sequence never leaves the tender with
// zero or two winners, and a resolved dispute can never be resolved again.
// The winner swap and the dispute update are still two separate writes: an
// interruption between them leaves the award reassigned with the dispute
// pending, and re-running Resolve converges because promoting the
// already-published winner is a no-op.
//
// The returned tender is non-nil only when the resolution reassigned the
// winner.
func (s *Service) Resolve(ctx context.Context, res Resolution) (*domain.Tender, domain.Dispute, error) {
	if err := s.validate.Struct(res); err != nil {
		verr := domain.NewValidationError("dispute resolution")
		verr.AddError(err.Error())
		return nil, domain.Dispute{}, verr
	}
	if res.Status == domain.DisputeRejected && res.Resolution == "" {
		verr := domain.NewValidationError("dispute resolution")
		verr.AddError("rejecting a dispute requires a resolution text")
		return nil, domain.Dispute{}, verr
	}

	disp, err := s.disputes.GetDispute(ctx, res.DisputeID)
	if err != nil {
		return nil, domain.Dispute{}, err
	}
	if disp.Resolved() {
		return nil, domain.Dispute{}, &domain.InvalidTransitionError{
			Entity: "dispute",
			ID:     disp.ID,
			From:   string(disp.Status),
			To:     string(res.Status),
			Reason: "dispute already resolved",
		}
	}

	var tender *domain.Tender
	if res.Status == domain.DisputeAccepted && disp.Type == domain.DisputeWinner {
		reassigned, err := s.reassignWinner(ctx, disp, res)
		if err != nil {
			return nil, domain.Dispute{}, err
		}
		tender = &reassigned
	}

	now := s.clock()
	disp.Status = res.Status
	disp.Resolution = res.Resolution
	disp.ResolvedBy = res.ResolvedBy
	disp.ResolvedAt = &now

	resolved, err := s.disputes.ResolveDispute(ctx, disp)
	if err != nil {
		return nil, domain.Dispute{}, err
	}

	s.log.WithFields(logrus.Fields{
		"dispute_id": resolved.ID,
		"tender_id":  resolved.TenderID,
		"status":     resolved.Status,
	}).Info("dispute resolved")

	return tender, resolved, nil
}

// reassignWinner performs the winner swap for an accepted winner dispute
// under the tender lock. Unlike publication, acceptance overrides the
// ranking: the resolver has decided the published decision was wrong.
func (s *Service) reassignWinner(ctx context.Context, disp domain.Dispute, res Resolution) (domain.Tender, error) {
	unlock := s.locks.Lock(disp.TenderID)
	defer unlock()

	tender, err := s.tenders.GetTender(ctx, disp.TenderID)
	if err != nil {
		return domain.Tender{}, err
	}

	targetID := res.NewWinnerSubmissionID
	if targetID == "" {
		targetID = disp.SubmissionID
	}
	if targetID == "" {
		verr := domain.NewValidationError("dispute resolution")
		verr.AddError("accepting a winner dispute requires a submission to promote")
		return domain.Tender{}, verr
	}

	target, err := s.subs.GetSubmission(ctx, targetID)
	if err != nil {
		return domain.Tender{}, err
	}
	if target.TenderID != disp.TenderID {
		verr := domain.NewValidationError("dispute resolution")
		verr.AddError(fmt.Sprintf("submission %q does not belong to tender %q", targetID, disp.TenderID))
		return domain.Tender{}, verr
	}

	// Promoting the already-published winner is a no-op swap.
	if target.Status == domain.SubmissionWinner {
		return tender, nil
	}
	if !target.Status.CanTransitionTo(domain.SubmissionWinner) {
		return domain.Tender{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     target.ID,
			From:   string(target.Status),
			To:     string(domain.SubmissionWinner),
			Reason: "only an evaluated submission can be promoted by dispute acceptance",
		}
	}

	decision := ports.Decision{
		Tender:              tender,
		PromoteSubmissionID: target.ID,
	}
	decision.Tender.Status = domain.TenderAwarded
	decision.Tender.CurrentWinner = &domain.WinnerRef{
		SubmissionID: target.ID,
		VendorID:     target.VendorID,
	}

	submissions, err := s.subs.ListSubmissions(ctx, disp.TenderID)
	if err != nil {
		return domain.Tender{}, err
	}
	for _, sub := range submissions {
		if sub.Status == domain.SubmissionWinner {
			decision.DemoteSubmissionID = sub.ID
			break
		}
	}

	return s.tenders.ApplyDecision(ctx, decision)
}
