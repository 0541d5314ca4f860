// Package memory provides in-memory document stores for tests, examples,
// and single-process deployments. All three stores honor the same contracts
// as the MongoDB adapters: compare-and-swap on version, per-evaluator
// evaluation uniqueness, atomic winner swaps, and snapshot reads.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
)

// Store holds tenders, submissions, and disputes behind one mutex. A single
// lock keeps ApplyDecision trivially atomic across the tender record and
// both affected submissions.
type Store struct {
	mu          sync.RWMutex
	tenders     map[string]domain.Tender
	submissions map[string]domain.Submission
	disputes    map[string]domain.Dispute
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tenders:     make(map[string]domain.Tender),
		submissions: make(map[string]domain.Submission),
		disputes:    make(map[string]domain.Dispute),
	}
}

// copyTender deep-copies the mutable slices and pointers so callers can
// never alias stored state.
func copyTender(t domain.Tender) domain.Tender {
	out := t
	out.Criteria = append([]domain.Criterion(nil), t.Criteria...)
	out.AssignedEvaluators = append([]string(nil), t.AssignedEvaluators...)
	if t.CurrentWinner != nil {
		winner := *t.CurrentWinner
		out.CurrentWinner = &winner
	}
	return out
}

func copySubmission(s domain.Submission) domain.Submission {
	out := s
	if s.RejectedAt != nil {
		t := *s.RejectedAt
		out.RejectedAt = &t
	}
	out.Evaluations = make([]domain.Evaluation, len(s.Evaluations))
	for i, e := range s.Evaluations {
		out.Evaluations[i] = e
		out.Evaluations[i].Scores = make(map[string]float64, len(e.Scores))
		for k, v := range e.Scores {
			out.Evaluations[i].Scores[k] = v
		}
	}
	out.Documents = append([]domain.DocumentRef(nil), s.Documents...)
	out.AiScore = nil // ephemeral, never stored
	return out
}

func copyDispute(d domain.Dispute) domain.Dispute {
	out := d
	if d.ResolvedAt != nil {
		t := *d.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

// GetTender returns the tender with the given id.
func (s *Store) GetTender(ctx context.Context, id string) (domain.Tender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenders[id]
	if !ok {
		return domain.Tender{}, &domain.NotFoundError{Kind: "tender", ID: id}
	}
	return copyTender(t), nil
}

// CreateTender stores a new tender at version 1.
func (s *Store) CreateTender(ctx context.Context, t domain.Tender) (domain.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tenders[t.ID]; exists {
		return domain.Tender{}, &domain.ConflictError{Entity: "tender", ID: t.ID, Reason: "already exists"}
	}
	t.Version = 1
	s.tenders[t.ID] = copyTender(t)
	return copyTender(t), nil
}

// UpdateTender replaces the stored tender under CAS on Version.
func (s *Store) UpdateTender(ctx context.Context, t domain.Tender) (domain.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTenderLocked(t)
}

func (s *Store) updateTenderLocked(t domain.Tender) (domain.Tender, error) {
	stored, ok := s.tenders[t.ID]
	if !ok {
		return domain.Tender{}, &domain.NotFoundError{Kind: "tender", ID: t.ID}
	}
	if stored.Version != t.Version {
		return domain.Tender{}, &domain.ConflictError{Entity: "tender", ID: t.ID, Reason: "version mismatch"}
	}
	t.Version++
	s.tenders[t.ID] = copyTender(t)
	return copyTender(t), nil
}

// ApplyDecision atomically demotes the prior winner, promotes the new one,
// and updates the tender record. The single store mutex makes the three
// writes indivisible; a version mismatch on the tender rejects the whole
// decision with nothing written.
func (s *Store) ApplyDecision(ctx context.Context, d ports.Decision) (domain.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tenders[d.Tender.ID]
	if !ok {
		return domain.Tender{}, &domain.NotFoundError{Kind: "tender", ID: d.Tender.ID}
	}
	if stored.Version != d.Tender.Version {
		return domain.Tender{}, &domain.ConflictError{Entity: "tender", ID: d.Tender.ID, Reason: "version mismatch"}
	}

	promote, ok := s.submissions[d.PromoteSubmissionID]
	if !ok {
		return domain.Tender{}, &domain.NotFoundError{Kind: "submission", ID: d.PromoteSubmissionID}
	}

	var demote domain.Submission
	if d.DemoteSubmissionID != "" {
		demote, ok = s.submissions[d.DemoteSubmissionID]
		if !ok {
			return domain.Tender{}, &domain.NotFoundError{Kind: "submission", ID: d.DemoteSubmissionID}
		}
	}

	if d.DemoteSubmissionID != "" {
		demote.Status = domain.SubmissionEvaluated
		demote.Version++
		s.submissions[demote.ID] = demote
	}
	promote.Status = domain.SubmissionWinner
	promote.Version++
	s.submissions[promote.ID] = promote

	updated := d.Tender
	updated.Version++
	s.tenders[updated.ID] = copyTender(updated)
	return copyTender(updated), nil
}

// GetSubmission returns the submission with the given id.
func (s *Store) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, &domain.NotFoundError{Kind: "submission", ID: id}
	}
	return copySubmission(sub), nil
}

// ListSubmissions returns a consistent snapshot of the tender's
// submissions, ordered by submission time then id for deterministic output.
func (s *Store) ListSubmissions(ctx context.Context, tenderID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Submission
	for _, sub := range s.submissions {
		if sub.TenderID == tenderID {
			out = append(out, copySubmission(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateSubmission stores a new submission at version 1.
func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[sub.ID]; exists {
		return domain.Submission{}, &domain.ConflictError{Entity: "submission", ID: sub.ID, Reason: "already exists"}
	}
	sub.Version = 1
	s.submissions[sub.ID] = copySubmission(sub)
	return copySubmission(sub), nil
}

// UpdateSubmission replaces the stored submission under CAS on Version.
func (s *Store) UpdateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.submissions[sub.ID]
	if !ok {
		return domain.Submission{}, &domain.NotFoundError{Kind: "submission", ID: sub.ID}
	}
	if stored.Version != sub.Version {
		return domain.Submission{}, &domain.ConflictError{Entity: "submission", ID: sub.ID, Reason: "version mismatch"}
	}
	sub.Version++
	s.submissions[sub.ID] = copySubmission(sub)
	return copySubmission(sub), nil
}

// AddEvaluation appends an evaluation, enforcing one evaluation per
// evaluator per submission. The check and the append happen under the same
// lock, so two racing evaluators cannot both insert.
func (s *Store) AddEvaluation(ctx context.Context, submissionID string, eval domain.Evaluation) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, &domain.NotFoundError{Kind: "submission", ID: submissionID}
	}
	if _, dup := stored.EvaluationBy(eval.EvaluatorID); dup {
		return domain.Submission{}, &domain.ConflictError{
			Entity: "submission",
			ID:     submissionID,
			Reason: "evaluator " + eval.EvaluatorID + " has already evaluated this submission",
		}
	}

	updated := copySubmission(stored)
	updated.Evaluations = append(updated.Evaluations, eval)
	updated.Version++
	s.submissions[submissionID] = copySubmission(updated)
	return copySubmission(updated), nil
}

// GetDispute returns the dispute with the given id.
func (s *Store) GetDispute(ctx context.Context, id string) (domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disputes[id]
	if !ok {
		return domain.Dispute{}, &domain.NotFoundError{Kind: "dispute", ID: id}
	}
	return copyDispute(d), nil
}

// ListDisputes returns all disputes filed against the tender, newest first.
func (s *Store) ListDisputes(ctx context.Context, tenderID string) ([]domain.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Dispute
	for _, d := range s.disputes {
		if d.TenderID == tenderID {
			out = append(out, copyDispute(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiledAt.After(out[j].FiledAt) })
	return out, nil
}

// CreateDispute stores a new pending dispute at version 1.
func (s *Store) CreateDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.disputes[d.ID]; exists {
		return domain.Dispute{}, &domain.ConflictError{Entity: "dispute", ID: d.ID, Reason: "already exists"}
	}
	d.Version = 1
	s.disputes[d.ID] = copyDispute(d)
	return copyDispute(d), nil
}

// ResolveDispute moves the dispute from pending to the terminal state in d.
// Resolution is a CAS from pending, so exactly one resolver can win.
func (s *Store) ResolveDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.disputes[d.ID]
	if !ok {
		return domain.Dispute{}, &domain.NotFoundError{Kind: "dispute", ID: d.ID}
	}
	if stored.Resolved() {
		return domain.Dispute{}, &domain.InvalidTransitionError{
			Entity: "dispute",
			ID:     d.ID,
			From:   string(stored.Status),
			To:     string(d.Status),
			Reason: "dispute already resolved",
		}
	}
	if stored.Version != d.Version {
		return domain.Dispute{}, &domain.ConflictError{Entity: "dispute", ID: d.ID, Reason: "version mismatch"}
	}

	d.Version++
	s.disputes[d.ID] = copyDispute(d)
	return copyDispute(d), nil
}

// Verify interface compliance at compile time.
var (
	_ ports.TenderStore     = (*Store)(nil)
	_ ports.SubmissionStore = (*Store)(nil)
	_ ports.DisputeStore    = (*Store)(nil)
)
