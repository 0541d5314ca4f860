// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the engine testable
// against in-memory collaborators.
package ports

import (
	"context"

	"github.com/procurelane/evalengine/internal/domain"
)

// TenderStore persists tender aggregates in the document store. Updates are
// compare-and-swap on Tender.Version: an update whose version no longer
// matches the stored record fails with domain.ConflictError rather than
// silently overwriting a concurrent writer.
type TenderStore interface {
	// GetTender returns the tender with the given id, or
	// domain.NotFoundError when it does not exist.
	GetTender(ctx context.Context, id string) (domain.Tender, error)

	// CreateTender stores a new tender at version 1.
	CreateTender(ctx context.Context, t domain.Tender) (domain.Tender, error)

	// UpdateTender replaces the stored tender if t.Version matches the
	// stored version, returning the updated record with its version bumped.
	UpdateTender(ctx context.Context, t domain.Tender) (domain.Tender, error)

	// ApplyDecision atomically reassigns the tender's winner slot: it
	// demotes, promotes, and updates the tender record as one transaction
	// so an interrupted decision can never leave the tender with zero or
	// two winners. The tender in the decision carries the expected version.
	ApplyDecision(ctx context.Context, d Decision) (domain.Tender, error)
}

// Decision describes an atomic winner reassignment at tender scope. It is
// produced by winner publication and by dispute acceptance, the only two
// operations that mutate the winner slot.
type Decision struct {
	// Tender is the updated tender record (status, winner pointer) with the
	// version observed when the decision was computed.
	Tender domain.Tender

	// PromoteSubmissionID names the submission to move to Winner status.
	PromoteSubmissionID string

	// DemoteSubmissionID optionally names the prior winner to move back to
	// Evaluated. Empty when the tender had no winner yet.
	DemoteSubmissionID string
}

// SubmissionStore persists submissions and their evaluator-keyed
// evaluations. Reads return consistent snapshots: a listing taken while an
// evaluation is being written reflects either the old or the new record,
// never a partially written one.
type SubmissionStore interface {
	// GetSubmission returns the submission with the given id, or
	// domain.NotFoundError.
	GetSubmission(ctx context.Context, id string) (domain.Submission, error)

	// ListSubmissions returns a consistent snapshot of all submissions
	// belonging to the tender.
	ListSubmissions(ctx context.Context, tenderID string) ([]domain.Submission, error)

	// CreateSubmission stores a new submission at version 1.
	CreateSubmission(ctx context.Context, s domain.Submission) (domain.Submission, error)

	// UpdateSubmission replaces the stored submission under CAS on Version.
	UpdateSubmission(ctx context.Context, s domain.Submission) (domain.Submission, error)

	// AddEvaluation appends an evaluation to the submission, enforcing
	// uniqueness per (submission, evaluator) as a store constraint.
	// A duplicate evaluator fails with domain.ConflictError; concurrent
	// writers can never degrade to last-write-wins.
	AddEvaluation(ctx context.Context, submissionID string, eval domain.Evaluation) (domain.Submission, error)
}

// DisputeStore persists disputes. Terminal states are immutable: resolution
// is a CAS from pending to a terminal status, so a dispute can be resolved
// exactly once even under concurrent resolvers.
type DisputeStore interface {
	// GetDispute returns the dispute with the given id, or
	// domain.NotFoundError.
	GetDispute(ctx context.Context, id string) (domain.Dispute, error)

	// ListDisputes returns all disputes filed against the tender.
	ListDisputes(ctx context.Context, tenderID string) ([]domain.Dispute, error)

	// CreateDispute stores a new pending dispute at version 1.
	CreateDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error)

	// ResolveDispute moves the dispute from pending to the terminal state
	// carried by d. It fails with domain.InvalidTransitionError when the
	// stored dispute is already resolved, and with domain.ConflictError when
	// it loses a version race.
	ResolveDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error)
}
