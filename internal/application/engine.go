// Package application wires the engine's components behind a single facade.
// The surrounding request layer calls these methods as ordinary functions;
// no wire protocol or CLI is introduced here.
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/procurelane/evalengine/internal/aireview"
	"github.com/procurelane/evalengine/internal/award"
	"github.com/procurelane/evalengine/internal/dispute"
	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
	"github.com/procurelane/evalengine/internal/scoring"
)

// Engine is the evaluation, ranking, and dispute-reconciliation facade.
// Evaluation writes, standings reads, and AI reviews run freely in
// parallel; only winner promotion and dispute acceptance serialize at
// tender scope, inside their respective services.
type Engine struct {
	tenders  ports.TenderStore
	subs     ports.SubmissionStore
	disputes ports.DisputeStore

	publisher  *award.Publisher
	disputeSvc *dispute.Service
	review     *aireview.Pipeline

	metrics ports.MetricsCollector
	tracer  trace.Tracer
	clock   func() time.Time
	log     *logrus.Entry
}

// Deps collects the engine's collaborators. Metrics and Log may be nil;
// Review may be nil when no scoring oracle is configured, in which case
// ReviewWithAI reports the oracle as unavailable.
type Deps struct {
	Tenders  ports.TenderStore
	Subs     ports.SubmissionStore
	Disputes ports.DisputeStore
	Review   *aireview.Pipeline
	Metrics  ports.MetricsCollector
	Clock    func() time.Time
	Log      *logrus.Entry
}

// NewEngine assembles an engine, creating the publisher and dispute service
// over a shared per-tender lock registry.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Tenders == nil || deps.Subs == nil || deps.Disputes == nil {
		return nil, fmt.Errorf("engine requires tender, submission, and dispute stores")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	locks := award.NewTenderLocks()
	publisher, err := award.NewPublisher(deps.Tenders, deps.Subs, locks, deps.Log)
	if err != nil {
		return nil, err
	}
	disputeSvc, err := dispute.NewService(deps.Tenders, deps.Subs, deps.Disputes, locks, deps.Clock, deps.Log)
	if err != nil {
		return nil, err
	}

	return &Engine{
		tenders:    deps.Tenders,
		subs:       deps.Subs,
		disputes:   deps.Disputes,
		publisher:  publisher,
		disputeSvc: disputeSvc,
		review:     deps.Review,
		metrics:    deps.Metrics,
		tracer:     otel.Tracer("evalengine"),
		clock:      deps.Clock,
		log:        deps.Log,
	}, nil
}

// RecordEvaluation validates and stores one evaluator's scores for a
// submission, then advances the submission's status: the first evaluation
// moves Submitted to UnderReview, and the last assigned evaluator's
// evaluation moves UnderReview to Evaluated.
//
// The evaluation is rejected with a ValidationError when a score falls
// outside its criterion's range (never clamped), when a criterion is
// unknown, or when the evaluator is not assigned to the tender. A second
// evaluation by the same evaluator fails with domain.ConflictError from the
// store's uniqueness constraint, including when two requests race.
func (e *Engine) RecordEvaluation(ctx context.Context, tenderID, submissionID string, eval domain.Evaluation) (domain.Submission, error) {
	ctx, span := e.tracer.Start(ctx, "engine.record_evaluation",
		trace.WithAttributes(attribute.String("tender.id", tenderID), attribute.String("submission.id", submissionID)))
	defer span.End()
	defer e.observe("record_evaluation", e.clock())

	tender, err := e.tenders.GetTender(ctx, tenderID)
	if err != nil {
		return domain.Submission{}, err
	}
	if tender.Status == domain.TenderCancelled || tender.Status == domain.TenderDraft {
		return domain.Submission{}, &domain.InvalidTransitionError{
			Entity: "tender",
			ID:     tenderID,
			Reason: fmt.Sprintf("evaluations cannot be recorded while the tender is %q", tender.Status),
		}
	}
	if !tender.HasEvaluator(eval.EvaluatorID) {
		verr := domain.NewValidationError("evaluation")
		verr.AddError(fmt.Sprintf("evaluator %q is not assigned to tender %q", eval.EvaluatorID, tenderID))
		return domain.Submission{}, verr
	}

	sub, err := e.subs.GetSubmission(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.TenderID != tenderID {
		return domain.Submission{}, &domain.NotFoundError{Kind: "submission", ID: submissionID}
	}
	if sub.Status == domain.SubmissionRejected || sub.Status == domain.SubmissionWinner {
		return domain.Submission{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     submissionID,
			Reason: fmt.Sprintf("evaluations cannot be added in status %q", sub.Status),
		}
	}

	if err := domain.ValidateEvaluation(tender, eval); err != nil {
		return domain.Submission{}, err
	}

	eval.CreatedAt = e.clock()
	updated, err := e.subs.AddEvaluation(ctx, submissionID, eval)
	if err != nil {
		return domain.Submission{}, err
	}

	return e.advanceAfterEvaluation(ctx, tender, updated)
}

// advanceAfterEvaluation applies the review-progress transitions that
// follow a new evaluation. The CAS on the submission version means a racing
// evaluator may advance the status first; losing that race is fine as long
// as the final status reflects the full evaluation set, so conflicts here
// re-read and retry once.
func (e *Engine) advanceAfterEvaluation(ctx context.Context, tender domain.Tender, sub domain.Submission) (domain.Submission, error) {
	next := sub.Status
	if sub.Status == domain.SubmissionSubmitted {
		next = domain.SubmissionUnderReview
	}
	if len(sub.Evaluations) >= len(tender.AssignedEvaluators) && len(tender.AssignedEvaluators) > 0 {
		next = domain.SubmissionEvaluated
	}
	if next == sub.Status {
		return sub, nil
	}

	sub.Status = next
	updated, err := e.subs.UpdateSubmission(ctx, sub)
	if err == nil {
		return updated, nil
	}

	fresh, ferr := e.subs.GetSubmission(ctx, sub.ID)
	if ferr != nil {
		return domain.Submission{}, ferr
	}
	return e.advanceAfterEvaluation(ctx, tender, fresh)
}

// Standings recomputes the tender's authoritative ranking from the current
// evaluation snapshot. Nothing stale is ever served: every call re-reads
// the submissions and re-ranks them.
func (e *Engine) Standings(ctx context.Context, tenderID string) ([]scoring.Standing, error) {
	ctx, span := e.tracer.Start(ctx, "engine.standings",
		trace.WithAttributes(attribute.String("tender.id", tenderID)))
	defer span.End()
	defer e.observe("standings", e.clock())

	tender, subs, err := e.loadTenderWithSubmissions(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	return scoring.Rank(tender.Criteria, subs), nil
}

// EvaluationProgress reports, per submission, how many assigned evaluators
// have completed an evaluation. The read model behind review dashboards.
type EvaluationProgress struct {
	SubmissionID string
	Completed    int
	Assigned     int
}

// Progress returns the evaluation completion state for every submission in
// the tender.
func (e *Engine) Progress(ctx context.Context, tenderID string) ([]EvaluationProgress, error) {
	tender, subs, err := e.loadTenderWithSubmissions(ctx, tenderID)
	if err != nil {
		return nil, err
	}

	progress := make([]EvaluationProgress, 0, len(subs))
	for _, sub := range subs {
		progress = append(progress, EvaluationProgress{
			SubmissionID: sub.ID,
			Completed:    len(sub.Evaluations),
			Assigned:     len(tender.AssignedEvaluators),
		})
	}
	return progress, nil
}

// EvaluatorRanks returns each evaluator's personal ranking of the tender's
// submissions, mapped evaluator id to submission id to 1-based rank. These
// ranks are display metadata derived from that evaluator's composites alone;
// the authoritative order comes from Standings.
func (e *Engine) EvaluatorRanks(ctx context.Context, tenderID string) (map[string]map[string]int, error) {
	tender, subs, err := e.loadTenderWithSubmissions(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	return scoring.EvaluatorRanks(tender.Criteria, subs), nil
}

// PublishWinner promotes the rank-1, fully evaluated submission to the
// tender's published winner. See award.Publisher for the guard and
// atomicity rules.
func (e *Engine) PublishWinner(ctx context.Context, tenderID, submissionID string) (domain.Tender, error) {
	ctx, span := e.tracer.Start(ctx, "engine.publish_winner",
		trace.WithAttributes(attribute.String("tender.id", tenderID), attribute.String("submission.id", submissionID)))
	defer span.End()
	defer e.observe("publish_winner", e.clock())

	return e.publisher.Publish(ctx, tenderID, submissionID)
}

// RejectSubmission marks a submission rejected and records the rejection
// instant that anchors any later rejection dispute.
func (e *Engine) RejectSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	sub, err := e.subs.GetSubmission(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if !sub.Status.CanTransitionTo(domain.SubmissionRejected) {
		return domain.Submission{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     submissionID,
			From:   string(sub.Status),
			To:     string(domain.SubmissionRejected),
			Reason: "submission can only be rejected before evaluation completes",
		}
	}

	now := e.clock()
	sub.Status = domain.SubmissionRejected
	sub.RejectedAt = &now
	return e.subs.UpdateSubmission(ctx, sub)
}

// FileDispute records a vendor's dispute if its filing window is open.
func (e *Engine) FileDispute(ctx context.Context, req dispute.FileRequest) (domain.Dispute, error) {
	ctx, span := e.tracer.Start(ctx, "engine.file_dispute",
		trace.WithAttributes(attribute.String("tender.id", req.TenderID)))
	defer span.End()
	defer e.observe("file_dispute", e.clock())

	return e.disputeSvc.File(ctx, req)
}

// ResolveDispute applies an admin's verdict. See dispute.Service.Resolve
// for the winner-reassignment semantics.
func (e *Engine) ResolveDispute(ctx context.Context, res dispute.Resolution) (*domain.Tender, domain.Dispute, error) {
	ctx, span := e.tracer.Start(ctx, "engine.resolve_dispute",
		trace.WithAttributes(attribute.String("dispute.id", res.DisputeID)))
	defer span.End()
	defer e.observe("resolve_dispute", e.clock())

	return e.disputeSvc.Resolve(ctx, res)
}

// ReviewWithAI runs the advisory AI pipeline over the tender's submissions
// and returns the submissions with their ephemeral AiScore attached. The
// scores are not persisted; a repeat call performs fresh oracle round trips
// and may produce different text. A pipeline failure leaves every
// submission's AiScore nil and surfaces domain.ExternalServiceError.
func (e *Engine) ReviewWithAI(ctx context.Context, tenderID string) (aireview.Review, []domain.Submission, error) {
	ctx, span := e.tracer.Start(ctx, "engine.review_with_ai",
		trace.WithAttributes(attribute.String("tender.id", tenderID)))
	defer span.End()
	defer e.observe("review_with_ai", e.clock())

	if e.review == nil {
		return aireview.Review{}, nil, &domain.ExternalServiceError{
			Service: "scoring oracle",
			Op:      "review",
			Err:     fmt.Errorf("no scoring oracle configured"),
		}
	}

	tender, subs, err := e.loadTenderWithSubmissions(ctx, tenderID)
	if err != nil {
		return aireview.Review{}, nil, err
	}

	review, err := e.review.Evaluate(ctx, tender, subs)
	if err != nil {
		return aireview.Review{}, nil, err
	}

	for i := range subs {
		subs[i].AiScore = review.Scores[i]
	}
	return review, subs, nil
}

// loadTenderWithSubmissions fetches the tender record and its submission
// snapshot concurrently.
func (e *Engine) loadTenderWithSubmissions(ctx context.Context, tenderID string) (domain.Tender, []domain.Submission, error) {
	var (
		tender domain.Tender
		subs   []domain.Submission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tender, err = e.tenders.GetTender(gctx, tenderID)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = e.subs.ListSubmissions(gctx, tenderID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Tender{}, nil, err
	}
	return tender, subs, nil
}

// observe records operation latency when a metrics collector is configured.
func (e *Engine) observe(operation string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordLatency(operation, e.clock().Sub(start), map[string]string{"component": "engine"})
	e.metrics.RecordCounter("engine_operations_total", 1, map[string]string{"operation": operation})
}
