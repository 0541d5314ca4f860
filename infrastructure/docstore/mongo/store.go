// Package mongo provides MongoDB-backed document stores for the engine.
// The contracts match the in-memory stores: compare-and-swap on version,
// per-evaluator evaluation uniqueness enforced by a filtered update, and
// winner decisions applied inside a multi-document transaction.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
)

// Collection names within the engine's database.
const (
	tendersCollection     = "tenders"
	submissionsCollection = "submissions"
	disputesCollection    = "disputes"
)

const connectTimeout = 10 * time.Second

// Store implements the engine's three store ports over one MongoDB
// database. ApplyDecision requires a replica set or sharded cluster, since
// it uses a multi-document transaction.
type Store struct {
	client      *mongo.Client
	tenders     *mongo.Collection
	submissions *mongo.Collection
	disputes    *mongo.Collection
}

// NewStore connects to MongoDB and returns a store over the named database.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:      client,
		tenders:     db.Collection(tendersCollection),
		submissions: db.Collection(submissionsCollection),
		disputes:    db.Collection(disputesCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// GetTender returns the tender with the given id.
func (s *Store) GetTender(ctx context.Context, id string) (domain.Tender, error) {
	var t domain.Tender
	err := s.tenders.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Tender{}, &domain.NotFoundError{Kind: "tender", ID: id}
	}
	if err != nil {
		return domain.Tender{}, fmt.Errorf("fetching tender %s: %w", id, err)
	}
	return t, nil
}

// CreateTender stores a new tender at version 1.
func (s *Store) CreateTender(ctx context.Context, t domain.Tender) (domain.Tender, error) {
	t.Version = 1
	if _, err := s.tenders.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Tender{}, &domain.ConflictError{Entity: "tender", ID: t.ID, Reason: "already exists"}
		}
		return domain.Tender{}, fmt.Errorf("inserting tender %s: %w", t.ID, err)
	}
	return t, nil
}

// UpdateTender replaces the stored tender under CAS on version. The filter
// matches both id and the expected version; zero matches means either the
// tender is gone or a concurrent writer won.
func (s *Store) UpdateTender(ctx context.Context, t domain.Tender) (domain.Tender, error) {
	expected := t.Version
	t.Version++

	result, err := s.tenders.ReplaceOne(ctx, bson.M{"_id": t.ID, "version": expected}, t)
	if err != nil {
		return domain.Tender{}, fmt.Errorf("updating tender %s: %w", t.ID, err)
	}
	if result.MatchedCount == 0 {
		return domain.Tender{}, s.classifyMiss(ctx, s.tenders, "tender", t.ID)
	}
	return t, nil
}

// ApplyDecision atomically demotes the prior winner, promotes the new one,
// and updates the tender record inside one transaction. The tender's
// version CAS anchors the transaction: losing the race aborts everything.
func (s *Store) ApplyDecision(ctx context.Context, d ports.Decision) (domain.Tender, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return domain.Tender{}, fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	updated := d.Tender
	updated.Version++

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		result, err := s.tenders.ReplaceOne(sc, bson.M{"_id": d.Tender.ID, "version": d.Tender.Version}, updated)
		if err != nil {
			return nil, fmt.Errorf("updating tender %s: %w", d.Tender.ID, err)
		}
		if result.MatchedCount == 0 {
			return nil, s.classifyMiss(sc, s.tenders, "tender", d.Tender.ID)
		}

		if d.DemoteSubmissionID != "" {
			if err := s.setStatus(sc, d.DemoteSubmissionID, domain.SubmissionEvaluated); err != nil {
				return nil, err
			}
		}
		if err := s.setStatus(sc, d.PromoteSubmissionID, domain.SubmissionWinner); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return domain.Tender{}, err
	}
	return updated, nil
}

// setStatus moves a submission to the given status, bumping its version.
func (s *Store) setStatus(ctx context.Context, submissionID string, status domain.SubmissionStatus) error {
	result, err := s.submissions.UpdateOne(ctx,
		bson.M{"_id": submissionID},
		bson.M{"$set": bson.M{"status": status}, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return fmt.Errorf("updating submission %s status: %w", submissionID, err)
	}
	if result.MatchedCount == 0 {
		return &domain.NotFoundError{Kind: "submission", ID: submissionID}
	}
	return nil
}

// GetSubmission returns the submission with the given id.
func (s *Store) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	var sub domain.Submission
	err := s.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&sub)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Submission{}, &domain.NotFoundError{Kind: "submission", ID: id}
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("fetching submission %s: %w", id, err)
	}
	return sub, nil
}

// ListSubmissions returns the tender's submissions ordered by submission
// time then id.
func (s *Store) ListSubmissions(ctx context.Context, tenderID string) ([]domain.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.submissions.Find(ctx, bson.M{"tender_id": tenderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing submissions for tender %s: %w", tenderID, err)
	}
	defer cursor.Close(ctx)

	var subs []domain.Submission
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("decoding submissions for tender %s: %w", tenderID, err)
	}
	return subs, nil
}

// CreateSubmission stores a new submission at version 1.
func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	sub.Version = 1
	sub.AiScore = nil
	if _, err := s.submissions.InsertOne(ctx, sub); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Submission{}, &domain.ConflictError{Entity: "submission", ID: sub.ID, Reason: "already exists"}
		}
		return domain.Submission{}, fmt.Errorf("inserting submission %s: %w", sub.ID, err)
	}
	return sub, nil
}

// UpdateSubmission replaces the stored submission under CAS on version.
func (s *Store) UpdateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	expected := sub.Version
	sub.Version++
	sub.AiScore = nil

	result, err := s.submissions.ReplaceOne(ctx, bson.M{"_id": sub.ID, "version": expected}, sub)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("updating submission %s: %w", sub.ID, err)
	}
	if result.MatchedCount == 0 {
		return domain.Submission{}, s.classifyMiss(ctx, s.submissions, "submission", sub.ID)
	}
	return sub, nil
}

// AddEvaluation appends an evaluation with per-evaluator uniqueness pushed
// down into the update filter: the document must not already contain an
// evaluation by this evaluator. Two racing inserts for the same evaluator
// cannot both match.
func (s *Store) AddEvaluation(ctx context.Context, submissionID string, eval domain.Evaluation) (domain.Submission, error) {
	filter := bson.M{
		"_id":                      submissionID,
		"evaluations.evaluator_id": bson.M{"$ne": eval.EvaluatorID},
	}
	update := bson.M{
		"$push": bson.M{"evaluations": eval},
		"$inc":  bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Submission
	err := s.submissions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Distinguish a missing submission from a duplicate evaluator.
		if _, gerr := s.GetSubmission(ctx, submissionID); gerr != nil {
			return domain.Submission{}, gerr
		}
		return domain.Submission{}, &domain.ConflictError{
			Entity: "submission",
			ID:     submissionID,
			Reason: "evaluator " + eval.EvaluatorID + " has already evaluated this submission",
		}
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("adding evaluation to submission %s: %w", submissionID, err)
	}
	return updated, nil
}

// GetDispute returns the dispute with the given id.
func (s *Store) GetDispute(ctx context.Context, id string) (domain.Dispute, error) {
	var d domain.Dispute
	err := s.disputes.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Dispute{}, &domain.NotFoundError{Kind: "dispute", ID: id}
	}
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("fetching dispute %s: %w", id, err)
	}
	return d, nil
}

// ListDisputes returns all disputes filed against the tender, newest first.
func (s *Store) ListDisputes(ctx context.Context, tenderID string) ([]domain.Dispute, error) {
	opts := options.Find().SetSort(bson.D{{Key: "filed_at", Value: -1}})
	cursor, err := s.disputes.Find(ctx, bson.M{"tender_id": tenderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing disputes for tender %s: %w", tenderID, err)
	}
	defer cursor.Close(ctx)

	var out []domain.Dispute
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decoding disputes for tender %s: %w", tenderID, err)
	}
	return out, nil
}

// CreateDispute stores a new pending dispute at version 1.
func (s *Store) CreateDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error) {
	d.Version = 1
	if _, err := s.disputes.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.Dispute{}, &domain.ConflictError{Entity: "dispute", ID: d.ID, Reason: "already exists"}
		}
		return domain.Dispute{}, fmt.Errorf("inserting dispute %s: %w", d.ID, err)
	}
	return d, nil
}

// ResolveDispute moves the dispute from pending to the terminal state in d.
// The filter requires pending status and the expected version, so exactly
// one resolver can win.
func (s *Store) ResolveDispute(ctx context.Context, d domain.Dispute) (domain.Dispute, error) {
	expected := d.Version
	d.Version++

	filter := bson.M{"_id": d.ID, "status": domain.DisputePending, "version": expected}
	result, err := s.disputes.ReplaceOne(ctx, filter, d)
	if err != nil {
		return domain.Dispute{}, fmt.Errorf("resolving dispute %s: %w", d.ID, err)
	}
	if result.MatchedCount == 0 {
		stored, gerr := s.GetDispute(ctx, d.ID)
		if gerr != nil {
			return domain.Dispute{}, gerr
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
		return domain.Dispute{}, &domain.ConflictError{Entity: "dispute", ID: d.ID, Reason: "version mismatch"}
	}
	return d, nil
}

// classifyMiss distinguishes a vanished document from a lost version race
// after a zero-match CAS update.
func (s *Store) classifyMiss(ctx context.Context, coll *mongo.Collection, kind, id string) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &domain.NotFoundError{Kind: kind, ID: id}
	}
	return &domain.ConflictError{Entity: kind, ID: id, Reason: "version mismatch"}
}

// EnsureIndexes creates the indexes the stores rely on. Safe to call at
// startup; index creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.submissions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "tender_id", Value: 1}, {Key: "submitted_at", Value: 1}}},
		{Keys: bson.D{{Key: "tender_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating submission indexes: %w", err)
	}

	_, err = s.disputes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tender_id", Value: 1}, {Key: "filed_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating dispute indexes: %w", err)
	}
	return nil
}

// Verify interface compliance at compile time.
var (
	_ ports.TenderStore     = (*Store)(nil)
	_ ports.SubmissionStore = (*Store)(nil)
	_ ports.DisputeStore    = (*Store)(nil)
)
