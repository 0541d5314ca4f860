// Package aireview implements the advisory AI scoring pipeline: one oracle
// round trip for a comparative narrative over all of a tender's submissions,
// a second round trip restating that narrative as strict JSON, and an
// id-keyed merge of the parsed scores back onto the submissions.
//
// The pipeline is stateless and strictly decoupled from the authoritative
// ranker. Its output is displayed alongside human scores, never averaged
// into them, and no ranking or winner operation ever blocks on it.
package aireview

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/procurelane/evalengine/internal/domain"
	"github.com/procurelane/evalengine/internal/ports"
)

// Default pipeline settings. Temperature is kept low for scoring
// consistency; the oracle remains non-deterministic regardless, which is why
// every invocation is treated as a fresh external call.
const (
	DefaultTemperature         = 0.2
	DefaultMaxTokens           = 2048
	DefaultSimilarityThreshold = 0.8
)

// Config holds the pipeline's tunable parameters.
type Config struct {
	// Temperature controls randomness in both oracle calls.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=2.0"`

	// MaxTokens bounds the length of each oracle response.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=256,max=16000"`

	// SimilarityThreshold is the minimum Levenshtein similarity for mapping
	// an oracle-reported subscore key onto a canonical criterion name.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" validate:"min=0.0,max=1.0"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Temperature:         DefaultTemperature,
		MaxTokens:           DefaultMaxTokens,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Review is the pipeline's result: the free-form narrative plus one advisory
// AiScore per input submission, index-aligned with the input order. A nil
// entry is the explicit sentinel for a submission the oracle's response did
// not cover; entries are matched by echoed submission id, never by position.
type Review struct {
	Narrative string
	Scores    []*domain.AiScore
}

// Pipeline invokes the scoring oracle and parses its output. It holds no
// per-request state; tests substitute a fake oracle through the port.
type Pipeline struct {
	oracle   ports.ScoringOracle
	config   Config
	validate *validator.Validate
	tracer   trace.Tracer
	log      *logrus.Entry
}

// NewPipeline creates a pipeline over the given oracle.
func NewPipeline(oracle ports.ScoringOracle, config Config, log *logrus.Entry) (*Pipeline, error) {
	if oracle == nil {
		return nil, fmt.Errorf("pipeline requires a scoring oracle")
	}
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return nil, fmt.Errorf("pipeline configuration validation failed: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{
		oracle:   oracle,
		config:   config,
		validate: v,
		tracer:   otel.Tracer("aireview"),
		log:      log,
	}, nil
}

// Evaluate runs the two-call pipeline for a tender and its submissions.
//
// Failure semantics: an error from either oracle call, or a response the
// parser cannot turn into a complete score array, fails the whole request
// with a domain.ExternalServiceError. No score is fabricated and no partial
// score set is returned; the caller shows "AI evaluation not available" and
// may re-invoke manually. The two calls share the caller's context, so a
// timeout or cancellation on either propagates as pipeline failure.
func (p *Pipeline) Evaluate(ctx context.Context, tender domain.Tender, submissions []domain.Submission) (Review, error) {
	if len(submissions) == 0 {
		verr := domain.NewValidationError("ai review")
		verr.AddError("at least one submission is required")
		return Review{}, verr
	}

	ctx, span := p.tracer.Start(ctx, "aireview.evaluate",
		trace.WithAttributes(
			attribute.String("tender.id", tender.ID),
			attribute.Int("submissions.count", len(submissions)),
			attribute.String("oracle.model", p.oracle.GetModel()),
		),
	)
	defer span.End()

	narrative, err := p.generateNarrative(ctx, tender, submissions)
	if err != nil {
		span.RecordError(err)
		return Review{}, err
	}

	scores, err := p.restateScores(ctx, tender, submissions, narrative)
	if err != nil {
		span.RecordError(err)
		return Review{}, err
	}

	return Review{Narrative: narrative, Scores: scores}, nil
}

func (p *Pipeline) generateNarrative(ctx context.Context, tender domain.Tender, submissions []domain.Submission) (string, error) {
	prompt, err := buildNarrativePrompt(tender, submissions)
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "scoring oracle", Op: "narrative prompt", Err: err}
	}

	narrative, err := p.oracle.Generate(ctx, prompt, p.options())
	if err != nil {
		p.log.WithError(err).WithField("tender_id", tender.ID).Warn("oracle narrative call failed")
		return "", &domain.ExternalServiceError{Service: "scoring oracle", Op: "narrative generation", Err: err}
	}
	return narrative, nil
}

func (p *Pipeline) restateScores(ctx context.Context, tender domain.Tender, submissions []domain.Submission, narrative string) ([]*domain.AiScore, error) {
	prompt, err := buildRestatePrompt(tender, submissions, narrative)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "scoring oracle", Op: "restatement prompt", Err: err}
	}

	response, err := p.oracle.Generate(ctx, prompt, p.options())
	if err != nil {
		p.log.WithError(err).WithField("tender_id", tender.ID).Warn("oracle restatement call failed")
		return nil, &domain.ExternalServiceError{Service: "scoring oracle", Op: "score restatement", Err: err}
	}

	entries, err := parseScoreEntries(response)
	if err != nil {
		p.log.WithError(err).WithField("tender_id", tender.ID).Warn("oracle restatement was not valid JSON")
		return nil, &domain.ExternalServiceError{Service: "scoring oracle", Op: "score parsing", Err: err}
	}

	scores, unknown := mergeByID(tender.Criteria, submissions, entries, p.config.SimilarityThreshold)
	if len(unknown) > 0 {
		p.log.WithFields(logrus.Fields{
			"tender_id":   tender.ID,
			"unknown_ids": unknown,
		}).Warn("oracle echoed submission ids that do not belong to this tender")
	}
	return scores, nil
}

func (p *Pipeline) options() map[string]any {
	return map[string]any{
		"temperature": p.config.Temperature,
		"max_tokens":  p.config.MaxTokens,
	}
}
