package oracle

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracedOracle wraps each request in an OpenTelemetry span carrying model
// and token-usage attributes.
type tracedOracle struct {
	next   CoreOracle
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that traces oracle requests under
// the given service name.
func TracingMiddleware(serviceName string) Middleware {
	tracer := otel.Tracer(serviceName)
	return func(next CoreOracle) CoreOracle {
		return &tracedOracle{next: next, tracer: tracer}
	}
}

// DoRequest executes the request within a span, recording failure status
// and token counts.
func (t *tracedOracle) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	ctx, span := t.tracer.Start(ctx, "oracle.request",
		trace.WithAttributes(
			attribute.String("oracle.model", t.next.GetModel()),
			attribute.Int("oracle.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	response, tokensIn, tokensOut, err := t.next.DoRequest(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("oracle.tokens.input", tokensIn),
			attribute.Int("oracle.tokens.output", tokensOut),
		)
	}

	return response, tokensIn, tokensOut, err
}

// GetModel returns the model name from the wrapped implementation.
func (t *tracedOracle) GetModel() string { return t.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (t *tracedOracle) SetModel(m string) { t.next.SetModel(m) }
