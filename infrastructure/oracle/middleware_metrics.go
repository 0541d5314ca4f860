package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/procurelane/evalengine/internal/ports"
)

// metricsOracle records request latency, counts, and token usage per
// provider and model.
type metricsOracle struct {
	next      CoreOracle
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports request metrics to the
// given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreOracle) CoreOracle {
		return &metricsOracle{next: next, collector: collector}
	}
}

// DoRequest executes the request while recording latency, outcome, and
// token counters.
func (m *metricsOracle) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := m.next.DoRequest(ctx, prompt, opts)

	labels := map[string]string{
		"provider": m.providerLabel(),
		"model":    m.next.GetModel(),
		"status":   "success",
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			labels["status"] = "timeout"
		} else {
			labels["status"] = "error"
		}
	}

	if m.collector != nil {
		m.collector.RecordHistogram("oracle_latency_seconds", time.Since(start).Seconds(), labels)
		m.collector.RecordCounter("oracle_requests_total", 1, labels)

		if err == nil {
			labels["token_type"] = "input"
			m.collector.RecordCounter("oracle_tokens_total", float64(tokensIn), labels)

			labels["token_type"] = "output"
			m.collector.RecordCounter("oracle_tokens_total", float64(tokensOut), labels)
		}
	}

	return response, tokensIn, tokensOut, err
}

// providerLabel infers the provider label from the model name.
func (m *metricsOracle) providerLabel() string {
	model := m.next.GetModel()
	switch {
	case strings.Contains(model, "gpt"):
		return "openai"
	case strings.Contains(model, "claude"):
		return "anthropic"
	case strings.Contains(model, "gemini"):
		return "google"
	}
	return "unknown"
}

// GetModel returns the model name from the wrapped implementation.
func (m *metricsOracle) GetModel() string { return m.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (m *metricsOracle) SetModel(model string) { m.next.SetModel(model) }
