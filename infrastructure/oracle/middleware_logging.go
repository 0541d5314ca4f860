package oracle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// loggingOracle emits one structured log line per request with model,
// latency, and outcome.
type loggingOracle struct {
	next CoreOracle
	log  *logrus.Entry
}

// LoggingMiddleware creates middleware that logs each request at debug
// level on success and warn level on failure.
func LoggingMiddleware(log *logrus.Entry) Middleware {
	return func(next CoreOracle) CoreOracle {
		return &loggingOracle{next: next, log: log}
	}
}

// DoRequest executes the request and logs its outcome.
func (l *loggingOracle) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	start := time.Now()
	response, tokensIn, tokensOut, err := l.next.DoRequest(ctx, prompt, opts)

	entry := l.log.WithFields(logrus.Fields{
		"model":      l.next.GetModel(),
		"latency_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("oracle request failed")
		return response, tokensIn, tokensOut, err
	}

	entry.WithFields(logrus.Fields{
		"tokens_in":  tokensIn,
		"tokens_out": tokensOut,
	}).Debug("oracle request completed")

	return response, tokensIn, tokensOut, nil
}

// GetModel returns the model name from the wrapped implementation.
func (l *loggingOracle) GetModel() string { return l.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (l *loggingOracle) SetModel(m string) { l.next.SetModel(m) }
