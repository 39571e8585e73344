package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/agentmvp/agent-gateway/internal/observability/metrics"
	"github.com/agentmvp/agent-gateway/pkg/logging"
)

// RetryPolicy bounds retries for failures a retry may resolve. Attempt count
// and backoff are explicit so tests can substitute a zero-delay policy.
type RetryPolicy struct {
	// MaxRetries is the number of additional attempts after the first call.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter is the maximum random fraction added to each delay, e.g. 0.2
	// adds up to 20% to avoid synchronized retry storms.
	Jitter float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
		Jitter:     0.2,
	}
}

// delay computes the backoff before retry number attempt (0-based). A
// provider-supplied retry-after hint wins when it exceeds the computed value.
func (p RetryPolicy) delay(attempt int, hint time.Duration) time.Duration {
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	if hint > d {
		d = hint
	}
	return d
}

// RetryConfig carries the optional collaborators of a RetryingClient.
type RetryConfig struct {
	Policy  RetryPolicy
	Logger  *logging.Logger
	Metrics *metrics.GatewayMetrics
	// Sleep overrides the ctx-aware delay between attempts; tests inject a
	// recording zero-delay function here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RetryingClient wraps a Client with the bounded retry policy. Retry lives
// here and nowhere else; handlers above never retry on their own.
type RetryingClient struct {
	inner   Client
	policy  RetryPolicy
	logger  *logging.Logger
	metrics *metrics.GatewayMetrics
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRetryingClient(inner Client, cfg RetryConfig) *RetryingClient {
	if inner == nil {
		panic("llm: inner client cannot be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &RetryingClient{
		inner:   inner,
		policy:  cfg.Policy,
		logger:  logger,
		metrics: cfg.Metrics,
		sleep:   sleep,
	}
}

// Complete calls the inner client up to 1+MaxRetries times. Only rate-limit
// and transient failures are retried; after retries exhaust, the last
// classified failure is returned.
func (c *RetryingClient) Complete(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return Response{}, lastErr
			}
			return Response{}, err
		}

		start := time.Now()
		resp, err := c.inner.Complete(ctx, req)
		c.observeAttempt(req.Model, time.Since(start), err)
		if err == nil {
			return resp, nil
		}

		var cerr *Error
		if !errors.As(err, &cerr) || !cerr.Retryable() || attempt == c.policy.MaxRetries {
			return Response{}, err
		}
		lastErr = err

		delay := c.policy.delay(attempt, cerr.RetryAfter)
		c.logger.Warn("retrying completion",
			"attempt", attempt+1,
			"kind", string(cerr.Kind),
			"delay", delay.String(),
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			// Caller went away during backoff; surface the last failure.
			return Response{}, lastErr
		}
	}
	return Response{}, lastErr
}

func (c *RetryingClient) observeAttempt(model string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		if kind, ok := KindOf(err); ok {
			result = string(kind)
		} else {
			result = "canceled"
		}
	}
	c.metrics.ObserveLLMAttempt(result)
	c.metrics.ObserveLLMLatency(model, elapsed.Seconds())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
