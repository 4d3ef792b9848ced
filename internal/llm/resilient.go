package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

type ResilientConfig struct {
	Timeout       time.Duration // per attempt; default 60s
	MaxRetries    int           // extra attempts after the first
	RatePerMinute int           // 0 = unlimited
	Backoff       time.Duration // base delay between attempts; default 500ms
}

// Resilient bounds every call with a timeout, retries transient failures a
// small number of times and rate limits outgoing requests.
type Resilient struct {
	inner   Completer
	cfg     ResilientConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewResilient(inner Completer, cfg ResilientConfig, logger *slog.Logger) *Resilient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	return &Resilient{inner: inner, cfg: cfg, limiter: limiter, logger: logger}
}

func (r *Resilient) Complete(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.Backoff * time.Duration(1<<(attempt-1))
			r.logger.Warn("llm.retry", "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		resp, err := r.inner.Complete(actx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}
	r.logger.Error("llm.call.failed", "attempts_max", r.cfg.MaxRetries+1, "error", lastErr)
	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	// transport errors and per-attempt timeouts
	return !errors.Is(err, context.Canceled)
}
