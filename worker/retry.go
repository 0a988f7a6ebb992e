package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/scipunch/secfeed/fetcher"
	"github.com/scipunch/secfeed/model"
)

// RetryConfig controls how one network operation is attempted
type RetryConfig struct {
	MaxRetries     int           // Retries after the first attempt
	InitialBackoff time.Duration // Delay before the first retry
	MaxBackoff     time.Duration
	Timeout        time.Duration // Per attempt, 0 disables it
}

// DefaultRetryConfig mirrors the run defaults: one retry after 1s, 30s per attempt
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     1,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Timeout:        30 * time.Second,
	}
}

func (c RetryConfig) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.InitialBackoff),
		backoff.WithMaxInterval(c.MaxBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.MaxRetries)), ctx)
}

// retryGetter bounds every Get of a source with the per-attempt timeout and
// the retry policy, and refuses to start once the run is cancelled
type retryGetter struct {
	inner  fetcher.Getter
	cfg    RetryConfig
	log    *zap.Logger
	source string
}

func (r *retryGetter) Get(ctx context.Context, url string) ([]byte, error) {
	op := func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(model.NewError(model.KindCancelled, err))
		}

		attemptCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}

		body, err := r.inner.Get(attemptCtx, url)
		switch {
		case err == nil:
			return body, nil
		case ctx.Err() != nil:
			return nil, backoff.Permanent(model.NewError(model.KindCancelled, ctx.Err()))
		case !isRetryable(err):
			return nil, backoff.Permanent(err)
		default:
			return nil, err
		}
	}

	notify := func(err error, wait time.Duration) {
		r.log.Warn("request failed, retrying",
			zap.String("source", r.source),
			zap.String("url", url),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	body, err := backoff.RetryNotifyWithData(op, r.cfg.backoff(ctx), notify)
	if err != nil && errors.Is(err, context.Canceled) && model.KindOf(err) != model.KindCancelled {
		err = model.NewError(model.KindCancelled, err)
	}
	return body, err
}

// isRetryable reports whether a failed request may succeed on a second try.
// Transport failures and 429 are retried; parse errors and 4xx are not.
func isRetryable(err error) bool {
	var se *fetcher.StatusError
	if errors.As(err, &se) && se.Permanent() {
		return false
	}
	switch model.KindOf(err) {
	case model.KindTransport, model.KindRateLimited:
		return true
	default:
		return false
	}
}
