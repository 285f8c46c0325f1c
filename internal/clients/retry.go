package clients

import (
	"context"
	"errors"
	"net/http"
	"time"

	"batball/internal/apperr"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is shared by every upstream client.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      0.5,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.RandomizationFactor = p.Jitter
	// общий лимит задает таймаут контекста гейтвея
	b.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do runs op until it succeeds, returns a permanent error, exhausts the
// attempts or ctx ends.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	err := backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	appErr, ok := apperr.As(err)
	if !ok {
		// сетевые ошибки
		return true
	}

	switch appErr.Kind {
	case apperr.KindUpstreamHTTP:
		return appErr.Status == http.StatusTooManyRequests || appErr.Status >= 500
	case apperr.KindUpstreamTimeout:
		return true
	default:
		return false
	}
}
