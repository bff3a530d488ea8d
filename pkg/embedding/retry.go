package embedding

import (
	"context"
	"time"
)

// RetryingProvider wraps a Provider with at most one bounded retry after a
// backoff pause. Failures are surfaced, never retried indefinitely.
type RetryingProvider struct {
	Inner   Provider
	Backoff time.Duration
}

func WithRetry(inner Provider, backoff time.Duration) *RetryingProvider {
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &RetryingProvider{Inner: inner, Backoff: backoff}
}

func (r *RetryingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.Inner.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if err := r.pause(ctx); err != nil {
		return nil, err
	}
	return r.Inner.Embed(ctx, text)
}

func (r *RetryingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := r.Inner.EmbedBatch(ctx, texts)
	if err == nil {
		return vectors, nil
	}
	if err := r.pause(ctx); err != nil {
		return nil, err
	}
	return r.Inner.EmbedBatch(ctx, texts)
}

func (r *RetryingProvider) pause(ctx context.Context) error {
	timer := time.NewTimer(r.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
