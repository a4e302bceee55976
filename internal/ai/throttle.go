package ai

import "context"

// Waiter blocks until an outbound call is permitted. Satisfied by
// ratelimit.TokenBucket; the AI collaborator is an external, possibly
// rate-limited service, so every call passes through it.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

const throttleKey = "rl:ai"

type throttled struct {
	inner  Client
	waiter Waiter
}

// NewThrottled wraps a client so every call first acquires a rate-limit token.
// A nil waiter returns the client unchanged.
func NewThrottled(inner Client, waiter Waiter) Client {
	if waiter == nil {
		return inner
	}
	return &throttled{inner: inner, waiter: waiter}
}

func (t *throttled) ExtractPoints(ctx context.Context, text string) ([]string, error) {
	if err := t.waiter.Wait(ctx, throttleKey); err != nil {
		return nil, err
	}
	return t.inner.ExtractPoints(ctx, text)
}

func (t *throttled) ScoreCandidate(ctx context.Context, input MatchingInput) (Assessment, error) {
	if err := t.waiter.Wait(ctx, throttleKey); err != nil {
		return Assessment{}, err
	}
	return t.inner.ScoreCandidate(ctx, input)
}

func (t *throttled) TailorResume(ctx context.Context, input MatchingInput) (TailoredSections, error) {
	if err := t.waiter.Wait(ctx, throttleKey); err != nil {
		return TailoredSections{}, err
	}
	return t.inner.TailorResume(ctx, input)
}
