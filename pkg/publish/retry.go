package publish

import (
	"context"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// RetryPolicy configures explicit publish retries. The publisher itself
// never retries; callers opt in by wrapping Publish in WithRetry.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// WithRetry runs publishFn under the policy with a fixed delay between
// attempts. Permanent failures (auth, missing repository) stop immediately.
// A policy of zero or one attempts calls publishFn exactly once.
func WithRetry(ctx context.Context, policy RetryPolicy, publishFn func() (*Result, error)) (*Result, error) {
	if policy.Attempts <= 1 {
		return publishFn()
	}

	return retry.DoWithData(publishFn,
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return !IsPermanent(err) }),
		retry.OnRetry(func(attempt uint, err error) {
			slog.Warn("publish attempt failed, retrying", "attempt", attempt+1, "error", err)
		}),
	)
}
