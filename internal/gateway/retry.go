package gateway

import (
	"context"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	maxAttempts    = 4
	baseRetryDelay = 1 * time.Second
)

// do executes fn with bounded exponential backoff: up to three extra
// attempts at 1s/2s/4s, only for the transient failure class. Every other
// class returns immediately and the caller decides whether the failure is
// fatal or degrades to missing data.
func (g *GitHubGateway) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(baseRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			return classifyErr(err) == classTransient
		}),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Printf("%s: transient failure (attempt %d/%d), retrying: %v",
				op, n+1, maxAttempts, err)
		}),
		retry.LastErrorOnly(true),
	)
}
