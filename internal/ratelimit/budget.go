// Package ratelimit estimates and tracks the API-quota budget of a run.
// The numbers come from the GraphQL pool: that is the pool the bulk of
// the expensive queries draw from, and quoting the healthier REST pool
// would mislead every decision built on top of it.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
)

const (
	// TotalBudget is the hourly quota of an authenticated token.
	TotalBudget = 5000

	// AbortFloor is the remaining-quota level below which starting a run
	// is pointless; no confirmation prompt is offered.
	AbortFloor = 100

	warnTotalFraction     = 0.5
	warnRemainingFraction = 0.8

	// Empirical calibration of the two-phase cost model. Doubling the
	// window does not double the cost: most repos and PRs are re-visited
	// rather than newly discovered, hence the sub-linear time exponent.
	callsPerMemberPerWeek = 2.4
	timeScaleExponent     = 0.4

	// Large orgs carry a long tail of members who turn out inactive and
	// cost almost nothing past the probe; the member exponent models that.
	memberScaleExponent = 0.8
	memberScaleCoef     = 3.5

	// Phase 1: batched summary queries, ten subjects per query.
	fallbackBatchSize = 10
)

// QuotaFetcher is the piece of the gateway the budget needs.
type QuotaFetcher interface {
	Quota(ctx context.Context) (*gateway.Quota, error)
}

// Budget tracks remaining quota and reset time for the run. It is
// refreshed once before any gated decision and read-only afterward.
type Budget struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	known     bool
}

// Refresh queries the current quota. A failure here is fatal: nothing
// downstream can run blind.
func (b *Budget) Refresh(ctx context.Context, fetcher QuotaFetcher) error {
	q, err := fetcher.Quota(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh rate limit budget: %w", err)
	}
	b.Limit = q.Limit
	b.Remaining = q.Remaining
	b.ResetAt = q.ResetAt
	b.known = true
	return nil
}

// Estimate projects the API calls an org run will spend. Phase 1 is the
// batched summary pass over the roster; phase 2 is the per-member
// gathering. When the active member count is already known (post-scan),
// phase 1 is spent and member scaling no longer applies.
func Estimate(members, days int, knownActive bool) int {
	if members <= 0 {
		return 0
	}

	effective := float64(members)
	phase1 := 0.0
	if !knownActive {
		scaled := math.Pow(float64(members), memberScaleExponent) * memberScaleCoef
		effective = math.Min(effective, scaled)
		phase1 = math.Ceil(float64(members) / fallbackBatchSize)
	}

	weeks := math.Pow(float64(days)/7.0, timeScaleExponent)
	phase2 := effective * callsPerMemberPerWeek * weeks
	return int(phase1 + phase2)
}

// ShouldWarn reports whether the projected spend deserves a confirmation
// prompt: over half the total budget, or over 80% of what remains. An
// unknown remaining quota is treated as a full budget.
func (b *Budget) ShouldWarn(estimate int) (bool, string) {
	remaining := TotalBudget
	if b.known {
		remaining = b.Remaining
	}
	switch {
	case float64(estimate) > warnTotalFraction*TotalBudget:
		return true, fmt.Sprintf("estimated %d API calls, over %.0f%% of the %d hourly budget",
			estimate, warnTotalFraction*100, TotalBudget)
	case float64(estimate) > warnRemainingFraction*float64(remaining):
		return true, fmt.Sprintf("estimated %d API calls against only %d remaining (%.0f%% threshold)",
			estimate, remaining, warnRemainingFraction*100)
	}
	return false, ""
}

// ShouldAbort reports whether remaining quota is below the absolute
// floor, regardless of the estimate.
func (b *Budget) ShouldAbort() bool {
	return b.known && b.Remaining < AbortFloor
}
