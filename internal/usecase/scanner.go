package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/pool"
)

// summaryFallbackBatch is how many subjects one fallback query covers.
const summaryFallbackBatch = 10

// Scanner narrows an org's member list to the subjects with any activity
// in the window, so the expensive per-member gathering never runs for
// the long inactive tail.
type Scanner struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewScanner creates a new Scanner instance.
func NewScanner(fetcher gateway.Fetcher, logger *log.Logger) *Scanner {
	return &Scanner{fetcher: fetcher, logger: logger}
}

// Scan probes every login's public contribution calendar and returns the
// active subset, preserving input order. Probes cost no API quota; the
// logins whose probes fail are re-checked through batched summary
// queries, which do.
func (s *Scanner) Scan(ctx context.Context, logins []string, from, to time.Time) ([]string, error) {
	members := make([]string, 0, len(logins))
	for _, login := range logins {
		if domain.IsBot(login) {
			continue
		}
		members = append(members, login)
	}

	active := make(map[string]bool, len(members))
	var unresolved []string

	tasks := make([]func(context.Context) (bool, error), len(members))
	for i, login := range members {
		login := login
		tasks[i] = func(ctx context.Context) (bool, error) {
			return s.fetcher.ProbeActivity(ctx, login, from, to)
		}
	}
	for result := range pool.Run(ctx, pool.ProbeWorkers, tasks) {
		login := members[result.Index]
		switch {
		case result.Err == nil:
			active[login] = result.Value
		case gateway.IsNotFound(result.Err):
			// Deleted or renamed accounts have no calendar; not active.
			active[login] = false
		default:
			s.logger.Printf("Usecase: probe for %s failed, falling back: %v", login, result.Err)
			unresolved = append(unresolved, login)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for start := 0; start < len(unresolved); start += summaryFallbackBatch {
		batch := unresolved[start:min(start+summaryFallbackBatch, len(unresolved))]
		summaries, err := s.fetcher.ContributionSummaryBatch(ctx, batch, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve activity of %d probed members: %w", len(batch), err)
		}
		for _, login := range batch {
			summary := summaries[login]
			active[login] = summary != nil && hasActivity(summary)
		}
	}

	var result []string
	for _, login := range members {
		if active[login] {
			result = append(result, login)
		}
	}
	s.logger.Printf("Usecase: %d of %d members active in window", len(result), len(members))
	return result, nil
}

func hasActivity(s *gateway.ContributionSummary) bool {
	return s.TotalCommits > 0 || s.TotalPRs > 0 || s.TotalReviews > 0 ||
		s.TotalIssues > 0 || s.RestrictedCount > 0
}
