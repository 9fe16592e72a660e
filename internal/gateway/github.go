// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

// RepoMeta is the repository metadata needed for attribution and noise
// filtering: fork linkage, privacy, description and primary language.
type RepoMeta struct {
	NameWithOwner string
	IsFork        bool
	IsPrivate     bool
	Parent        string
	Language      string
	Description   string
}

// RepoContribution pairs a repository with the subject's default-branch
// commit count in it for the queried window.
type RepoContribution struct {
	Repo    RepoMeta
	Commits int
}

// ContributionSummary is a subject's contributionsCollection for a window.
// The API caps the span at one year, so queries clamp the window first.
type ContributionSummary struct {
	Login           string
	Name            string
	Company         string
	TotalCommits    int
	RestrictedCount int
	TotalPRs        int
	TotalIssues     int
	TotalReviews    int
	CommitsByRepo   []RepoContribution
}

// SearchCommit is one commit as discovered by the search index or a
// branch scan, before attribution.
type SearchCommit struct {
	SHA        string
	Repo       string
	AuthoredAt time.Time
}

// ForkInfo describes one fork owned by a subject.
type ForkInfo struct {
	NameWithOwner string
	Parent        string
	Language      string
	Description   string
}

// OrgInfo is the display metadata of an organization.
type OrgInfo struct {
	Login       string
	Name        string
	Description string
}

// Quota is a snapshot of one rate-limit pool.
type Quota struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	ContributionSummary(ctx context.Context, login string, from, to time.Time) (*ContributionSummary, error)
	ContributionSummaryBatch(ctx context.Context, logins []string, from, to time.Time) (map[string]*ContributionSummary, error)
	SearchCommits(ctx context.Context, login string, from, to time.Time) ([]SearchCommit, error)
	CommitStats(ctx context.Context, repo, sha string) (additions, deletions int, err error)
	ListBranches(ctx context.Context, repo string) ([]string, error)
	BranchCommits(ctx context.Context, repo, branch, author string, from, to time.Time) ([]SearchCommit, error)
	PullRequestsCreated(ctx context.Context, login string, from, to time.Time) ([]domain.PullRequest, error)
	PullRequestsReviewed(ctx context.Context, login string, from, to time.Time) ([]domain.PullRequest, error)
	UserForks(ctx context.Context, login string) ([]ForkInfo, error)
	RepoInfoBatch(ctx context.Context, repos []string) (map[string]*RepoMeta, error)
	RepoTopics(ctx context.Context, repo string) ([]string, error)
	RepoLanguages(ctx context.Context, repo string) (map[string]int, error)
	OrgInfo(ctx context.Context, org string) (*OrgInfo, error)
	OrgMembers(ctx context.Context, org string) ([]string, error)
	TeamMembers(ctx context.Context, org, team string) ([]string, error)
	Quota(ctx context.Context) (*Quota, error)
	ProbeActivity(ctx context.Context, login string, from, to time.Time) (bool, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	httpClient    *http.Client // authenticated, for alias-batched GraphQL
	probeClient   *http.Client // unauthenticated, for calendar scraping
	probeLimiter  *rate.Limiter
	graphqlURL    string
	calendarURL   string
	logger        *log.Logger
}

const (
	defaultGraphQLURL  = "https://api.github.com/graphql"
	defaultCalendarURL = "https://github.com/users/%s/contributions?from=%s&to=%s"

	// Probes are unauthenticated page fetches; stay well under anything
	// that looks like scraping abuse.
	probeRequestsPerSecond = 10
	probeTimeout           = 10 * time.Second
)

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		httpClient:    httpClient,
		probeClient:   &http.Client{Timeout: probeTimeout},
		probeLimiter:  rate.NewLimiter(rate.Limit(probeRequestsPerSecond), 1),
		graphqlURL:    defaultGraphQLURL,
		calendarURL:   defaultCalendarURL,
		logger:        logger,
	}, nil
}

// clampWindow narrows [from, to] to at most one year, the hard span limit
// of the contributionsCollection API.
func clampWindow(from, to time.Time) (time.Time, time.Time) {
	if floor := to.AddDate(-1, 0, 1); from.Before(floor) {
		return floor, to
	}
	return from, to
}
