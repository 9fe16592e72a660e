package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client at the mock server.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL+"/graphql", server.Client())

	gw := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		httpClient:    server.Client(),
		probeClient:   server.Client(),
		probeLimiter:  rate.NewLimiter(rate.Inf, 1),
		graphqlURL:    server.URL + "/graphql",
		calendarURL:   server.URL + "/users/%s/contributions?from=%s&to=%s",
		logger:        log.New(io.Discard, "", 0),
	}
	return gw, server
}

func testWindow() (time.Time, time.Time) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	return from, to
}

func TestGitHubGateway_SearchCommits(t *testing.T) {
	from, to := testWindow()

	t.Run("happy path", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "/search/commits")
			assert.Contains(t, r.URL.Query().Get("q"), "author:alice")
			assert.Contains(t, r.URL.Query().Get("q"), "author-date:2026-01-01..2026-01-31")
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"total_count": 2, "items": [
				{"sha": "aaa", "repository": {"full_name": "whatwg/html"}, "commit": {"author": {"date": "2026-01-05T10:00:00Z"}}},
				{"sha": "bbb", "repository": {"full_name": "w3c/csswg-drafts"}, "commit": {"author": {"date": "2026-01-06T10:00:00Z"}}}
			]}`)
		}
		gw, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()

		commits, err := gw.SearchCommits(context.Background(), "alice", from, to)
		require.NoError(t, err)
		require.Len(t, commits, 2)
		assert.Equal(t, "aaa", commits[0].SHA)
		assert.Equal(t, "whatwg/html", commits[0].Repo)
		assert.Equal(t, "w3c/csswg-drafts", commits[1].Repo)
	})

	t.Run("not found surfaces as such", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
		gw, server := setupTestGateway(t, http.HandlerFunc(handler))
		defer server.Close()

		_, err := gw.SearchCommits(context.Background(), "alice", from, to)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestGitHubGateway_ContributionSummary(t *testing.T) {
	from, to := testWindow()

	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data": {"user": {
			"name": "Alice A",
			"company": "@w3c",
			"contributionsCollection": {
				"totalCommitContributions": 42,
				"restrictedContributionsCount": 3,
				"totalPullRequestContributions": 7,
				"totalIssueContributions": 1,
				"totalPullRequestReviewContributions": 9,
				"commitContributionsByRepository": [
					{"repository": {"nameWithOwner": "whatwg/html", "isFork": false, "isPrivate": false,
						"description": "HTML Standard", "primaryLanguage": {"name": "HTML"},
						"parent": {"nameWithOwner": ""}},
					 "contributions": {"totalCount": 42}}
				]
			}
		}}}`)
	}
	gw, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	summary, err := gw.ContributionSummary(context.Background(), "alice", from, to)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", summary.Name)
	assert.Equal(t, "@w3c", summary.Company)
	assert.Equal(t, 42, summary.TotalCommits)
	assert.Equal(t, 3, summary.RestrictedCount)
	assert.Equal(t, 9, summary.TotalReviews)
	require.Len(t, summary.CommitsByRepo, 1)
	assert.Equal(t, "whatwg/html", summary.CommitsByRepo[0].Repo.NameWithOwner)
	assert.Equal(t, 42, summary.CommitsByRepo[0].Commits)
}

func TestGitHubGateway_PullRequestsReviewed(t *testing.T) {
	from, to := testWindow()

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data": {"user": {"contributionsCollection": {"pullRequestReviewContributions": {
			"totalCount": 3,
			"pageInfo": {"hasNextPage": false, "endCursor": ""},
			"nodes": [
				{"pullRequest": {"title": "Fix parser", "url": "https://github.com/whatwg/html/pull/1",
					"state": "MERGED", "additions": 10, "deletions": 2,
					"author": {"login": "bob"}, "repository": {"nameWithOwner": "whatwg/html"}}},
				{"pullRequest": {"title": "Fix parser", "url": "https://github.com/whatwg/html/pull/1",
					"state": "MERGED", "additions": 10, "deletions": 2,
					"author": {"login": "bob"}, "repository": {"nameWithOwner": "whatwg/html"}}},
				{"pullRequest": {"title": "Bump deps", "url": "https://github.com/whatwg/html/pull/2",
					"state": "OPEN", "additions": 1, "deletions": 1,
					"author": {"login": "dependabot[bot]"}, "repository": {"nameWithOwner": "whatwg/html"}}}
			]
		}}}}}`)
	}
	gw, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	prs, err := gw.PullRequestsReviewed(context.Background(), "alice", from, to)
	require.NoError(t, err)

	// The duplicate URL and the bot-authored PR both drop out.
	require.Len(t, prs, 1)
	assert.Equal(t, "https://github.com/whatwg/html/pull/1", prs[0].URL)
	assert.Equal(t, "bob", prs[0].Author)
}

func TestGitHubGateway_ContributionSummaryBatch(t *testing.T) {
	from, to := testWindow()

	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data": {
			"u0": {"login": "alice", "name": "Alice", "company": "",
				"contributionsCollection": {"totalCommitContributions": 5,
					"restrictedContributionsCount": 0, "totalPullRequestContributions": 1,
					"totalIssueContributions": 0, "totalPullRequestReviewContributions": 2}},
			"u1": null
		}}`)
	}
	gw, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	summaries, err := gw.ContributionSummaryBatch(context.Background(), []string{"alice", "deleted"}, from, to)
	require.NoError(t, err)

	// Unresolvable logins are simply absent.
	require.Len(t, summaries, 1)
	assert.Equal(t, 5, summaries["alice"].TotalCommits)
	assert.Equal(t, 2, summaries["alice"].TotalReviews)
}

func TestGitHubGateway_RepoInfoBatch(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data": {
			"r0": {"nameWithOwner": "alice/html", "isFork": true, "isPrivate": false,
				"description": "my fork", "primaryLanguage": {"name": "HTML"},
				"parent": {"nameWithOwner": "whatwg/html"}},
			"r1": {"nameWithOwner": "w3c/wai-aria", "isFork": false, "isPrivate": false,
				"description": "", "primaryLanguage": null, "parent": null}
		}}`)
	}
	gw, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	metas, err := gw.RepoInfoBatch(context.Background(), []string{"alice/html", "w3c/wai-aria"})
	require.NoError(t, err)
	require.Len(t, metas, 2)

	fork := metas["alice/html"]
	require.NotNil(t, fork)
	assert.True(t, fork.IsFork)
	assert.Equal(t, "whatwg/html", fork.Parent)
	assert.Equal(t, "HTML", fork.Language)

	plain := metas["w3c/wai-aria"]
	require.NotNil(t, plain)
	assert.Empty(t, plain.Parent)
	assert.Empty(t, plain.Language)
}

func TestGitHubGateway_RawGraphQLRateLimited(t *testing.T) {
	from, to := testWindow()

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"errors": [{"type": "RATE_LIMITED", "message": "API rate limit exceeded"}]}`)
	}
	gw, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	_, err := gw.ContributionSummaryBatch(context.Background(), []string{"alice"}, from, to)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestGitHubGateway_ProbeActivity(t *testing.T) {
	from, to := testWindow()

	testCases := []struct {
		name        string
		status      int
		body        string
		expected    bool
		expectError bool
		notFound    bool
	}{
		{
			name:     "active day in range",
			status:   http.StatusOK,
			body:     `<td data-date="2026-01-10" data-level="2"></td>`,
			expected: true,
		},
		{
			name:     "attributes in reverse order",
			status:   http.StatusOK,
			body:     `<td data-level="3" data-date="2026-01-11"></td>`,
			expected: true,
		},
		{
			name:     "only zero levels",
			status:   http.StatusOK,
			body:     `<td data-date="2026-01-10" data-level="0"></td>`,
			expected: false,
		},
		{
			name:     "activity outside the window",
			status:   http.StatusOK,
			body:     `<td data-date="2025-12-31" data-level="4"></td>`,
			expected: false,
		},
		{
			name:        "missing profile",
			status:      http.StatusNotFound,
			body:        "not found",
			expectError: true,
			notFound:    true,
		},
		{
			name:        "server error",
			status:      http.StatusServiceUnavailable,
			body:        "",
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.Path, "/users/alice/contributions")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}
			gw, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			active, err := gw.ProbeActivity(context.Background(), "alice", from, to)
			if tc.expectError {
				require.Error(t, err)
				assert.Equal(t, tc.notFound, errors.Is(err, ErrNotFound))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, active)
			}
		})
	}
}

func TestClassifyErr(t *testing.T) {
	resp404 := &github.ErrorResponse{Response: &http.Response{StatusCode: 404}}
	resp500 := &github.ErrorResponse{Response: &http.Response{StatusCode: 500}}
	resp422 := &github.ErrorResponse{Response: &http.Response{StatusCode: 422}}

	testCases := []struct {
		name     string
		err      error
		expected errClass
	}{
		{name: "nil", err: nil, expected: classOK},
		{name: "primary rate limit", err: &github.RateLimitError{}, expected: classRateLimit},
		{name: "own rate limit type", err: &RateLimitError{}, expected: classRateLimit},
		{name: "abuse throttle is transient", err: &github.AbuseRateLimitError{}, expected: classTransient},
		{name: "404 response", err: resp404, expected: classNotFound},
		{name: "500 response", err: resp500, expected: classTransient},
		{name: "422 response", err: resp422, expected: classFatal},
		{name: "wrapped sentinel", err: fmt.Errorf("probe: %w", ErrNotFound), expected: classNotFound},
		{name: "deadline", err: context.DeadlineExceeded, expected: classTransient},
		{name: "graphql rate limit string", err: errors.New("API rate limit exceeded for user"), expected: classRateLimit},
		{name: "graphql 502 string", err: errors.New("non-200 OK status code: 502 Bad Gateway"), expected: classTransient},
		{name: "graphql resolve string", err: errors.New(`Could not resolve to a User with the login of 'gone'`), expected: classNotFound},
		{name: "anything else is fatal", err: errors.New("boom"), expected: classFatal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifyErr(tc.err))
		})
	}
}

func TestResetTime(t *testing.T) {
	reset := time.Now().Add(20 * time.Minute)

	got, ok := ResetTime(&RateLimitError{ResetAt: reset})
	assert.True(t, ok)
	assert.Equal(t, reset, got)

	_, ok = ResetTime(errors.New("boom"))
	assert.False(t, ok)
}

func TestClampWindow(t *testing.T) {
	to := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("short window untouched", func(t *testing.T) {
		from := to.AddDate(0, -1, 0)
		gotFrom, gotTo := clampWindow(from, to)
		assert.Equal(t, from, gotFrom)
		assert.Equal(t, to, gotTo)
	})

	t.Run("long window clamped to a year", func(t *testing.T) {
		from := to.AddDate(-3, 0, 0)
		gotFrom, gotTo := clampWindow(from, to)
		assert.Equal(t, to.AddDate(-1, 0, 1), gotFrom)
		assert.Equal(t, to, gotTo)
	})
}
