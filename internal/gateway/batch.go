package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

// Alias-batched queries cannot be expressed through the typed GraphQL
// client, so they go over the wire directly.
const (
	summaryBatchSize  = 10
	repoInfoBatchSize = 50
)

// rawGraphQL posts a hand-built query and returns the per-alias payloads.
// Partial errors (an alias resolving to nothing) are tolerated as long as
// a data object came back.
func (g *GitHubGateway) rawGraphQL(ctx context.Context, op, query string) (map[string]json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	var parsed struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	err = g.do(ctx, op, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphqlURL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read graphql response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("graphql request failed with status %d: %s", resp.StatusCode, body)
		}
		parsed.Data = nil
		parsed.Errors = nil
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("failed to decode graphql response: %w", err)
		}
		for _, e := range parsed.Errors {
			if strings.Contains(strings.ToUpper(e.Type), "RATE_LIMITED") ||
				strings.Contains(strings.ToLower(e.Message), "rate limit") {
				return &RateLimitError{ResetAt: time.Now().Add(time.Hour)}
			}
		}
		if parsed.Data == nil {
			return fmt.Errorf("graphql errors: %v", parsed.Errors)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

type batchedUser struct {
	Login                   string `json:"login"`
	Name                    string `json:"name"`
	Company                 string `json:"company"`
	ContributionsCollection struct {
		TotalCommitContributions            int `json:"totalCommitContributions"`
		RestrictedContributionsCount        int `json:"restrictedContributionsCount"`
		TotalPullRequestContributions       int `json:"totalPullRequestContributions"`
		TotalIssueContributions             int `json:"totalIssueContributions"`
		TotalPullRequestReviewContributions int `json:"totalPullRequestReviewContributions"`
	} `json:"contributionsCollection"`
}

// ContributionSummaryBatch fetches contribution totals for many subjects in
// alias-batched queries of ten. Subjects that fail to resolve (deleted or
// suspended accounts) are simply absent from the result.
func (g *GitHubGateway) ContributionSummaryBatch(ctx context.Context, logins []string, from, to time.Time) (map[string]*ContributionSummary, error) {
	from, to = clampWindow(from, to)
	fromISO := from.UTC().Format(time.RFC3339)
	toISO := to.UTC().Format(time.RFC3339)

	out := make(map[string]*ContributionSummary, len(logins))
	for start := 0; start < len(logins); start += summaryBatchSize {
		end := min(start+summaryBatchSize, len(logins))

		var b strings.Builder
		b.WriteString("query {\n")
		for i, login := range logins[start:end] {
			fmt.Fprintf(&b,
				"u%d: user(login: %q) { login name company "+
					"contributionsCollection(from: %q, to: %q) { "+
					"totalCommitContributions restrictedContributionsCount "+
					"totalPullRequestContributions totalIssueContributions "+
					"totalPullRequestReviewContributions } }\n",
				i, login, fromISO, toISO)
		}
		b.WriteString("}")

		data, err := g.rawGraphQL(ctx, "summary batch", b.String())
		if err != nil {
			return out, fmt.Errorf("failed to fetch summary batch: %w", err)
		}
		for _, raw := range data {
			var u batchedUser
			if err := json.Unmarshal(raw, &u); err != nil || u.Login == "" {
				continue
			}
			cc := u.ContributionsCollection
			out[u.Login] = &ContributionSummary{
				Login:           u.Login,
				Name:            u.Name,
				Company:         u.Company,
				TotalCommits:    cc.TotalCommitContributions,
				RestrictedCount: cc.RestrictedContributionsCount,
				TotalPRs:        cc.TotalPullRequestContributions,
				TotalIssues:     cc.TotalIssueContributions,
				TotalReviews:    cc.TotalPullRequestReviewContributions,
			}
		}
	}
	return out, nil
}

type batchedRepo struct {
	NameWithOwner   string `json:"nameWithOwner"`
	IsFork          bool   `json:"isFork"`
	IsPrivate       bool   `json:"isPrivate"`
	Description     string `json:"description"`
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
	Parent *struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"parent"`
}

// RepoInfoBatch fetches repository metadata for many repositories at once,
// fifty per call. Deleted repositories are absent from the result.
func (g *GitHubGateway) RepoInfoBatch(ctx context.Context, repos []string) (map[string]*RepoMeta, error) {
	out := make(map[string]*RepoMeta, len(repos))
	for start := 0; start < len(repos); start += repoInfoBatchSize {
		end := min(start+repoInfoBatchSize, len(repos))

		var b strings.Builder
		b.WriteString("query {\n")
		for i, repo := range repos[start:end] {
			owner, name := domain.SplitRepo(repo)
			fmt.Fprintf(&b,
				"r%d: repository(owner: %q, name: %q) { nameWithOwner isFork isPrivate "+
					"description primaryLanguage { name } parent { nameWithOwner } }\n",
				i, owner, name)
		}
		b.WriteString("}")

		data, err := g.rawGraphQL(ctx, "repo info batch", b.String())
		if err != nil {
			return out, fmt.Errorf("failed to fetch repo info batch: %w", err)
		}
		for _, raw := range data {
			var r batchedRepo
			if err := json.Unmarshal(raw, &r); err != nil || r.NameWithOwner == "" {
				continue
			}
			meta := &RepoMeta{
				NameWithOwner: r.NameWithOwner,
				IsFork:        r.IsFork,
				IsPrivate:     r.IsPrivate,
				Description:   r.Description,
			}
			if r.PrimaryLanguage != nil {
				meta.Language = r.PrimaryLanguage.Name
			}
			if r.Parent != nil {
				meta.Parent = r.Parent.NameWithOwner
			}
			out[r.NameWithOwner] = meta
		}
	}
	return out, nil
}
