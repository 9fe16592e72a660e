package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

const (
	// The search index never returns more than 1,000 results per query;
	// paging past that is wasted quota.
	commitSearchCap = 1000

	perPage = 100
)

const dateLayout = "2006-01-02"

// SearchCommits discovers commits via the full-text author search index.
// The index hard-caps results at 1,000 per query; the cap is accepted, not
// worked around.
func (g *GitHubGateway) SearchCommits(ctx context.Context, login string, from, to time.Time) ([]SearchCommit, error) {
	query := fmt.Sprintf("author:%s author-date:%s..%s", login, from.Format(dateLayout), to.Format(dateLayout))
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	var commits []SearchCommit
	for {
		var result *github.CommitsSearchResult
		var resp *github.Response
		err := g.do(ctx, "search commits", func() error {
			var err error
			result, resp, err = g.restClient.Search.Commits(ctx, query, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search commits: %w", err)
		}
		for _, c := range result.Commits {
			commits = append(commits, SearchCommit{
				SHA:        c.GetSHA(),
				Repo:       c.GetRepository().GetFullName(),
				AuthoredAt: c.GetCommit().GetAuthor().GetDate().Time,
			})
		}
		if resp.NextPage == 0 || len(commits) >= commitSearchCap {
			break
		}
		opts.Page = resp.NextPage
	}
	if len(commits) > commitSearchCap {
		commits = commits[:commitSearchCap]
	}
	return commits, nil
}

// CommitStats fetches line additions and deletions for a single commit.
func (g *GitHubGateway) CommitStats(ctx context.Context, repo, sha string) (int, int, error) {
	owner, name := domain.SplitRepo(repo)
	var rc *github.RepositoryCommit
	err := g.do(ctx, "commit stats", func() error {
		var err error
		rc, _, err = g.restClient.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch stats for %s@%s: %w", repo, sha, err)
	}
	return rc.GetStats().GetAdditions(), rc.GetStats().GetDeletions(), nil
}

// ListBranches lists all branch names of a repository.
func (g *GitHubGateway) ListBranches(ctx context.Context, repo string) ([]string, error) {
	owner, name := domain.SplitRepo(repo)
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	var branches []string
	for {
		var page []*github.Branch
		var resp *github.Response
		err := g.do(ctx, "list branches", func() error {
			var err error
			page, resp, err = g.restClient.Repositories.ListBranches(ctx, owner, name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s: %w", repo, err)
		}
		for _, b := range page {
			branches = append(branches, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return branches, nil
}

// BranchCommits lists commits by one author on one branch within a window.
func (g *GitHubGateway) BranchCommits(ctx context.Context, repo, branch, author string, from, to time.Time) ([]SearchCommit, error) {
	owner, name := domain.SplitRepo(repo)
	opts := &github.CommitsListOptions{
		SHA:         branch,
		Author:      author,
		Since:       from,
		Until:       to,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var commits []SearchCommit
	for {
		var page []*github.RepositoryCommit
		var resp *github.Response
		err := g.do(ctx, "branch commits", func() error {
			var err error
			page, resp, err = g.restClient.Repositories.ListCommits(ctx, owner, name, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list commits on %s@%s: %w", repo, branch, err)
		}
		for _, c := range page {
			commits = append(commits, SearchCommit{
				SHA:        c.GetSHA(),
				Repo:       repo,
				AuthoredAt: c.GetCommit().GetAuthor().GetDate().Time,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return commits, nil
}

// RepoTopics returns the topic tags of a repository.
func (g *GitHubGateway) RepoTopics(ctx context.Context, repo string) ([]string, error) {
	owner, name := domain.SplitRepo(repo)
	var topics []string
	err := g.do(ctx, "repo topics", func() error {
		var err error
		topics, _, err = g.restClient.Repositories.ListAllTopics(ctx, owner, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch topics of %s: %w", repo, err)
	}
	return topics, nil
}

// RepoLanguages returns the byte counts per language of a repository.
func (g *GitHubGateway) RepoLanguages(ctx context.Context, repo string) (map[string]int, error) {
	owner, name := domain.SplitRepo(repo)
	var langs map[string]int
	err := g.do(ctx, "repo languages", func() error {
		var err error
		langs, _, err = g.restClient.Repositories.ListLanguages(ctx, owner, name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch languages of %s: %w", repo, err)
	}
	return langs, nil
}

// OrgInfo fetches the display metadata of an organization.
func (g *GitHubGateway) OrgInfo(ctx context.Context, org string) (*OrgInfo, error) {
	var o *github.Organization
	err := g.do(ctx, "org info", func() error {
		var err error
		o, _, err = g.restClient.Organizations.Get(ctx, org)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch org %s: %w", org, err)
	}
	return &OrgInfo{
		Login:       o.GetLogin(),
		Name:        o.GetName(),
		Description: o.GetDescription(),
	}, nil
}

// OrgMembers lists the public member logins of an organization.
func (g *GitHubGateway) OrgMembers(ctx context.Context, org string) ([]string, error) {
	opts := &github.ListMembersOptions{
		PublicOnly:  true,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var members []string
	for {
		var page []*github.User
		var resp *github.Response
		err := g.do(ctx, "org members", func() error {
			var err error
			page, resp, err = g.restClient.Organizations.ListMembers(ctx, org, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", org, err)
		}
		for _, u := range page {
			members = append(members, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return members, nil
}

// TeamMembers lists the member logins of one team within an organization.
func (g *GitHubGateway) TeamMembers(ctx context.Context, org, team string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	var members []string
	for {
		var page []*github.User
		var resp *github.Response
		err := g.do(ctx, "team members", func() error {
			var err error
			page, resp, err = g.restClient.Teams.ListTeamMembersBySlug(ctx, org, team, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s/%s: %w", org, team, err)
		}
		for _, u := range page {
			members = append(members, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return members, nil
}

// Quota reports the GraphQL pool, the pool the expensive queries draw
// from. The healthier core pool would mislead the estimate.
func (g *GitHubGateway) Quota(ctx context.Context) (*Quota, error) {
	var limits *github.RateLimits
	err := g.do(ctx, "rate limit", func() error {
		var err error
		limits, _, err = g.restClient.RateLimit.Get(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query rate limit: %w", err)
	}
	gql := limits.GetGraphQL()
	if gql == nil {
		return nil, fmt.Errorf("rate limit response missing graphql pool")
	}
	return &Quota{
		Limit:     gql.Limit,
		Remaining: gql.Remaining,
		ResetAt:   gql.Reset.Time,
	}, nil
}
