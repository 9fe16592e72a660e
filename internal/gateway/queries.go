package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shurcooL/githubv4"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

// repoFields is the repository fragment shared by the GraphQL queries.
type repoFields struct {
	NameWithOwner   string
	IsFork          bool
	IsPrivate       bool
	Description     string
	PrimaryLanguage struct {
		Name string
	}
	Parent struct {
		NameWithOwner string
	}
}

func (r repoFields) meta() RepoMeta {
	return RepoMeta{
		NameWithOwner: r.NameWithOwner,
		IsFork:        r.IsFork,
		IsPrivate:     r.IsPrivate,
		Parent:        r.Parent.NameWithOwner,
		Language:      r.PrimaryLanguage.Name,
		Description:   r.Description,
	}
}

// contributionsQuery fetches one subject's contribution summary.
type contributionsQuery struct {
	User struct {
		Name                    string
		Company                 string
		ContributionsCollection struct {
			TotalCommitContributions            int
			RestrictedContributionsCount        int
			TotalPullRequestContributions       int
			TotalIssueContributions             int
			TotalPullRequestReviewContributions int
			CommitContributionsByRepository     []struct {
				Repository    repoFields
				Contributions struct {
					TotalCount int
				}
			} `graphql:"commitContributionsByRepository(maxRepositories: 100)"`
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	} `graphql:"user(login: $login)"`
}

// ContributionSummary fetches a subject's contribution totals and
// per-repository default-branch commit counts for the window.
func (g *GitHubGateway) ContributionSummary(ctx context.Context, login string, from, to time.Time) (*ContributionSummary, error) {
	from, to = clampWindow(from, to)
	variables := map[string]interface{}{
		"login": githubv4.String(login),
		"from":  githubv4.DateTime{Time: from},
		"to":    githubv4.DateTime{Time: to},
	}

	var q contributionsQuery
	err := g.do(ctx, "contribution summary", func() error {
		return g.graphqlClient.Query(ctx, &q, variables)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contribution summary for %s: %w", login, err)
	}

	cc := q.User.ContributionsCollection
	summary := &ContributionSummary{
		Login:           login,
		Name:            q.User.Name,
		Company:         q.User.Company,
		TotalCommits:    cc.TotalCommitContributions,
		RestrictedCount: cc.RestrictedContributionsCount,
		TotalPRs:        cc.TotalPullRequestContributions,
		TotalIssues:     cc.TotalIssueContributions,
		TotalReviews:    cc.TotalPullRequestReviewContributions,
	}
	for _, byRepo := range cc.CommitContributionsByRepository {
		summary.CommitsByRepo = append(summary.CommitsByRepo, RepoContribution{
			Repo:    byRepo.Repository.meta(),
			Commits: byRepo.Contributions.TotalCount,
		})
	}
	return summary, nil
}

// createdPRsQuery pages through the subject's created pull requests.
type createdPRsQuery struct {
	Search struct {
		IssueCount int
		PageInfo   struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Nodes []struct {
			Typename    string `graphql:"__typename"`
			PullRequest struct {
				Title      string
				URL        string
				State      string
				Additions  int
				Deletions  int
				Author     struct{ Login string }
				Repository struct{ NameWithOwner string }
				Reviews    struct{ TotalCount int }
			} `graphql:"... on PullRequest"`
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 100, after: $cursor)"`
}

// The search index also caps issue results at 1,000 per query.
const prSearchCap = 1000

// PullRequestsCreated lists the pull requests a subject opened in the
// window, deduplicated by URL.
func (g *GitHubGateway) PullRequestsCreated(ctx context.Context, login string, from, to time.Time) ([]domain.PullRequest, error) {
	query := fmt.Sprintf("author:%s is:pr created:%s..%s", login, from.Format(dateLayout), to.Format(dateLayout))
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}

	seen := make(map[string]bool)
	var prs []domain.PullRequest
	for {
		var q createdPRsQuery
		err := g.do(ctx, "created PRs", func() error {
			return g.graphqlClient.Query(ctx, &q, variables)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search created PRs for %s: %w", login, err)
		}
		for _, node := range q.Search.Nodes {
			pr := node.PullRequest
			if node.Typename != "PullRequest" || pr.URL == "" || seen[pr.URL] {
				continue
			}
			seen[pr.URL] = true
			prs = append(prs, domain.PullRequest{
				URL:         pr.URL,
				Title:       pr.Title,
				Repo:        pr.Repository.NameWithOwner,
				Author:      pr.Author.Login,
				State:       pr.State,
				Additions:   pr.Additions,
				Deletions:   pr.Deletions,
				ReviewCount: pr.Reviews.TotalCount,
			})
		}
		if !q.Search.PageInfo.HasNextPage || len(prs) >= prSearchCap {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Search.PageInfo.EndCursor)
	}
	return prs, nil
}

// reviewContributionsQuery pages through the authoritative
// "reviews given within range" source. A generic search by update time
// would measure the wrong timestamp.
type reviewContributionsQuery struct {
	User struct {
		ContributionsCollection struct {
			PullRequestReviewContributions struct {
				TotalCount int
				PageInfo   struct {
					HasNextPage bool
					EndCursor   githubv4.String
				}
				Nodes []struct {
					PullRequest struct {
						Title      string
						URL        string
						State      string
						Additions  int
						Deletions  int
						Author     struct{ Login string }
						Repository struct{ NameWithOwner string }
					}
				}
			} `graphql:"pullRequestReviewContributions(first: 100, after: $cursor)"`
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	} `graphql:"user(login: $login)"`
}

// PullRequestsReviewed lists the pull requests a subject reviewed in the
// window, deduplicated by URL, with bot-authored PRs removed.
func (g *GitHubGateway) PullRequestsReviewed(ctx context.Context, login string, from, to time.Time) ([]domain.PullRequest, error) {
	from, to = clampWindow(from, to)
	variables := map[string]interface{}{
		"login":  githubv4.String(login),
		"from":   githubv4.DateTime{Time: from},
		"to":     githubv4.DateTime{Time: to},
		"cursor": (*githubv4.String)(nil),
	}

	seen := make(map[string]bool)
	var prs []domain.PullRequest
	for {
		var q reviewContributionsQuery
		err := g.do(ctx, "reviewed PRs", func() error {
			return g.graphqlClient.Query(ctx, &q, variables)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reviewed PRs for %s: %w", login, err)
		}
		contributions := q.User.ContributionsCollection.PullRequestReviewContributions
		for _, node := range contributions.Nodes {
			pr := node.PullRequest
			if pr.URL == "" || seen[pr.URL] || domain.IsBot(pr.Author.Login) {
				continue
			}
			seen[pr.URL] = true
			prs = append(prs, domain.PullRequest{
				URL:       pr.URL,
				Title:     pr.Title,
				Repo:      pr.Repository.NameWithOwner,
				Author:    pr.Author.Login,
				State:     pr.State,
				Additions: pr.Additions,
				Deletions: pr.Deletions,
			})
		}
		if !contributions.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(contributions.PageInfo.EndCursor)
	}
	return prs, nil
}

// forksQuery pages through a subject's forked repositories.
type forksQuery struct {
	User struct {
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				NameWithOwner   string
				Description     string
				PrimaryLanguage struct{ Name string }
				Parent          struct{ NameWithOwner string }
			}
		} `graphql:"repositories(isFork: true, first: 100, after: $cursor)"`
	} `graphql:"user(login: $login)"`
}

// UserForks enumerates the forks a subject owns, with parent linkage.
func (g *GitHubGateway) UserForks(ctx context.Context, login string) ([]ForkInfo, error) {
	variables := map[string]interface{}{
		"login":  githubv4.String(login),
		"cursor": (*githubv4.String)(nil),
	}

	var forks []ForkInfo
	for {
		var q forksQuery
		err := g.do(ctx, "user forks", func() error {
			return g.graphqlClient.Query(ctx, &q, variables)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list forks of %s: %w", login, err)
		}
		for _, node := range q.User.Repositories.Nodes {
			forks = append(forks, ForkInfo{
				NameWithOwner: node.NameWithOwner,
				Parent:        node.Parent.NameWithOwner,
				Language:      node.PrimaryLanguage.Name,
				Description:   node.Description,
			})
		}
		if !q.User.Repositories.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.User.Repositories.PageInfo.EndCursor)
	}
	return forks, nil
}
