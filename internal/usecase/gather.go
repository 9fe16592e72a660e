// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/classify"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/pool"
)

// Branch names that belong to a person rather than to release machinery.
// Forks with at most smallForkBranches branches skip the heuristic and
// scan everything; main and master are scanned regardless.
var userBranchPrefixes = []string{"eng/", "dev/", "feature/", "feat/", "fix/", "bugfix/", "wip/"}
var userBranchNames = map[string]bool{"develop": true, "dev": true}

const smallForkBranches = 20

// Gatherer collects one subject's complete activity for a window.
// It orchestrates the fetching and combining of data.
type Gatherer struct {
	fetcher    gateway.Fetcher
	classifier *classify.Classifier
	logger     *log.Logger

	mu        sync.Mutex
	langCache map[string]string
}

// NewGatherer creates a new Gatherer instance.
func NewGatherer(fetcher gateway.Fetcher, classifier *classify.Classifier, logger *log.Logger) *Gatherer {
	return &Gatherer{
		fetcher:    fetcher,
		classifier: classifier,
		logger:     logger,
		langCache:  make(map[string]string),
	}
}

// GatherMemberActivity performs the full per-subject gathering: the
// contribution summary, commit discovery across the search index and
// fork branches, per-commit stats, and both pull request pools.
func (g *Gatherer) GatherMemberActivity(ctx context.Context, login string, from, to time.Time) (*domain.MemberActivity, error) {
	g.logger.Printf("Usecase: gathering activity for %s", login)

	var summary *gateway.ContributionSummary
	var searched []gateway.SearchCommit
	var forks []gateway.ForkInfo
	var created, reviewed []domain.PullRequest

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		summary, err = g.fetcher.ContributionSummary(egCtx, login, from, to)
		return err
	})
	eg.Go(func() error {
		var err error
		searched, err = g.fetcher.SearchCommits(egCtx, login, from, to)
		return ignoreNotFound(err)
	})
	eg.Go(func() error {
		var err error
		forks, err = g.fetcher.UserForks(egCtx, login)
		return ignoreNotFound(err)
	})
	eg.Go(func() error {
		var err error
		created, err = g.fetcher.PullRequestsCreated(egCtx, login, from, to)
		return ignoreNotFound(err)
	})
	eg.Go(func() error {
		var err error
		reviewed, err = g.fetcher.PullRequestsReviewed(egCtx, login, from, to)
		return ignoreNotFound(err)
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to gather activity for %s: %w", login, err)
	}

	scanned, err := g.scanForkBranches(ctx, login, forks, from, to)
	if err != nil {
		return nil, err
	}

	// The same commit may arrive from the search index and from a branch
	// scan; the SHA collapses them. Search results come first so that a
	// default-branch sighting wins over a branch one.
	bySHA := make(map[string]*domain.Commit)
	order := make([]string, 0, len(searched)+len(scanned))
	for _, c := range searched {
		if _, ok := bySHA[c.SHA]; ok || c.SHA == "" {
			continue
		}
		bySHA[c.SHA] = &domain.Commit{
			SHA:        c.SHA,
			Repo:       c.Repo,
			OriginRepo: c.Repo,
			Author:     login,
			AuthoredAt: c.AuthoredAt,
		}
		order = append(order, c.SHA)
	}
	for _, sc := range scanned {
		if _, ok := bySHA[sc.commit.SHA]; ok || sc.commit.SHA == "" {
			continue
		}
		bySHA[sc.commit.SHA] = &domain.Commit{
			SHA:        sc.commit.SHA,
			Repo:       sc.commit.Repo,
			OriginRepo: sc.commit.Repo,
			Author:     login,
			AuthoredAt: sc.commit.AuthoredAt,
			Branch:     sc.branch,
		}
		order = append(order, sc.commit.SHA)
	}

	metas, err := g.repoMetadata(ctx, bySHA, forks)
	if err != nil {
		return nil, err
	}

	// Drop mirror noise before attribution, then credit fork commits to
	// the upstream. The fork identity survives as the stat-fetch address.
	commits := make([]*domain.Commit, 0, len(order))
	for _, sha := range order {
		c := bySHA[sha]
		meta := metas[strings.ToLower(c.OriginRepo)]
		facts := classify.RepoFacts{}
		if meta != nil {
			facts = classify.RepoFacts{
				Private:     meta.IsPrivate,
				Parent:      meta.Parent,
				Description: meta.Description,
			}
		}
		if g.classifier.ShouldSkip(c.OriginRepo, login, facts) {
			continue
		}
		if meta != nil && meta.IsFork && meta.Parent != "" {
			c.Repo = meta.Parent
		}
		commits = append(commits, c)
	}

	if err := g.fetchStats(ctx, commits); err != nil {
		return nil, err
	}

	activity := &domain.MemberActivity{
		Login:           login,
		RealName:        summary.Name,
		Company:         summary.Company,
		TotalCommits:    summary.TotalCommits,
		TotalCommitsAll: len(commits),
		RestrictedCount: summary.RestrictedCount,
		TotalPRs:        summary.TotalPRs,
		TotalReviews:    summary.TotalReviews,
		TotalIssues:     summary.TotalIssues,
		Repos:           make(map[string]*domain.RepoActivity),
		PRsCreated:      created,
		PRsReviewed:     reviewed,
	}
	for _, c := range commits {
		repo := ensureRepo(activity.Repos, c.Repo)
		repo.Commits++
		repo.Additions += c.Additions
		repo.Deletions += c.Deletions
		activity.TotalAdditions += c.Additions
		activity.TotalDeletions += c.Deletions
		if meta := metas[strings.ToLower(c.OriginRepo)]; meta != nil {
			if meta.IsFork && meta.Parent != "" {
				repo.IsFork = true
				repo.Parent = meta.Parent
			}
			if repo.Description == "" {
				repo.Description = meta.Description
			}
		}
	}
	for _, pr := range created {
		ensureRepo(activity.Repos, pr.Repo).PRs++
	}

	g.finishRepos(ctx, activity, metas)
	return activity, nil
}

// GatherMemberActivityLight fetches only the summary and the PR pools.
// Org runs use it to keep the per-member cost flat: no commit search, no
// fork scan, no per-commit stats.
func (g *Gatherer) GatherMemberActivityLight(ctx context.Context, login string, from, to time.Time) (*domain.MemberActivity, error) {
	g.logger.Printf("Usecase: gathering activity for %s (light)", login)

	var summary *gateway.ContributionSummary
	var created, reviewed []domain.PullRequest

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		summary, err = g.fetcher.ContributionSummary(egCtx, login, from, to)
		return err
	})
	eg.Go(func() error {
		var err error
		created, err = g.fetcher.PullRequestsCreated(egCtx, login, from, to)
		return ignoreNotFound(err)
	})
	eg.Go(func() error {
		var err error
		reviewed, err = g.fetcher.PullRequestsReviewed(egCtx, login, from, to)
		return ignoreNotFound(err)
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to gather activity for %s: %w", login, err)
	}

	activity := &domain.MemberActivity{
		Login:           login,
		RealName:        summary.Name,
		Company:         summary.Company,
		TotalCommits:    summary.TotalCommits,
		TotalCommitsAll: summary.TotalCommits,
		RestrictedCount: summary.RestrictedCount,
		TotalPRs:        summary.TotalPRs,
		TotalReviews:    summary.TotalReviews,
		TotalIssues:     summary.TotalIssues,
		Repos:           make(map[string]*domain.RepoActivity),
		PRsCreated:      created,
		PRsReviewed:     reviewed,
		LightMode:       true,
	}

	metas := make(map[string]*gateway.RepoMeta, len(summary.CommitsByRepo))
	for _, rc := range summary.CommitsByRepo {
		meta := rc.Repo
		metas[strings.ToLower(meta.NameWithOwner)] = &meta
		facts := classify.RepoFacts{
			Private:     meta.IsPrivate,
			Parent:      meta.Parent,
			Description: meta.Description,
		}
		if g.classifier.ShouldSkip(meta.NameWithOwner, login, facts) {
			continue
		}
		name := meta.NameWithOwner
		if meta.IsFork && meta.Parent != "" {
			name = meta.Parent
		}
		repo := ensureRepo(activity.Repos, name)
		repo.Commits += rc.Commits
		if meta.IsFork && meta.Parent != "" {
			repo.IsFork = true
			repo.Parent = meta.Parent
		}
		if repo.Description == "" {
			repo.Description = meta.Description
		}
	}
	for _, pr := range created {
		ensureRepo(activity.Repos, pr.Repo).PRs++
	}

	g.finishRepos(ctx, activity, metas)
	return activity, nil
}

type scannedCommit struct {
	commit gateway.SearchCommit
	branch string
}

// scanForkBranches walks the subject's forks of tracked upstreams and
// lists their commits branch by branch. The search index misses work
// that only exists on a fork branch; this is the recovery path.
func (g *Gatherer) scanForkBranches(ctx context.Context, login string, forks []gateway.ForkInfo, from, to time.Time) ([]scannedCommit, error) {
	var scanned []scannedCommit
	for _, fork := range forks {
		if fork.Parent == "" || !g.classifier.Interesting(fork.Parent) {
			continue
		}
		branches, err := g.fetcher.ListBranches(ctx, fork.NameWithOwner)
		if err != nil {
			if gateway.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		for _, branch := range selectBranches(branches, login) {
			commits, err := g.fetcher.BranchCommits(ctx, fork.NameWithOwner, branch, login, from, to)
			if err != nil {
				if gateway.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			for _, c := range commits {
				scanned = append(scanned, scannedCommit{commit: c, branch: branch})
			}
		}
	}
	return scanned, nil
}

// selectBranches picks the branches worth scanning. Small forks are
// scanned whole; large ones only on the default branch and anything that
// looks person-made.
func selectBranches(branches []string, login string) []string {
	if len(branches) <= smallForkBranches {
		return branches
	}
	lowerLogin := strings.ToLower(login)
	var selected []string
	for _, b := range branches {
		lb := strings.ToLower(b)
		switch {
		case lb == "main" || lb == "master":
		case userBranchNames[lb]:
		case strings.Contains(lb, lowerLogin):
		case hasUserPrefix(lb):
		default:
			continue
		}
		selected = append(selected, b)
	}
	return selected
}

func hasUserPrefix(branch string) bool {
	for _, p := range userBranchPrefixes {
		if strings.HasPrefix(branch, p) {
			return true
		}
	}
	return false
}

// repoMetadata resolves fork linkage, privacy and descriptions for every
// repository a commit was discovered in, preferring the already-fetched
// fork listing over extra API calls.
func (g *Gatherer) repoMetadata(ctx context.Context, bySHA map[string]*domain.Commit, forks []gateway.ForkInfo) (map[string]*gateway.RepoMeta, error) {
	metas := make(map[string]*gateway.RepoMeta)
	for _, f := range forks {
		metas[strings.ToLower(f.NameWithOwner)] = &gateway.RepoMeta{
			NameWithOwner: f.NameWithOwner,
			IsFork:        true,
			Parent:        f.Parent,
			Language:      f.Language,
			Description:   f.Description,
		}
	}

	var missing []string
	seen := make(map[string]bool)
	for _, c := range bySHA {
		key := strings.ToLower(c.OriginRepo)
		if metas[key] != nil || seen[key] {
			continue
		}
		seen[key] = true
		missing = append(missing, c.OriginRepo)
	}
	if len(missing) == 0 {
		return metas, nil
	}
	sort.Strings(missing)

	fetched, err := g.fetcher.RepoInfoBatch(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo metadata: %w", err)
	}
	for name, meta := range fetched {
		metas[strings.ToLower(name)] = meta
	}
	return metas, nil
}

// fetchStats enriches commits with line counts through the bounded pool.
// A commit whose stat fetch fails stays in the result at zero lines;
// losing the commit over a missing diff would understate the repo.
func (g *Gatherer) fetchStats(ctx context.Context, commits []*domain.Commit) error {
	if len(commits) == 0 {
		return nil
	}
	type stat struct{ additions, deletions int }
	tasks := make([]func(context.Context) (stat, error), len(commits))
	for i, c := range commits {
		c := c
		tasks[i] = func(ctx context.Context) (stat, error) {
			additions, deletions, err := g.fetcher.CommitStats(ctx, c.OriginRepo, c.SHA)
			return stat{additions, deletions}, err
		}
	}

	poolCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limitErr error
	for result := range pool.Run(poolCtx, pool.StatWorkers, tasks) {
		if result.Err != nil {
			if gateway.IsRateLimited(result.Err) {
				if limitErr == nil {
					limitErr = result.Err
					cancel()
				}
				continue
			}
			g.logger.Printf("Usecase: stats unavailable for %s@%s: %v",
				commits[result.Index].Repo, commits[result.Index].SHA, result.Err)
			continue
		}
		c := commits[result.Index]
		c.Additions = result.Value.additions
		c.Deletions = result.Value.deletions
		c.HasStats = true
	}
	if limitErr != nil {
		return limitErr
	}
	return ctx.Err()
}

// finishRepos fills in category, language and the category index once the
// repo set is final.
func (g *Gatherer) finishRepos(ctx context.Context, activity *domain.MemberActivity, metas map[string]*gateway.RepoMeta) {
	activity.ReposByCategory = make(map[string][]string)
	for name, repo := range activity.Repos {
		repo.Category = g.classifier.Categorize(ctx, name)
		primary := ""
		if meta := metas[strings.ToLower(name)]; meta != nil {
			primary = meta.Language
		} else if meta := metas[strings.ToLower(repo.Parent)]; repo.Parent != "" && meta != nil {
			primary = meta.Language
		}
		if repo.Commits > 0 {
			repo.Language = g.effectiveLanguage(ctx, name, primary)
		} else {
			repo.Language = primary
		}
		activity.ReposByCategory[repo.Category] = append(activity.ReposByCategory[repo.Category], name)
	}
	for _, names := range activity.ReposByCategory {
		sort.Strings(names)
	}
	categories := make([]string, 0, len(activity.ReposByCategory))
	for cat := range activity.ReposByCategory {
		categories = append(categories, cat)
	}
	activity.Categories = g.classifier.SortCategories(categories)
}

// Engines report their scripting or build glue as the primary language
// even when most of the tree is C++. Past this share of bytes, C++ is
// the honest answer.
const cppShareThreshold = 0.10

// effectiveLanguage resolves a repo's reported language, promoting C++
// when it holds at least a tenth of the bytes. Lookups are memoized for
// the lifetime of the Gatherer since repos repeat across members.
func (g *Gatherer) effectiveLanguage(ctx context.Context, repo, primary string) string {
	if primary == "C++" {
		return primary
	}
	key := strings.ToLower(repo)
	g.mu.Lock()
	if lang, ok := g.langCache[key]; ok {
		g.mu.Unlock()
		return lang
	}
	g.mu.Unlock()

	lang := primary
	langs, err := g.fetcher.RepoLanguages(ctx, repo)
	if err != nil {
		g.logger.Printf("Usecase: language lookup for %s failed: %v", repo, err)
	} else if len(langs) > 0 {
		total := 0
		for _, n := range langs {
			total += n
		}
		if total > 0 && float64(langs["C++"])/float64(total) >= cppShareThreshold {
			lang = "C++"
		}
	}

	g.mu.Lock()
	g.langCache[key] = lang
	g.mu.Unlock()
	return lang
}

func ensureRepo(repos map[string]*domain.RepoActivity, name string) *domain.RepoActivity {
	if _, ok := repos[name]; !ok {
		repos[name] = &domain.RepoActivity{Name: name}
	}
	return repos[name]
}

func ignoreNotFound(err error) error {
	if gateway.IsNotFound(err) {
		return nil
	}
	return err
}
