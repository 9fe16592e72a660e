package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/pool"
	"github.com/gh-tui-tools/gh-activity-chronicle/internal/ratelimit"
)

// UnaffiliatedCompany groups members whose profile names no employer.
const UnaffiliatedCompany = "Unaffiliated"

// OrgOptions configures one organization run.
type OrgOptions struct {
	Org  string
	Team string // optional team slug restricting membership
	From time.Time
	To   time.Time

	// Full switches every member to the full gathering path; the default
	// is the light one, which skips commit search, fork scans and stats.
	Full bool

	// Confirm is consulted when the estimated cost crosses the warning
	// thresholds. nil means proceed without asking.
	Confirm func(message string) bool
}

// OrgRunner drives the whole organization pipeline: quota gate, member
// discovery, activity scan, bounded per-member gathering and the final
// fold.
type OrgRunner struct {
	fetcher  gateway.Fetcher
	gatherer *Gatherer
	scanner  *Scanner
	logger   *log.Logger
}

// NewOrgRunner creates a new OrgRunner instance.
func NewOrgRunner(fetcher gateway.Fetcher, gatherer *Gatherer, scanner *Scanner, logger *log.Logger) *OrgRunner {
	return &OrgRunner{
		fetcher:  fetcher,
		gatherer: gatherer,
		scanner:  scanner,
		logger:   logger,
	}
}

// Run executes the pipeline and returns the folded result.
func (r *OrgRunner) Run(ctx context.Context, opts OrgOptions) (*domain.OrgActivity, error) {
	var budget ratelimit.Budget
	if err := budget.Refresh(ctx, r.fetcher); err != nil {
		return nil, err
	}
	if budget.ShouldAbort() {
		return nil, fmt.Errorf("only %d API calls remaining, too few to start; quota resets at %s",
			budget.Remaining, budget.ResetAt.Format(time.RFC3339))
	}

	info, err := r.fetcher.OrgInfo(ctx, opts.Org)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization %s: %w", opts.Org, err)
	}
	opts.Org = info.Login

	members, err := r.memberLogins(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("no members found for %s", opts.Org)
	}

	days := int(opts.To.Sub(opts.From).Hours()/24) + 1
	estimate := ratelimit.Estimate(len(members), days, false)
	if warn, message := budget.ShouldWarn(estimate); warn {
		r.logger.Printf("Usecase: %s", message)
		if opts.Confirm != nil && !opts.Confirm(message) {
			return nil, fmt.Errorf("aborted: %s", message)
		}
	}

	active, err := r.scanner.Scan(ctx, members, opts.From, opts.To)
	if err != nil {
		return nil, err
	}

	activities, err := r.gatherMembers(ctx, active, opts)
	if err != nil {
		return nil, err
	}

	result := AggregateOrg(opts.Org, opts.Team, activities)
	result.Members = members
	return result, nil
}

func (r *OrgRunner) memberLogins(ctx context.Context, opts OrgOptions) ([]string, error) {
	var logins []string
	var err error
	if opts.Team != "" {
		logins, err = r.fetcher.TeamMembers(ctx, opts.Org, opts.Team)
	} else {
		logins, err = r.fetcher.OrgMembers(ctx, opts.Org)
	}
	if err != nil {
		return nil, err
	}
	members := logins[:0]
	for _, login := range logins {
		if domain.IsBot(login) {
			continue
		}
		members = append(members, login)
	}
	return members, nil
}

// gatherMembers runs the per-member gathering through the bounded pool.
// A rate-limit error cancels the run: every later task would hit the
// same wall. Any other failure marks just that member as failed.
func (r *OrgRunner) gatherMembers(ctx context.Context, logins []string, opts OrgOptions) ([]*domain.MemberActivity, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make([]func(context.Context) (*domain.MemberActivity, error), len(logins))
	for i, login := range logins {
		login := login
		tasks[i] = func(ctx context.Context) (*domain.MemberActivity, error) {
			if opts.Full {
				return r.gatherer.GatherMemberActivity(ctx, login, opts.From, opts.To)
			}
			return r.gatherer.GatherMemberActivityLight(ctx, login, opts.From, opts.To)
		}
	}

	activities := make([]*domain.MemberActivity, 0, len(logins))
	var limitErr error
	for result := range pool.Run(ctx, pool.MemberWorkers, tasks) {
		login := logins[result.Index]
		switch {
		case result.Err == nil:
			activities = append(activities, result.Value)
		case gateway.IsRateLimited(result.Err):
			if limitErr == nil {
				limitErr = result.Err
				cancel()
			}
		default:
			r.logger.Printf("Usecase: gathering for %s failed: %v", login, result.Err)
			activities = append(activities, &domain.MemberActivity{Login: login, Failed: true})
		}
	}
	if limitErr != nil {
		if reset, ok := gateway.ResetTime(limitErr); ok {
			return nil, fmt.Errorf("rate limit exhausted, resets at %s: %w", reset.Format(time.RFC3339), limitErr)
		}
		return nil, fmt.Errorf("rate limit exhausted: %w", limitErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(activities, func(i, j int) bool { return activities[i].Login < activities[j].Login })
	return activities, nil
}

// AggregateOrg folds member results into one organization view. It runs
// only once every member task has joined; nothing here is concurrent.
func AggregateOrg(org, team string, members []*domain.MemberActivity) *domain.OrgActivity {
	result := &domain.OrgActivity{
		Org:               org,
		Team:              team,
		Repos:             make(map[string]*domain.RepoActivity),
		RepoMemberCommits: make(map[string]map[string]int),
		LangMemberCommits: make(map[string]map[string]int),
		MemberRealNames:   make(map[string]string),
		MemberCompanies:   make(map[string]string),
		CompanyGroups:     make(map[string][]string),
	}

	seenCreated := make(map[string]bool)
	seenReviewed := make(map[string]bool)
	companies := newCompanyIndex()
	var perMemberCommits []float64

	for _, m := range members {
		if m.Failed {
			continue
		}
		result.LightMode = result.LightMode || m.LightMode

		result.TotalCommits += m.TotalCommits
		result.TotalCommitsAll += m.TotalCommitsAll
		result.TotalPRs += m.TotalPRs
		result.TotalReviews += m.TotalReviews
		result.TotalIssues += m.TotalIssues
		result.TotalAdditions += m.TotalAdditions
		result.TotalDeletions += m.TotalDeletions
		perMemberCommits = append(perMemberCommits, float64(m.TotalCommits))

		if m.RealName != "" {
			result.MemberRealNames[m.Login] = m.RealName
		}
		companies.add(m.Company, m.Login)

		for name, repo := range m.Repos {
			agg := ensureRepo(result.Repos, name)
			agg.Commits += repo.Commits
			agg.PRs += repo.PRs
			agg.Additions += repo.Additions
			agg.Deletions += repo.Deletions
			if agg.Category == "" {
				agg.Category = repo.Category
			}
			if agg.Language == "" {
				agg.Language = repo.Language
			}
			if agg.Description == "" {
				agg.Description = repo.Description
			}

			if repo.Commits > 0 {
				if result.RepoMemberCommits[name] == nil {
					result.RepoMemberCommits[name] = make(map[string]int)
				}
				result.RepoMemberCommits[name][m.Login] += repo.Commits

				if repo.Language != "" {
					if result.LangMemberCommits[repo.Language] == nil {
						result.LangMemberCommits[repo.Language] = make(map[string]int)
					}
					result.LangMemberCommits[repo.Language][m.Login] += repo.Commits
				}
			}
		}

		for _, pr := range m.PRsCreated {
			if seenCreated[pr.URL] {
				continue
			}
			seenCreated[pr.URL] = true
			result.PRsCreated = append(result.PRsCreated, pr)
		}
		for _, pr := range m.PRsReviewed {
			if seenReviewed[pr.URL] {
				continue
			}
			seenReviewed[pr.URL] = true
			result.PRsReviewed = append(result.PRsReviewed, pr)
		}
	}

	result.CompanyGroups = companies.groups()
	result.MemberCompanies = companies.perMember()
	if len(perMemberCommits) > 0 {
		if median, err := stats.Median(perMemberCommits); err == nil {
			result.MedianMemberCommits = median
		}
	}
	return result
}

var companyMentionPattern = regexp.MustCompile(`@[A-Za-z0-9][A-Za-z0-9-]*`)

// companyIndex groups members by employer. Profiles spell the same
// employer a dozen ways; the lowercased name is the grouping key, and an
// @-mention is preferred as the display form when any member used one.
type companyIndex struct {
	display map[string]string
	members map[string][]string
}

func newCompanyIndex() *companyIndex {
	return &companyIndex{
		display: make(map[string]string),
		members: make(map[string][]string),
	}
}

// add records one member's employer under the shared grouping key.
func (ci *companyIndex) add(raw, login string) {
	display, key := normalizeCompany(raw)
	if current, ok := ci.display[key]; !ok || (!strings.HasPrefix(current, "@") && strings.HasPrefix(display, "@")) {
		ci.display[key] = display
	}
	ci.members[key] = append(ci.members[key], login)
}

// perMember maps each login to its group's final display form.
func (ci *companyIndex) perMember() map[string]string {
	out := make(map[string]string)
	for key, logins := range ci.members {
		for _, login := range logins {
			out[login] = ci.display[key]
		}
	}
	return out
}

func (ci *companyIndex) groups() map[string][]string {
	groups := make(map[string][]string, len(ci.members))
	for key, logins := range ci.members {
		sort.Strings(logins)
		groups[ci.display[key]] = logins
	}
	return groups
}

// normalizeCompany reduces a free-form employer string to a display form
// and a grouping key. "@W3C", "w3c" and "W3C " all share a key.
func normalizeCompany(raw string) (display, key string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return UnaffiliatedCompany, strings.ToLower(UnaffiliatedCompany)
	}
	if mention := companyMentionPattern.FindString(trimmed); mention != "" {
		return mention, strings.ToLower(strings.TrimPrefix(mention, "@"))
	}
	trimmed = strings.TrimSuffix(trimmed, ".")
	return titleCase(trimmed), strings.ToLower(trimmed)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
			r[0] = r[0] - 'a' + 'A'
			words[i] = string(r)
		}
	}
	return strings.Join(words, " ")
}
