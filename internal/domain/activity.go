// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strings"
	"time"
)

// Commit is a single commit discovered for a subject. Commits are keyed by
// SHA: the same commit reached via the search index and via a branch scan
// must collapse to one record.
type Commit struct {
	SHA        string    `json:"sha"`
	Repo       string    `json:"repo"`        // credited repository (parent for fork commits)
	OriginRepo string    `json:"origin_repo"` // repository the commit was discovered in
	Author     string    `json:"author"`
	AuthoredAt time.Time `json:"authored_at"`
	Branch     string    `json:"branch,omitempty"` // empty means default branch
	Additions  int       `json:"additions"`
	Deletions  int       `json:"deletions"`
	HasStats   bool      `json:"has_stats"`
}

// RepoActivity is the per-repository aggregate for one subject or for a
// whole organization. It accumulates while commits stream in and is only
// read once all fetch tasks for the subject have completed.
type RepoActivity struct {
	Name        string `json:"name"`
	Commits     int    `json:"commits"`
	PRs         int    `json:"prs"`
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	IsFork      bool   `json:"is_fork,omitempty"`
	Parent      string `json:"parent,omitempty"`
}

// PullRequest is one pull request the subject created or reviewed.
// The URL is the identity: a PR reviewed three times still counts once.
type PullRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Repo        string `json:"repo"`
	Author      string `json:"author,omitempty"`
	State       string `json:"state"` // OPEN, MERGED or CLOSED
	Additions   int    `json:"additions"`
	Deletions   int    `json:"deletions"`
	ReviewCount int    `json:"review_count,omitempty"`
}

// MemberActivity is one subject's complete result. It is created at the
// start of that subject's fetch, written only by the task that produces it,
// and frozen once handed to the aggregation stage.
type MemberActivity struct {
	Login           string                   `json:"login"`
	RealName        string                   `json:"real_name,omitempty"`
	Company         string                   `json:"company,omitempty"`
	TotalCommits    int                      `json:"total_commits"`     // default-branch contributions
	TotalCommitsAll int                      `json:"total_commits_all"` // including branch-scan discoveries
	RestrictedCount int                      `json:"restricted_count"`
	TotalPRs        int                      `json:"total_prs"`
	TotalReviews    int                      `json:"total_reviews"`
	TotalIssues     int                      `json:"total_issues"`
	TotalAdditions  int                      `json:"total_additions"`
	TotalDeletions  int                      `json:"total_deletions"`
	Repos           map[string]*RepoActivity `json:"repos"`
	PRsCreated      []PullRequest            `json:"prs_created"`
	PRsReviewed     []PullRequest            `json:"prs_reviewed"`
	ReposByCategory map[string][]string      `json:"repos_by_category"`
	Categories      []string                 `json:"categories"` // presentation order for ReposByCategory keys
	LightMode       bool                     `json:"light_mode"`
	Failed          bool                     `json:"failed"`
}

// OrgActivity is the fold of N member results. Built once, after every
// member task has joined.
type OrgActivity struct {
	Org                 string                    `json:"org"`
	Team                string                    `json:"team,omitempty"`
	Members             []string                  `json:"members"`
	TotalCommits        int                       `json:"total_commits"`
	TotalCommitsAll     int                       `json:"total_commits_all"`
	TotalPRs            int                       `json:"total_prs"`
	TotalReviews        int                       `json:"total_reviews"`
	TotalIssues         int                       `json:"total_issues"`
	TotalAdditions      int                       `json:"total_additions"`
	TotalDeletions      int                       `json:"total_deletions"`
	Repos               map[string]*RepoActivity  `json:"repos"`
	PRsCreated          []PullRequest             `json:"prs_created"`
	PRsReviewed         []PullRequest             `json:"prs_reviewed"`
	RepoMemberCommits   map[string]map[string]int `json:"repo_member_commits"`
	LangMemberCommits   map[string]map[string]int `json:"lang_member_commits"`
	MemberRealNames     map[string]string         `json:"member_real_names"`
	MemberCompanies     map[string]string         `json:"member_companies"`
	CompanyGroups       map[string][]string       `json:"company_groups"`
	MedianMemberCommits float64                   `json:"median_member_commits"`
	LightMode           bool                      `json:"light_mode"`
}

// SplitRepo splits an "owner/name" identity. A bare name is returned as
// its own base with an empty owner.
func SplitRepo(nameWithOwner string) (owner, name string) {
	if i := strings.IndexByte(nameWithOwner, '/'); i >= 0 {
		return nameWithOwner[:i], nameWithOwner[i+1:]
	}
	return "", nameWithOwner
}

// IsBot reports whether a login belongs to an automation account.
// GitHub marks app accounts with a "[bot]" suffix; conventional bot
// accounts simply end in "bot".
func IsBot(login string) bool {
	if login == "" {
		return false
	}
	l := strings.ToLower(login)
	return strings.HasSuffix(l, "[bot]") || strings.HasSuffix(l, "bot")
}
