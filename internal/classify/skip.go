package classify

import (
	"strings"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

// RepoFacts carries the per-repo metadata the skip rules consult.
// Parent is the upstream "owner/name" for forks, empty otherwise.
type RepoFacts struct {
	Private     bool
	Parent      string
	Description string
}

// ShouldSkip reports whether a repository should be dropped from a
// member's activity before attribution. username is the member whose
// activity is being gathered; their own forks of flagship projects are
// kept, everyone else's mirrors and rehosts are dropped.
func (c *Classifier) ShouldSkip(repo, username string, facts RepoFacts) bool {
	if repo == "" {
		return true
	}
	full := strings.ToLower(repo)
	owner, base := domain.SplitRepo(full)
	if facts.Private {
		return true
	}
	// Profile repos (owner/owner) only hold a README.
	if owner == base {
		return true
	}
	if c.rules.Blocklist[full] {
		return true
	}

	user := strings.ToLower(username)
	parent := strings.ToLower(facts.Parent)
	desc := strings.ToLower(facts.Description)

	for _, m := range c.rules.Mirrors {
		if !m.matchesName(base) && parent != m.Flagship && !m.matchesDescription(desc) {
			continue
		}
		if m.allowed(full) {
			return false
		}
		// A member's own fork of the flagship is real activity.
		if owner == user {
			return false
		}
		return true
	}
	return false
}

func (m MirrorRule) matchesName(base string) bool {
	for _, p := range m.NamePatterns {
		if strings.Contains(base, p) {
			return true
		}
	}
	return false
}

func (m MirrorRule) matchesDescription(desc string) bool {
	if desc == "" {
		return false
	}
	_, flagshipBase := domain.SplitRepo(m.Flagship)
	if strings.Contains(desc, flagshipBase) {
		return true
	}
	for _, t := range m.Taglines {
		if desc == t || strings.Contains(desc, t) {
			return true
		}
	}
	return false
}

func (m MirrorRule) allowed(full string) bool {
	for _, a := range m.Allowlist {
		if full == a {
			return true
		}
	}
	return false
}
