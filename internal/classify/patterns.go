// Package classify maps repository identities to category labels through
// an ordered, data-driven rule cascade, and filters mirror/copy noise out
// of commit discovery. Rules are static tables passed in at construction;
// adding a rule never touches the cascade's control flow.
package classify

import "strings"

// Pattern matches a repository base name. Names are lowercased before
// comparison, so pattern entries must be lowercase.
type Pattern struct {
	Exact           []string
	Prefix          []string
	Suffix          []string
	Contains        []string
	ExcludePrefix   []string
	ExcludeContains []string
}

// Matches reports whether the base name satisfies the pattern.
func (p Pattern) Matches(name string) bool {
	name = strings.ToLower(name)
	for _, e := range p.ExcludePrefix {
		if strings.HasPrefix(name, e) {
			return false
		}
	}
	for _, e := range p.ExcludeContains {
		if strings.Contains(name, e) {
			return false
		}
	}
	for _, e := range p.Exact {
		if name == e {
			return true
		}
	}
	for _, e := range p.Prefix {
		if strings.HasPrefix(name, e) {
			return true
		}
	}
	for _, e := range p.Suffix {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	for _, e := range p.Contains {
		if strings.Contains(name, e) {
			return true
		}
	}
	return false
}

// PatternRule pairs a pattern with the category it assigns.
type PatternRule struct {
	Pattern  Pattern
	Category string
}

// OrgRule assigns a category to every repository of an organization,
// except where an org-scoped override pattern matches first.
type OrgRule struct {
	Org       string
	Category  string
	Overrides []PatternRule
}

// TopicRule assigns a category when any of its topics tags the repository.
type TopicRule struct {
	Topics   []string
	Category string
}

// MirrorRule describes one heavily-mirrored flagship project whose copies
// pollute search-based commit discovery.
type MirrorRule struct {
	Flagship     string   // canonical repository, never skipped
	NamePatterns []string // suspicious base-name substrings
	Taglines     []string // verbatim flagship descriptions, lowercased
	Allowlist    []string
}
