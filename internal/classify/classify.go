package classify

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/domain"
)

// TopicFetcher is the slice of the gateway the topic fallback needs.
type TopicFetcher interface {
	RepoTopics(ctx context.Context, repo string) ([]string, error)
}

// topicCacheMax bounds the memoized topic lookups for long org runs.
const topicCacheMax = 2048

// Classifier assigns repositories to categories. Categorization is a
// cascade: explicit mappings win over org rules, org rules win over
// name patterns, and a topic lookup against the API is the last resort
// before "Other". Safe for concurrent use.
type Classifier struct {
	rules  Rules
	topics TopicFetcher
	logger *log.Logger

	mu    sync.Mutex
	cache map[string]string

	baseNames map[string]string
}

// NewClassifier builds a Classifier over the given rules. topics may be
// nil, in which case the topic fallback is skipped.
func NewClassifier(rules Rules, topics TopicFetcher, logger *log.Logger) *Classifier {
	base := make(map[string]string, len(rules.Explicit))
	for name, cat := range rules.Explicit {
		_, b := domain.SplitRepo(name)
		base[b] = cat
	}
	return &Classifier{
		rules:     rules,
		topics:    topics,
		logger:    logger,
		cache:     make(map[string]string),
		baseNames: base,
	}
}

// Categorize returns the category for a repository given as
// "owner/name". The context is only used by the topic fallback.
func (c *Classifier) Categorize(ctx context.Context, repo string) string {
	full := strings.ToLower(repo)
	owner, base := domain.SplitRepo(full)

	if cat, ok := c.rules.Explicit[full]; ok {
		return cat
	}
	// Forks keep the upstream base name, so a base-name hit maps the
	// fork to the upstream's category. Trim the usual fork suffixes
	// before looking it up.
	if cat, ok := c.baseNames[trimForkSuffix(base)]; ok {
		return cat
	}

	if base == "standards-positions" {
		return CategoryStandardsPositions
	}

	for _, org := range c.rules.StandardsOrgs {
		if owner != org.Org {
			continue
		}
		for _, o := range org.Overrides {
			if o.Pattern.Matches(base) {
				return o.Category
			}
		}
		return org.Category
	}
	for _, org := range c.rules.OtherOrgs {
		if owner == org.Org {
			return org.Category
		}
	}

	for _, r := range c.rules.General {
		if r.Pattern.Matches(base) {
			return r.Category
		}
	}

	if cat := c.topicCategory(ctx, full); cat != "" {
		return cat
	}
	return CategoryOther
}

func (c *Classifier) topicCategory(ctx context.Context, full string) string {
	if c.topics == nil || len(c.rules.Topics) == 0 {
		return ""
	}

	c.mu.Lock()
	if cat, ok := c.cache[full]; ok {
		c.mu.Unlock()
		return cat
	}
	c.mu.Unlock()

	topics, err := c.topics.RepoTopics(ctx, full)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("topic lookup for %s failed: %v", full, err)
		}
		return ""
	}

	cat := ""
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[strings.ToLower(t)] = true
	}
lookup:
	for _, r := range c.rules.Topics {
		for _, t := range r.Topics {
			if set[t] {
				cat = r.Category
				break lookup
			}
		}
	}

	c.mu.Lock()
	if len(c.cache) >= topicCacheMax {
		c.cache = make(map[string]string)
	}
	c.cache[full] = cat
	c.mu.Unlock()
	return cat
}

// SortCategories orders category labels for presentation: the priority
// table first, anything absent alphabetically after it, Other last.
func (c *Classifier) SortCategories(categories []string) []string {
	rank := make(map[string]int, len(c.rules.Priority))
	for i, cat := range c.rules.Priority {
		rank[cat] = i
	}
	sorted := append([]string(nil), categories...)
	sort.Slice(sorted, func(i, j int) bool {
		ri, iRanked := rank[sorted[i]]
		rj, jRanked := rank[sorted[j]]
		switch {
		case sorted[i] == CategoryOther:
			return false
		case sorted[j] == CategoryOther:
			return true
		case iRanked && jRanked:
			return ri < rj
		case iRanked != jRanked:
			return iRanked
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted
}

// Interesting reports whether a fork of this repository is worth a
// branch scan: only upstreams with an explicit mapping qualify.
func (c *Classifier) Interesting(repo string) bool {
	full := strings.ToLower(repo)
	if _, ok := c.rules.Explicit[full]; ok {
		return true
	}
	_, base := domain.SplitRepo(full)
	_, ok := c.baseNames[trimForkSuffix(base)]
	return ok
}

func trimForkSuffix(base string) string {
	for _, s := range []string{"-fork", "-mirror", "-clone"} {
		base = strings.TrimSuffix(base, s)
	}
	return base
}
